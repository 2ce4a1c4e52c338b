package user

import "github.com/geocoder89/tourhub/internal/query"

// QuerySchema lists the fields a user listing can filter, sort or select.
var QuerySchema = query.Schema{
	"name":      query.String,
	"email":     query.String,
	"role":      query.String,
	"photo":     query.Opaque,
	"createdAt": query.Time,
	"updatedAt": query.Time,
}

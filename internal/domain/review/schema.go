package review

import "github.com/geocoder89/tourhub/internal/query"

var QuerySchema = query.Schema{
	"rating":    query.Number,
	"createdAt": query.Time,
	"review":    query.Opaque,
	"tour":      query.String,
	"user":      query.String,
}

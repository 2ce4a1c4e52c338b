package tour

import "github.com/geocoder89/tourhub/internal/query"

var QuerySchema = query.Schema{
	"name":            query.String,
	"slug":            query.String,
	"duration":        query.Number,
	"maxGroupSize":    query.Number,
	"difficulty":      query.String,
	"ratingsAverage":  query.Number,
	"ratingsQuantity": query.Number,
	"price":           query.Number,
	"priceDiscount":   query.Number,
	"createdAt":       query.Time,
	"summary":         query.Opaque,
	"description":     query.Opaque,
	"imageCover":      query.Opaque,
	"images":          query.Opaque,
	"startDates":      query.Opaque,
	"startLocation":   query.Opaque,
	"locations":       query.Opaque,
	"guides":          query.Opaque,
}

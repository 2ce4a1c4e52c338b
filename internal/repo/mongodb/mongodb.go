// Package mongodb implements the stores on MongoDB. Documents use the same
// camelCase field names as the JSON API, so list queries translate 1:1.
package mongodb

import (
	"context"
	"fmt"

	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection   = "users"
	toursCollection   = "tours"
	reviewsCollection = "reviews"
)

type base struct {
	coll *mongo.Collection
	prom *observability.Prom
}

func (b base) observe(op string, fn func() error) error {
	return b.prom.ObserveDB(op, fn)
}

// EnsureIndexes creates the unique and lookup indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		toursCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "price", Value: 1}, {Key: "ratingsAverage", Value: -1}}},
			{Keys: bson.D{{Key: "slug", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "tour", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

var mongoOps = map[query.Op]string{
	query.Eq:  "$eq",
	query.In:  "$in",
	query.Gte: "$gte",
	query.Gt:  "$gt",
	query.Lte: "$lte",
	query.Lt:  "$lt",
}

// buildFilter merges list conditions into base. Fields named in refs hold
// ObjectIDs and have their values converted; an invalid id matches nothing.
func buildFilter(base bson.M, conds []query.Condition, refs map[string]bool) bson.M {
	f := bson.M{}
	for k, v := range base {
		f[k] = v
	}

	for _, c := range conds {
		op, ok := mongoOps[c.Op]
		if !ok {
			continue
		}
		val := c.Value
		if refs[c.Field] {
			val = toObjectIDs(val)
		}

		ops, _ := f[c.Field].(bson.M)
		if ops == nil {
			ops = bson.M{}
		}
		ops[op] = val
		f[c.Field] = ops
	}
	return f
}

func toObjectIDs(v any) any {
	switch x := v.(type) {
	case string:
		oid, err := bson.ObjectIDFromHex(x)
		if err != nil {
			return bson.NilObjectID
		}
		return oid
	case []any:
		out := make([]any, 0, len(x))
		for _, s := range x {
			out = append(out, toObjectIDs(s))
		}
		return out
	}
	return v
}

func buildSort(sorts []query.SortField) bson.D {
	d := bson.D{}
	for _, s := range sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}

func findOptions(l query.List) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(buildSort(l.SortOrDefault()))
	if l.Limit > 0 {
		opts.SetSkip(int64(l.Offset())).SetLimit(int64(l.Limit))
	}
	return opts
}

func parseID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, false
	}
	return oid, true
}

func hexIDs(ids []bson.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

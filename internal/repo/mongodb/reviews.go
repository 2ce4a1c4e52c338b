package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type reviewDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Review    string        `bson:"review"`
	Rating    int           `bson:"rating"`
	CreatedAt time.Time     `bson:"createdAt"`
	Tour      bson.ObjectID `bson:"tour"`
	User      bson.ObjectID `bson:"user"`
}

func (d reviewDoc) toDomain() review.Review {
	return review.Review{
		ID:        d.ID.Hex(),
		Review:    d.Review,
		Rating:    d.Rating,
		CreatedAt: d.CreatedAt,
		TourID:    d.Tour.Hex(),
		UserID:    d.User.Hex(),
	}
}

var reviewRefs = map[string]bool{"tour": true, "user": true}

type ReviewsRepo struct {
	base
}

func NewReviewsRepo(db *mongo.Database, prom *observability.Prom) *ReviewsRepo {
	return &ReviewsRepo{base{coll: db.Collection(reviewsCollection), prom: prom}}
}

func (r *ReviewsRepo) Create(ctx context.Context, rv review.Review) (review.Review, error) {
	tourID, ok := parseID(rv.TourID)
	if !ok {
		return review.Review{}, fmt.Errorf("reviews.create: invalid tour id %q", rv.TourID)
	}
	userID, ok := parseID(rv.UserID)
	if !ok {
		return review.Review{}, fmt.Errorf("reviews.create: invalid user id %q", rv.UserID)
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}

	doc := reviewDoc{
		ID:        bson.NewObjectID(),
		Review:    rv.Review,
		Rating:    rv.Rating,
		CreatedAt: rv.CreatedAt,
		Tour:      tourID,
		User:      userID,
	}

	err := r.observe("reviews.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return review.Review{}, review.ErrDuplicate
		}
		return review.Review{}, fmt.Errorf("reviews.create: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewsRepo) GetByID(ctx context.Context, id string) (review.Review, error) {
	oid, ok := parseID(id)
	if !ok {
		return review.Review{}, review.ErrNotFound
	}

	var doc reviewDoc
	err := r.observe("reviews.get_by_id", func() error {
		return r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, fmt.Errorf("reviews.get_by_id: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewsRepo) List(ctx context.Context, q query.List) ([]review.Review, error) {
	out := make([]review.Review, 0)
	err := r.observe("reviews.list", func() error {
		cur, err := r.coll.Find(ctx, buildFilter(bson.M{}, q.Conditions, reviewRefs), findOptions(q))
		if err != nil {
			return err
		}
		var docs []reviewDoc
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			out = append(out, d.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reviews.list: %w", err)
	}
	return out, nil
}

func (r *ReviewsRepo) Replace(ctx context.Context, rv review.Review) (review.Review, error) {
	oid, ok := parseID(rv.ID)
	if !ok {
		return review.Review{}, review.ErrNotFound
	}

	var doc reviewDoc
	err := r.observe("reviews.replace", func() error {
		return r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid},
			bson.M{"$set": bson.M{"review": rv.Review, "rating": rv.Rating}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, fmt.Errorf("reviews.replace: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id string) (review.Review, error) {
	oid, ok := parseID(id)
	if !ok {
		return review.Review{}, review.ErrNotFound
	}

	var doc reviewDoc
	err := r.observe("reviews.delete", func() error {
		return r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, fmt.Errorf("reviews.delete: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewsRepo) RatingSummary(ctx context.Context, tourID string) (review.RatingSummary, error) {
	oid, ok := parseID(tourID)
	if !ok {
		return review.RatingSummary{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": oid}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	}

	var rows []struct {
		NRating   int     `bson:"nRating"`
		AvgRating float64 `bson:"avgRating"`
	}
	err := r.observe("reviews.rating_summary", func() error {
		cur, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		return cur.All(ctx, &rows)
	})
	if err != nil {
		return review.RatingSummary{}, fmt.Errorf("reviews.rating_summary: %w", err)
	}
	if len(rows) == 0 {
		return review.RatingSummary{}, nil
	}
	return review.RatingSummary{Quantity: rows[0].NRating, Average: rows[0].AvgRating}, nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type tourDoc struct {
	ID              bson.ObjectID   `bson:"_id,omitempty"`
	Name            string          `bson:"name"`
	Slug            string          `bson:"slug"`
	Duration        int             `bson:"duration"`
	MaxGroupSize    int             `bson:"maxGroupSize"`
	Difficulty      string          `bson:"difficulty"`
	RatingsAverage  float64         `bson:"ratingsAverage"`
	RatingsQuantity int             `bson:"ratingsQuantity"`
	Price           float64         `bson:"price"`
	PriceDiscount   *float64        `bson:"priceDiscount,omitempty"`
	Summary         string          `bson:"summary"`
	Description     string          `bson:"description,omitempty"`
	ImageCover      string          `bson:"imageCover"`
	Images          []string        `bson:"images"`
	StartDates      []time.Time     `bson:"startDates"`
	SecretTour      bool            `bson:"secretTour"`
	StartLocation   *tour.Location  `bson:"startLocation,omitempty"`
	Locations       []tour.Location `bson:"locations"`
	Guides          []bson.ObjectID `bson:"guides"`
	CreatedAt       time.Time       `bson:"createdAt"`
}

func tourToDoc(t tour.Tour) (tourDoc, error) {
	guides := make([]bson.ObjectID, 0, len(t.Guides))
	for _, g := range t.Guides {
		oid, ok := parseID(g)
		if !ok {
			return tourDoc{}, &tour.ValidationError{Field: "guides", Message: "Invalid guide id " + g}
		}
		guides = append(guides, oid)
	}

	d := tourDoc{
		Name:            t.Name,
		Slug:            t.Slug,
		Duration:        t.Duration,
		MaxGroupSize:    t.MaxGroupSize,
		Difficulty:      string(t.Difficulty),
		RatingsAverage:  t.RatingsAverage,
		RatingsQuantity: t.RatingsQuantity,
		Price:           t.Price,
		PriceDiscount:   t.PriceDiscount,
		Summary:         t.Summary,
		Description:     t.Description,
		ImageCover:      t.ImageCover,
		Images:          t.Images,
		StartDates:      t.StartDates,
		SecretTour:      t.SecretTour,
		StartLocation:   t.StartLocation,
		Locations:       t.Locations,
		Guides:          guides,
		CreatedAt:       t.CreatedAt,
	}
	if t.ID != "" {
		oid, ok := parseID(t.ID)
		if !ok {
			return tourDoc{}, tour.ErrNotFound
		}
		d.ID = oid
	}
	return d, nil
}

func (d tourDoc) toDomain() tour.Tour {
	return tour.Tour{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Slug:            d.Slug,
		Duration:        d.Duration,
		MaxGroupSize:    d.MaxGroupSize,
		Difficulty:      tour.Difficulty(d.Difficulty),
		RatingsAverage:  d.RatingsAverage,
		RatingsQuantity: d.RatingsQuantity,
		Price:           d.Price,
		PriceDiscount:   d.PriceDiscount,
		Summary:         d.Summary,
		Description:     d.Description,
		ImageCover:      d.ImageCover,
		Images:          d.Images,
		StartDates:      d.StartDates,
		SecretTour:      d.SecretTour,
		StartLocation:   d.StartLocation,
		Locations:       d.Locations,
		Guides:          hexIDs(d.Guides),
		CreatedAt:       d.CreatedAt,
	}
}

// publicOnly hides secret tours from a query.
func publicOnly(f bson.M) bson.M {
	f["secretTour"] = bson.M{"$ne": true}
	return f
}

type ToursRepo struct {
	base
}

func NewToursRepo(db *mongo.Database, prom *observability.Prom) *ToursRepo {
	return &ToursRepo{base{coll: db.Collection(toursCollection), prom: prom}}
}

func (r *ToursRepo) Create(ctx context.Context, t tour.Tour) (tour.Tour, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.ID = ""

	doc, err := tourToDoc(t)
	if err != nil {
		return tour.Tour{}, err
	}
	doc.ID = bson.NewObjectID()

	err = r.observe("tours.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tour.Tour{}, tour.ErrNameTaken
		}
		return tour.Tour{}, fmt.Errorf("tours.create: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ToursRepo) GetByID(ctx context.Context, id string) (tour.Tour, error) {
	oid, ok := parseID(id)
	if !ok {
		return tour.Tour{}, tour.ErrNotFound
	}

	var doc tourDoc
	err := r.observe("tours.get_by_id", func() error {
		return r.coll.FindOne(ctx, publicOnly(bson.M{"_id": oid})).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return tour.Tour{}, tour.ErrNotFound
		}
		return tour.Tour{}, fmt.Errorf("tours.get_by_id: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ToursRepo) List(ctx context.Context, q query.List) ([]tour.Tour, error) {
	out := make([]tour.Tour, 0)
	err := r.observe("tours.list", func() error {
		cur, err := r.coll.Find(ctx, publicOnly(buildFilter(bson.M{}, q.Conditions, nil)), findOptions(q))
		if err != nil {
			return err
		}
		var docs []tourDoc
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			out = append(out, d.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tours.list: %w", err)
	}
	return out, nil
}

func (r *ToursRepo) Replace(ctx context.Context, t tour.Tour) (tour.Tour, error) {
	doc, err := tourToDoc(t)
	if err != nil {
		return tour.Tour{}, err
	}

	var saved tourDoc
	err = r.observe("tours.replace", func() error {
		set := bson.M{
			"name": doc.Name, "slug": doc.Slug, "duration": doc.Duration,
			"maxGroupSize": doc.MaxGroupSize, "difficulty": doc.Difficulty,
			"ratingsAverage": doc.RatingsAverage, "ratingsQuantity": doc.RatingsQuantity,
			"price": doc.Price, "summary": doc.Summary, "description": doc.Description,
			"imageCover": doc.ImageCover, "images": doc.Images, "startDates": doc.StartDates,
			"secretTour": doc.SecretTour, "locations": doc.Locations, "guides": doc.Guides,
		}
		unset := bson.M{}
		if doc.PriceDiscount != nil {
			set["priceDiscount"] = *doc.PriceDiscount
		} else {
			unset["priceDiscount"] = ""
		}
		if doc.StartLocation != nil {
			set["startLocation"] = doc.StartLocation
		} else {
			unset["startLocation"] = ""
		}
		update := bson.M{"$set": set}
		if len(unset) > 0 {
			update["$unset"] = unset
		}

		return r.coll.FindOneAndUpdate(ctx, bson.M{"_id": doc.ID}, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&saved)
	})
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return tour.Tour{}, tour.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return tour.Tour{}, tour.ErrNameTaken
		}
		return tour.Tour{}, fmt.Errorf("tours.replace: %w", err)
	}
	return saved.toDomain(), nil
}

func (r *ToursRepo) Delete(ctx context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return tour.ErrNotFound
	}

	var deleted int64
	err := r.observe("tours.delete", func() error {
		res, err := r.coll.DeleteOne(ctx, publicOnly(bson.M{"_id": oid}))
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("tours.delete: %w", err)
	}
	if deleted == 0 {
		return tour.ErrNotFound
	}
	return nil
}

func (r *ToursRepo) SetRatings(ctx context.Context, id string, quantity int, average float64) error {
	oid, ok := parseID(id)
	if !ok {
		return tour.ErrNotFound
	}

	var matched int64
	err := r.observe("tours.set_ratings", func() error {
		res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
			"ratingsQuantity": quantity,
			"ratingsAverage":  tour.RoundRating(average),
		}})
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("tours.set_ratings: %w", err)
	}
	if matched == 0 {
		return tour.ErrNotFound
	}
	return nil
}

func (r *ToursRepo) Stats(ctx context.Context) ([]tour.DifficultyStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"secretTour":     bson.M{"$ne": true},
			"ratingsAverage": bson.M{"$gte": tour.StatsMinRating},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":        bson.M{"$toUpper": "$difficulty"},
			"numTours":   bson.M{"$sum": 1},
			"numRatings": bson.M{"$sum": "$ratingsQuantity"},
			"avgRating":  bson.M{"$avg": "$ratingsAverage"},
			"avgPrice":   bson.M{"$avg": "$price"},
			"minPrice":   bson.M{"$min": "$price"},
			"maxPrice":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avgPrice": 1}}},
	}

	out := make([]tour.DifficultyStats, 0)
	err := r.observe("tours.stats", func() error {
		cur, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("tours.stats: %w", err)
	}
	return out, nil
}

func (r *ToursRepo) MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlan, error) {
	start, end := tour.YearBounds(year)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"secretTour": bson.M{"$ne": true}}}},
		{{Key: "$unwind", Value: "$startDates"}},
		{{Key: "$match", Value: bson.M{"startDates": bson.M{"$gte": start, "$lt": end}}}},
		{{Key: "$group", Value: bson.M{
			"_id":           bson.M{"$month": "$startDates"},
			"numTourStarts": bson.M{"$sum": 1},
			"tours":         bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.D{{Key: "numTourStarts", Value: -1}, {Key: "month", Value: 1}}}},
		{{Key: "$limit", Value: 12}},
	}

	out := make([]tour.MonthlyPlan, 0)
	err := r.observe("tours.monthly_plan", func() error {
		cur, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("tours.monthly_plan: %w", err)
	}
	return out, nil
}

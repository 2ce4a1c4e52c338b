package tour

import (
	"errors"
	"math"
	"time"
)

type Difficulty string

const (
	Easy      Difficulty = "easy"
	Medium    Difficulty = "medium"
	Difficult Difficulty = "difficult"
)

func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Difficult
}

const DefaultRatingsAverage = 4.5

// Location is a GeoJSON point with display metadata.
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Day         int       `json:"day,omitempty" bson:"day,omitempty"`
}

type Tour struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Slug            string      `json:"slug"`
	Duration        int         `json:"duration"`
	MaxGroupSize    int         `json:"maxGroupSize"`
	Difficulty      Difficulty  `json:"difficulty"`
	RatingsAverage  float64     `json:"ratingsAverage"`
	RatingsQuantity int         `json:"ratingsQuantity"`
	Price           float64     `json:"price"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	SecretTour      bool        `json:"-"`
	StartLocation   *Location   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations"`
	Guides          []string    `json:"guides"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// DurationWeeks is derived, never stored.
func (t Tour) DurationWeeks() float64 {
	return float64(t.Duration) / 7
}

// RoundRating rounds to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

var (
	ErrNotFound  = errors.New("tour not found")
	ErrNameTaken = errors.New("tour name already in use")
)

// ValidationError reports a rule spanning more than one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the rules binding tags cannot express.
func (t Tour) Validate() error {
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		return &ValidationError{Field: "priceDiscount", Message: "Discount price should be below regular price"}
	}
	if t.RatingsAverage < 1 || t.RatingsAverage > 5 {
		return &ValidationError{Field: "ratingsAverage", Message: "Rating must be between 1.0 and 5.0"}
	}
	if t.StartLocation != nil && len(t.StartLocation.Coordinates) != 2 {
		return &ValidationError{Field: "startLocation.coordinates", Message: "Coordinates must be [lng, lat]"}
	}
	for _, l := range t.Locations {
		if len(l.Coordinates) != 2 {
			return &ValidationError{Field: "locations.coordinates", Message: "Coordinates must be [lng, lat]"}
		}
	}
	return nil
}

// DifficultyStats is one row of the tour statistics aggregation.
type DifficultyStats struct {
	Difficulty string  `json:"difficulty" bson:"_id"`
	NumTours   int     `json:"numTours" bson:"numTours"`
	NumRatings int     `json:"numRatings" bson:"numRatings"`
	AvgRating  float64 `json:"avgRating" bson:"avgRating"`
	AvgPrice   float64 `json:"avgPrice" bson:"avgPrice"`
	MinPrice   float64 `json:"minPrice" bson:"minPrice"`
	MaxPrice   float64 `json:"maxPrice" bson:"maxPrice"`
}

// StatsMinRating is the ratingsAverage floor for tours counted in stats.
const StatsMinRating = 4.5

// MonthlyPlan counts tour starts in one month of a year.
type MonthlyPlan struct {
	Month         int      `json:"month" bson:"month"`
	NumTourStarts int      `json:"numTourStarts" bson:"numTourStarts"`
	Tours         []string `json:"tours" bson:"tours"`
}

// YearBounds returns [start, end) of year in UTC.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

package tour

import "time"

type CreateRequest struct {
	Name            string      `json:"name" binding:"required,min=10,max=40"`
	Duration        int         `json:"duration" binding:"required,min=1"`
	MaxGroupSize    int         `json:"maxGroupSize" binding:"required,min=1"`
	Difficulty      Difficulty  `json:"difficulty" binding:"required,difficulty"`
	RatingsAverage  *float64    `json:"ratingsAverage" binding:"omitempty,min=1,max=5"`
	RatingsQuantity int         `json:"ratingsQuantity" binding:"omitempty,min=0"`
	Price           float64     `json:"price" binding:"required,gt=0"`
	PriceDiscount   *float64    `json:"priceDiscount" binding:"omitempty,min=0"`
	Summary         string      `json:"summary" binding:"required"`
	Description     string      `json:"description"`
	ImageCover      string      `json:"imageCover" binding:"required"`
	Images          []string    `json:"images"`
	StartDates      []time.Time `json:"startDates"`
	SecretTour      bool        `json:"secretTour"`
	StartLocation   *Location   `json:"startLocation"`
	Locations       []Location  `json:"locations" binding:"omitempty,dive"`
	Guides          []string    `json:"guides"`
}

// UpdateRequest is a partial update. Nil fields are left unchanged.
type UpdateRequest struct {
	Name            *string      `json:"name" binding:"omitempty,min=10,max=40"`
	Duration        *int         `json:"duration" binding:"omitempty,min=1"`
	MaxGroupSize    *int         `json:"maxGroupSize" binding:"omitempty,min=1"`
	Difficulty      *Difficulty  `json:"difficulty" binding:"omitempty,difficulty"`
	RatingsAverage  *float64     `json:"ratingsAverage" binding:"omitempty,min=1,max=5"`
	RatingsQuantity *int         `json:"ratingsQuantity" binding:"omitempty,min=0"`
	Price           *float64     `json:"price" binding:"omitempty,gt=0"`
	PriceDiscount   *float64     `json:"priceDiscount" binding:"omitempty,min=0"`
	Summary         *string      `json:"summary" binding:"omitempty,min=1"`
	Description     *string      `json:"description"`
	ImageCover      *string      `json:"imageCover" binding:"omitempty,min=1"`
	Images          *[]string    `json:"images"`
	StartDates      *[]time.Time `json:"startDates"`
	SecretTour      *bool        `json:"secretTour"`
	StartLocation   *Location    `json:"startLocation"`
	Locations       *[]Location  `json:"locations"`
	Guides          *[]string    `json:"guides"`
}

func NewFromCreateRequest(req CreateRequest, now time.Time) Tour {
	rating := DefaultRatingsAverage
	if req.RatingsAverage != nil {
		rating = *req.RatingsAverage
	}

	t := Tour{
		Name:            req.Name,
		Duration:        req.Duration,
		MaxGroupSize:    req.MaxGroupSize,
		Difficulty:      req.Difficulty,
		RatingsAverage:  rating,
		RatingsQuantity: req.RatingsQuantity,
		Price:           req.Price,
		PriceDiscount:   req.PriceDiscount,
		Summary:         req.Summary,
		Description:     req.Description,
		ImageCover:      req.ImageCover,
		Images:          req.Images,
		StartDates:      req.StartDates,
		SecretTour:      req.SecretTour,
		StartLocation:   req.StartLocation,
		Locations:       req.Locations,
		Guides:          req.Guides,
		CreatedAt:       now,
	}
	BeforeSave(&t)
	return t
}

// Apply merges the request into t and re-runs the save hook.
func (r UpdateRequest) Apply(t *Tour) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.Duration != nil {
		t.Duration = *r.Duration
	}
	if r.MaxGroupSize != nil {
		t.MaxGroupSize = *r.MaxGroupSize
	}
	if r.Difficulty != nil {
		t.Difficulty = *r.Difficulty
	}
	if r.RatingsAverage != nil {
		t.RatingsAverage = *r.RatingsAverage
	}
	if r.RatingsQuantity != nil {
		t.RatingsQuantity = *r.RatingsQuantity
	}
	if r.Price != nil {
		t.Price = *r.Price
	}
	if r.PriceDiscount != nil {
		t.PriceDiscount = r.PriceDiscount
	}
	if r.Summary != nil {
		t.Summary = *r.Summary
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.ImageCover != nil {
		t.ImageCover = *r.ImageCover
	}
	if r.Images != nil {
		t.Images = *r.Images
	}
	if r.StartDates != nil {
		t.StartDates = *r.StartDates
	}
	if r.SecretTour != nil {
		t.SecretTour = *r.SecretTour
	}
	if r.StartLocation != nil {
		t.StartLocation = r.StartLocation
	}
	if r.Locations != nil {
		t.Locations = *r.Locations
	}
	if r.Guides != nil {
		t.Guides = *r.Guides
	}
	BeforeSave(t)
}

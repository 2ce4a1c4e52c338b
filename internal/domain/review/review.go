package review

import (
	"errors"
	"strings"
	"time"
)

type Review struct {
	ID        string    `json:"id"`
	Review    string    `json:"review"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	TourID    string    `json:"tour"`
	UserID    string    `json:"user"`
}

var (
	ErrNotFound  = errors.New("review not found")
	ErrDuplicate = errors.New("review already exists for this tour and user")
)

// RatingSummary is the aggregate a tour's ratings fields are recomputed from.
type RatingSummary struct {
	Quantity int
	Average  float64
}

type CreateRequest struct {
	Review string `json:"review" binding:"required,min=1,max=2000"`
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	TourID string `json:"tour"`
	UserID string `json:"user"`
}

type UpdateRequest struct {
	Review *string `json:"review" binding:"omitempty,min=1,max=2000"`
	Rating *int    `json:"rating" binding:"omitempty,min=1,max=5"`
}

func (r UpdateRequest) Apply(rv *Review) {
	if r.Review != nil {
		rv.Review = strings.TrimSpace(*r.Review)
	}
	if r.Rating != nil {
		rv.Rating = *r.Rating
	}
}

func NewFromCreateRequest(req CreateRequest, now time.Time) Review {
	return Review{
		Review:    strings.TrimSpace(req.Review),
		Rating:    req.Rating,
		CreatedAt: now,
		TourID:    req.TourID,
		UserID:    req.UserID,
	}
}

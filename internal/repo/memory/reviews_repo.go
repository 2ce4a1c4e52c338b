package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/google/uuid"
)

type ReviewsRepo struct {
	mu    sync.RWMutex
	items map[string]review.Review
}

func NewReviewsRepo() *ReviewsRepo {
	return &ReviewsRepo{items: make(map[string]review.Review)}
}

func (r *ReviewsRepo) Create(_ context.Context, rv review.Review) (review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.TourID == rv.TourID && existing.UserID == rv.UserID {
			return review.Review{}, review.ErrDuplicate
		}
	}
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	r.items[rv.ID] = rv
	return rv, nil
}

func (r *ReviewsRepo) GetByID(_ context.Context, id string) (review.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.items[id]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	return rv, nil
}

func (r *ReviewsRepo) List(_ context.Context, q query.List) ([]review.Review, error) {
	r.mu.RLock()
	all := make([]review.Review, 0, len(r.items))
	for _, rv := range r.items {
		all = append(all, rv)
	}
	r.mu.RUnlock()

	return apply(all, q), nil
}

func (r *ReviewsRepo) Replace(_ context.Context, rv review.Review) (review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[rv.ID]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	cur.Review = rv.Review
	cur.Rating = rv.Rating
	r.items[rv.ID] = cur
	return cur, nil
}

func (r *ReviewsRepo) Delete(_ context.Context, id string) (review.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rv, ok := r.items[id]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	delete(r.items, id)
	return rv, nil
}

func (r *ReviewsRepo) RatingSummary(_ context.Context, tourID string) (review.RatingSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s review.RatingSummary
	total := 0
	for _, rv := range r.items {
		if rv.TourID == tourID {
			s.Quantity++
			total += rv.Rating
		}
	}
	if s.Quantity > 0 {
		s.Average = float64(total) / float64(s.Quantity)
	}
	return s, nil
}

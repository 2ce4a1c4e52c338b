package handlers

import (
	"context"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/geocoder89/tourhub/internal/query"
)

type UsersStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string, opts ...user.LoadOption) (user.User, error)
	GetByEmail(ctx context.Context, email string, opts ...user.LoadOption) (user.User, error)
	GetByResetToken(ctx context.Context, digest string, now time.Time, opts ...user.LoadOption) (user.User, error)
	GetMany(ctx context.Context, ids []string) ([]user.User, error)
	List(ctx context.Context, q query.List) ([]user.User, error)
	Save(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (user.User, error)
	SetResetToken(ctx context.Context, id, digest string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

type ToursStore interface {
	Create(ctx context.Context, t tour.Tour) (tour.Tour, error)
	GetByID(ctx context.Context, id string) (tour.Tour, error)
	List(ctx context.Context, q query.List) ([]tour.Tour, error)
	Replace(ctx context.Context, t tour.Tour) (tour.Tour, error)
	Delete(ctx context.Context, id string) error
	SetRatings(ctx context.Context, id string, quantity int, average float64) error
	Stats(ctx context.Context) ([]tour.DifficultyStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlan, error)
}

type ReviewsStore interface {
	Create(ctx context.Context, rv review.Review) (review.Review, error)
	GetByID(ctx context.Context, id string) (review.Review, error)
	List(ctx context.Context, q query.List) ([]review.Review, error)
	Replace(ctx context.Context, rv review.Review) (review.Review, error)
	Delete(ctx context.Context, id string) (review.Review, error)
	RatingSummary(ctx context.Context, tourID string) (review.RatingSummary, error)
}

// Enqueuer accepts background jobs. A nil Enqueuer disables them.
type Enqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

// Stores bundles the repositories of one backend.
type Stores struct {
	Users   UsersStore
	Tours   ToursStore
	Reviews ReviewsStore
}

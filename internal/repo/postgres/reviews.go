package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reviewColumns = `id, review, rating, created_at, tour_id, user_id`

var reviewSortColumns = map[string]string{
	"rating":    "rating",
	"createdAt": "created_at",
	"tour":      "tour_id",
	"user":      "user_id",
}

type ReviewsRepo struct {
	base
}

func NewReviewsRepo(db DB, prom *observability.Prom) *ReviewsRepo {
	return &ReviewsRepo{base{db: db, prom: prom}}
}

func scanReview(row pgx.Row) (review.Review, error) {
	var rv review.Review
	err := row.Scan(&rv.ID, &rv.Review, &rv.Rating, &rv.CreatedAt, &rv.TourID, &rv.UserID)
	return rv, err
}

func (r *ReviewsRepo) Create(ctx context.Context, rv review.Review) (review.Review, error) {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}

	err := r.observe("reviews.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO reviews (`+reviewColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			rv.ID, rv.Review, rv.Rating, rv.CreatedAt, rv.TourID, rv.UserID,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return review.Review{}, review.ErrDuplicate
		}
		return review.Review{}, fmt.Errorf("reviews.create: %w", err)
	}
	return rv, nil
}

func (r *ReviewsRepo) GetByID(ctx context.Context, id string) (review.Review, error) {
	var rv review.Review
	err := r.observe("reviews.get_by_id", func() error {
		var err error
		rv, err = scanReview(r.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, fmt.Errorf("reviews.get_by_id: %w", err)
	}
	return rv, nil
}

func (r *ReviewsRepo) List(ctx context.Context, q query.List) ([]review.Review, error) {
	where, args := whereClause(nil, q.Conditions, reviewSortColumns, nil)
	sql := `SELECT ` + reviewColumns + ` FROM reviews` + where + orderClause(q.SortOrDefault(), reviewSortColumns)
	page, args := pageClause(q, args)

	out := make([]review.Review, 0)
	err := r.observe("reviews.list", func() error {
		rows, err := r.db.Query(ctx, sql+page, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rv, err := scanReview(rows)
			if err != nil {
				return err
			}
			out = append(out, rv)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("reviews.list: %w", err)
	}
	return out, nil
}

func (r *ReviewsRepo) Replace(ctx context.Context, rv review.Review) (review.Review, error) {
	var saved review.Review
	err := r.observe("reviews.replace", func() error {
		var err error
		saved, err = scanReview(r.db.QueryRow(ctx,
			`UPDATE reviews SET review = $2, rating = $3 WHERE id = $1 RETURNING `+reviewColumns,
			rv.ID, rv.Review, rv.Rating))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, fmt.Errorf("reviews.replace: %w", err)
	}
	return saved, nil
}

func (r *ReviewsRepo) Delete(ctx context.Context, id string) (review.Review, error) {
	var deleted review.Review
	err := r.observe("reviews.delete", func() error {
		var err error
		deleted, err = scanReview(r.db.QueryRow(ctx,
			`DELETE FROM reviews WHERE id = $1 RETURNING `+reviewColumns, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.Review{}, review.ErrNotFound
		}
		return review.Review{}, fmt.Errorf("reviews.delete: %w", err)
	}
	return deleted, nil
}

func (r *ReviewsRepo) RatingSummary(ctx context.Context, tourID string) (review.RatingSummary, error) {
	var s review.RatingSummary
	err := r.observe("reviews.rating_summary", func() error {
		return r.db.QueryRow(ctx,
			`SELECT count(*)::int, coalesce(avg(rating), 0)::float8 FROM reviews WHERE tour_id = $1`,
			tourID,
		).Scan(&s.Quantity, &s.Average)
	})
	if err != nil {
		return review.RatingSummary{}, fmt.Errorf("reviews.rating_summary: %w", err)
	}
	return s, nil
}

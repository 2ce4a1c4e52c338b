package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tourColumns = `id, name, slug, duration, max_group_size, difficulty, ratings_average,
	ratings_quantity, price, price_discount, summary, description, image_cover, images,
	start_dates, secret_tour, start_location, locations, guides, created_at`

var tourSortColumns = map[string]string{
	"name":            "name",
	"slug":            "slug",
	"duration":        "duration",
	"maxGroupSize":    "max_group_size",
	"difficulty":      "difficulty",
	"ratingsAverage":  "ratings_average",
	"ratingsQuantity": "ratings_quantity",
	"price":           "price",
	"priceDiscount":   "price_discount",
	"createdAt":       "created_at",
}

type ToursRepo struct {
	base
}

func NewToursRepo(db DB, prom *observability.Prom) *ToursRepo {
	return &ToursRepo{base{db: db, prom: prom}}
}

func scanTour(row pgx.Row) (tour.Tour, error) {
	var (
		t             tour.Tour
		difficulty    string
		startLocation []byte
		locations     []byte
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &difficulty, &t.RatingsAverage,
		&t.RatingsQuantity, &t.Price, &t.PriceDiscount, &t.Summary, &t.Description, &t.ImageCover, &t.Images,
		&t.StartDates, &t.SecretTour, &startLocation, &locations, &t.Guides, &t.CreatedAt,
	)
	if err != nil {
		return tour.Tour{}, err
	}

	t.Difficulty = tour.Difficulty(difficulty)
	if len(startLocation) > 0 && string(startLocation) != "null" {
		var loc tour.Location
		if err := json.Unmarshal(startLocation, &loc); err != nil {
			return tour.Tour{}, fmt.Errorf("decode start_location: %w", err)
		}
		t.StartLocation = &loc
	}
	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &t.Locations); err != nil {
			return tour.Tour{}, fmt.Errorf("decode locations: %w", err)
		}
	}
	return t, nil
}

// tourArgs returns the write columns of t in tourColumns order, id first.
func tourArgs(t tour.Tour) ([]any, error) {
	var startLocation []byte
	if t.StartLocation != nil {
		b, err := json.Marshal(t.StartLocation)
		if err != nil {
			return nil, err
		}
		startLocation = b
	}

	locations := t.Locations
	if locations == nil {
		locations = []tour.Location{}
	}
	locJSON, err := json.Marshal(locations)
	if err != nil {
		return nil, err
	}

	return []any{
		t.ID, t.Name, t.Slug, t.Duration, t.MaxGroupSize, string(t.Difficulty), t.RatingsAverage,
		t.RatingsQuantity, t.Price, t.PriceDiscount, t.Summary, t.Description, t.ImageCover, t.Images,
		t.StartDates, t.SecretTour, startLocation, locJSON, t.Guides, t.CreatedAt,
	}, nil
}

func (r *ToursRepo) Create(ctx context.Context, t tour.Tour) (tour.Tour, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	args, err := tourArgs(t)
	if err != nil {
		return tour.Tour{}, fmt.Errorf("tours.create: %w", err)
	}

	err = r.observe("tours.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO tours (`+tourColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
			args...,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return tour.Tour{}, tour.ErrNameTaken
		}
		return tour.Tour{}, fmt.Errorf("tours.create: %w", err)
	}
	return t, nil
}

func (r *ToursRepo) GetByID(ctx context.Context, id string) (tour.Tour, error) {
	var t tour.Tour
	err := r.observe("tours.get_by_id", func() error {
		var err error
		t, err = scanTour(r.db.QueryRow(ctx,
			`SELECT `+tourColumns+` FROM tours WHERE id = $1 AND NOT secret_tour`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tour.Tour{}, tour.ErrNotFound
		}
		return tour.Tour{}, fmt.Errorf("tours.get_by_id: %w", err)
	}
	return t, nil
}

func (r *ToursRepo) List(ctx context.Context, q query.List) ([]tour.Tour, error) {
	where, args := whereClause([]string{"NOT secret_tour"}, q.Conditions, tourSortColumns, nil)
	sql := `SELECT ` + tourColumns + ` FROM tours` + where + orderClause(q.SortOrDefault(), tourSortColumns)
	page, args := pageClause(q, args)

	out := make([]tour.Tour, 0)
	err := r.observe("tours.list", func() error {
		rows, err := r.db.Query(ctx, sql+page, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTour(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("tours.list: %w", err)
	}
	return out, nil
}

func (r *ToursRepo) Replace(ctx context.Context, t tour.Tour) (tour.Tour, error) {
	args, err := tourArgs(t)
	if err != nil {
		return tour.Tour{}, fmt.Errorf("tours.replace: %w", err)
	}

	var saved tour.Tour
	err = r.observe("tours.replace", func() error {
		var err error
		saved, err = scanTour(r.db.QueryRow(ctx,
			`UPDATE tours SET
				name = $2, slug = $3, duration = $4, max_group_size = $5, difficulty = $6,
				ratings_average = $7, ratings_quantity = $8, price = $9, price_discount = $10,
				summary = $11, description = $12, image_cover = $13, images = $14, start_dates = $15,
				secret_tour = $16, start_location = $17, locations = $18, guides = $19
			WHERE id = $1
			RETURNING `+tourColumns,
			args[:19]...,
		))
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return tour.Tour{}, tour.ErrNotFound
		case IsUniqueViolation(err):
			return tour.Tour{}, tour.ErrNameTaken
		}
		return tour.Tour{}, fmt.Errorf("tours.replace: %w", err)
	}
	return saved, nil
}

func (r *ToursRepo) Delete(ctx context.Context, id string) error {
	var affected int64
	err := r.observe("tours.delete", func() error {
		tag, err := r.db.Exec(ctx, `DELETE FROM tours WHERE id = $1 AND NOT secret_tour`, id)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("tours.delete: %w", err)
	}
	if affected == 0 {
		return tour.ErrNotFound
	}
	return nil
}

func (r *ToursRepo) SetRatings(ctx context.Context, id string, quantity int, average float64) error {
	var affected int64
	err := r.observe("tours.set_ratings", func() error {
		tag, err := r.db.Exec(ctx,
			`UPDATE tours SET ratings_quantity = $2, ratings_average = $3 WHERE id = $1`,
			id, quantity, tour.RoundRating(average))
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("tours.set_ratings: %w", err)
	}
	if affected == 0 {
		return tour.ErrNotFound
	}
	return nil
}

func (r *ToursRepo) Stats(ctx context.Context) ([]tour.DifficultyStats, error) {
	out := make([]tour.DifficultyStats, 0)

	err := r.observe("tours.stats", func() error {
		rows, err := r.db.Query(ctx,
			`SELECT upper(difficulty) AS difficulty,
				count(*)::int,
				coalesce(sum(ratings_quantity), 0)::int,
				avg(ratings_average),
				avg(price),
				min(price),
				max(price)
			FROM tours
			WHERE NOT secret_tour AND ratings_average >= $1
			GROUP BY upper(difficulty)
			ORDER BY avg(price) ASC`,
			tour.StatsMinRating,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s tour.DifficultyStats
			if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("tours.stats: %w", err)
	}
	return out, nil
}

func (r *ToursRepo) MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlan, error) {
	start, end := tour.YearBounds(year)
	out := make([]tour.MonthlyPlan, 0)

	err := r.observe("tours.monthly_plan", func() error {
		rows, err := r.db.Query(ctx,
			`SELECT extract(month FROM sd AT TIME ZONE 'UTC')::int AS month,
				count(*)::int AS num_tour_starts,
				array_agg(t.name ORDER BY t.name) AS tours
			FROM tours t, unnest(t.start_dates) AS sd
			WHERE NOT t.secret_tour AND sd >= $1 AND sd < $2
			GROUP BY month
			ORDER BY num_tour_starts DESC, month ASC
			LIMIT 12`,
			start, end,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p tour.MonthlyPlan
			if err := rows.Scan(&p.Month, &p.NumTourStarts, &p.Tours); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("tours.monthly_plan: %w", err)
	}
	return out, nil
}

package memory

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTour(t *testing.T, r *ToursRepo, name string, difficulty tour.Difficulty, price, rating float64, secret bool, starts ...time.Time) tour.Tour {
	t.Helper()
	tr := tour.Tour{
		Name:           name,
		Duration:       5,
		MaxGroupSize:   10,
		Difficulty:     difficulty,
		Price:          price,
		RatingsAverage: rating,
		SecretTour:     secret,
		StartDates:     starts,
	}
	tour.BeforeSave(&tr)
	created, err := r.Create(context.Background(), tr)
	require.NoError(t, err)
	return created
}

func TestToursRepo_SecretToursAreHidden(t *testing.T) {
	ctx := context.Background()
	r := NewToursRepo()
	secret := seedTour(t, r, "The Secret Valley", tour.Easy, 100, 4.8, true)
	seedTour(t, r, "The Open Valley", tour.Easy, 100, 4.8, false)

	_, err := r.GetByID(ctx, secret.ID)
	assert.ErrorIs(t, err, tour.ErrNotFound)

	list, err := r.List(ctx, query.List{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "The Open Valley", list[0].Name)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].NumTours)
}

func TestToursRepo_DuplicateName(t *testing.T) {
	r := NewToursRepo()
	seedTour(t, r, "The Forest Hiker", tour.Easy, 100, 4.5, false)

	_, err := r.Create(context.Background(), tour.Tour{Name: "The Forest Hiker"})
	assert.ErrorIs(t, err, tour.ErrNameTaken)
}

func TestToursRepo_ListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	r := NewToursRepo()
	seedTour(t, r, "The Sea Explorer", tour.Medium, 497, 4.8, false)
	seedTour(t, r, "The Forest Hiker", tour.Easy, 397, 4.7, false)
	seedTour(t, r, "The Snow Adventurer", tour.Difficult, 997, 4.5, false)

	q, err := query.Parse(url.Values{"price[lt]": {"900"}, "sort": {"price"}}, tour.QuerySchema)
	require.NoError(t, err)

	list, err := r.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "The Forest Hiker", list[0].Name)
	assert.Equal(t, "The Sea Explorer", list[1].Name)

	q, err = query.Parse(url.Values{"limit": {"5"}, "sort": {"-ratingsAverage,price"}}, tour.QuerySchema)
	require.NoError(t, err)
	list, err = r.List(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "The Sea Explorer", list[0].Name)
}

func TestToursRepo_StatsAndMonthlyPlan(t *testing.T) {
	ctx := context.Background()
	r := NewToursRepo()
	jan := time.Date(2021, 1, 10, 9, 0, 0, 0, time.UTC)
	mar := time.Date(2021, 3, 5, 9, 0, 0, 0, time.UTC)
	other := time.Date(2022, 3, 5, 9, 0, 0, 0, time.UTC)

	seedTour(t, r, "The Sea Explorer", tour.Medium, 500, 4.8, false, mar)
	seedTour(t, r, "The Forest Hiker", tour.Easy, 300, 4.7, false, jan, mar, other)
	seedTour(t, r, "The City Wanderer", tour.Easy, 100, 4.6, false)
	seedTour(t, r, "The Low Rated Tour", tour.Easy, 50, 3.0, false)

	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "EASY", stats[0].Difficulty)
	assert.Equal(t, 2, stats[0].NumTours)
	assert.Equal(t, 200.0, stats[0].AvgPrice)
	assert.Equal(t, 100.0, stats[0].MinPrice)
	assert.Equal(t, 300.0, stats[0].MaxPrice)
	assert.Equal(t, "MEDIUM", stats[1].Difficulty)

	plan, err := r.MonthlyPlan(ctx, 2021)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, 3, plan[0].Month)
	assert.Equal(t, 2, plan[0].NumTourStarts)
	assert.ElementsMatch(t, []string{"The Sea Explorer", "The Forest Hiker"}, plan[0].Tours)
	assert.Equal(t, 1, plan[1].Month)
}

func TestReviewsRepo_UniqueAndSummary(t *testing.T) {
	ctx := context.Background()
	r := NewReviewsRepo()

	_, err := r.Create(ctx, review.Review{Review: "great", Rating: 5, TourID: "t1", UserID: "u1"})
	require.NoError(t, err)
	_, err = r.Create(ctx, review.Review{Review: "again", Rating: 1, TourID: "t1", UserID: "u1"})
	assert.ErrorIs(t, err, review.ErrDuplicate)

	second, err := r.Create(ctx, review.Review{Review: "ok", Rating: 4, TourID: "t1", UserID: "u2"})
	require.NoError(t, err)

	s, err := r.RatingSummary(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Quantity)
	assert.Equal(t, 4.5, s.Average)

	q, err := query.Parse(url.Values{"tour": {"t1"}, "rating[lt]": {"5"}}, review.QuerySchema)
	require.NoError(t, err)
	list, err := r.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)

	deleted, err := r.Delete(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "t1", deleted.TourID)

	s, err = r.RatingSummary(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Quantity)
}

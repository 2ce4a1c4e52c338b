package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/google/uuid"
)

// ToursRepo keeps tours in process. Secret tours are hidden from every read
// and aggregation, as in the database stores.
type ToursRepo struct {
	mu    sync.RWMutex
	items map[string]tour.Tour
}

func NewToursRepo() *ToursRepo {
	return &ToursRepo{items: make(map[string]tour.Tour)}
}

func cloneTour(t tour.Tour) tour.Tour {
	t.Images = slices.Clone(t.Images)
	t.StartDates = slices.Clone(t.StartDates)
	t.Guides = slices.Clone(t.Guides)
	t.Locations = slices.Clone(t.Locations)
	if t.StartLocation != nil {
		loc := *t.StartLocation
		t.StartLocation = &loc
	}
	if t.PriceDiscount != nil {
		d := *t.PriceDiscount
		t.PriceDiscount = &d
	}
	return t
}

func (r *ToursRepo) nameTaken(name, exceptID string) bool {
	for id, t := range r.items {
		if id != exceptID && t.Name == name {
			return true
		}
	}
	return false
}

func (r *ToursRepo) Create(_ context.Context, t tour.Tour) (tour.Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(t.Name, "") {
		return tour.Tour{}, tour.ErrNameTaken
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.items[t.ID] = cloneTour(t)
	return cloneTour(t), nil
}

func (r *ToursRepo) GetByID(_ context.Context, id string) (tour.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok || t.SecretTour {
		return tour.Tour{}, tour.ErrNotFound
	}
	return cloneTour(t), nil
}

func (r *ToursRepo) List(_ context.Context, q query.List) ([]tour.Tour, error) {
	return apply(r.public(), q), nil
}

func (r *ToursRepo) public() []tour.Tour {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tour.Tour, 0, len(r.items))
	for _, t := range r.items {
		if !t.SecretTour {
			out = append(out, cloneTour(t))
		}
	}
	return out
}

func (r *ToursRepo) Replace(_ context.Context, t tour.Tour) (tour.Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[t.ID]
	if !ok {
		return tour.Tour{}, tour.ErrNotFound
	}
	if r.nameTaken(t.Name, t.ID) {
		return tour.Tour{}, tour.ErrNameTaken
	}
	t.CreatedAt = cur.CreatedAt
	r.items[t.ID] = cloneTour(t)
	return cloneTour(t), nil
}

func (r *ToursRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok || t.SecretTour {
		return tour.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ToursRepo) SetRatings(_ context.Context, id string, quantity int, average float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.items[id]
	if !ok {
		return tour.ErrNotFound
	}
	t.RatingsQuantity = quantity
	t.RatingsAverage = tour.RoundRating(average)
	r.items[id] = t
	return nil
}

func (r *ToursRepo) Stats(_ context.Context) ([]tour.DifficultyStats, error) {
	groups := map[string]*tour.DifficultyStats{}
	sums := map[string][2]float64{} // rating, price

	for _, t := range r.public() {
		if t.RatingsAverage < tour.StatsMinRating {
			continue
		}
		key := strings.ToUpper(string(t.Difficulty))
		g, ok := groups[key]
		if !ok {
			g = &tour.DifficultyStats{Difficulty: key, MinPrice: t.Price, MaxPrice: t.Price}
			groups[key] = g
		}
		g.NumTours++
		g.NumRatings += t.RatingsQuantity
		g.MinPrice = min(g.MinPrice, t.Price)
		g.MaxPrice = max(g.MaxPrice, t.Price)

		s := sums[key]
		sums[key] = [2]float64{s[0] + t.RatingsAverage, s[1] + t.Price}
	}

	out := make([]tour.DifficultyStats, 0, len(groups))
	for key, g := range groups {
		n := float64(g.NumTours)
		g.AvgRating = sums[key][0] / n
		g.AvgPrice = sums[key][1] / n
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AvgPrice < out[j].AvgPrice })
	return out, nil
}

func (r *ToursRepo) MonthlyPlan(_ context.Context, year int) ([]tour.MonthlyPlan, error) {
	start, end := tour.YearBounds(year)
	months := map[int]*tour.MonthlyPlan{}

	for _, t := range r.public() {
		for _, d := range t.StartDates {
			d = d.UTC()
			if d.Before(start) || !d.Before(end) {
				continue
			}
			m := int(d.Month())
			p, ok := months[m]
			if !ok {
				p = &tour.MonthlyPlan{Month: m}
				months[m] = p
			}
			p.NumTourStarts++
			p.Tours = append(p.Tours, t.Name)
		}
	}

	out := make([]tour.MonthlyPlan, 0, len(months))
	for _, p := range months {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NumTourStarts != out[j].NumTourStarts {
			return out[i].NumTourStarts > out[j].NumTourStarts
		}
		return out[i].Month < out[j].Month
	})
	if len(out) > 12 {
		out = out[:12]
	}
	return out, nil
}

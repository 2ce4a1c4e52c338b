package handlers

import (
	"context"

	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/domain/user"
)

// tourListView adds derived fields to a tour.
type tourListView struct {
	tour.Tour
	DurationWeeks float64 `json:"durationWeeks"`
}

// tourDetailView replaces guide ids with their identities.
type tourDetailView struct {
	tour.Tour
	DurationWeeks float64       `json:"durationWeeks"`
	Guides        []user.Public `json:"guides"`
	Reviews       []reviewView  `json:"reviews"`
}

// reviewView replaces the author id with the author. Inactive authors
// render as null.
type reviewView struct {
	review.Review
	User *user.Public `json:"user"`
}

func listView(t tour.Tour) tourListView {
	return tourListView{Tour: t, DurationWeeks: t.DurationWeeks()}
}

func listViews(ts []tour.Tour) []tourListView {
	out := make([]tourListView, 0, len(ts))
	for _, t := range ts {
		out = append(out, listView(t))
	}
	return out
}

// usersByID loads the active identities among ids, keyed by id.
func usersByID(ctx context.Context, users UsersStore, ids []string) (map[string]user.User, error) {
	out := make(map[string]user.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	found, err := users.GetMany(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		out[u.ID] = u
	}
	return out, nil
}

// populateGuides keeps the order of ids and drops unknown guides.
func populateGuides(ctx context.Context, users UsersStore, ids []string) ([]user.Public, error) {
	byID, err := usersByID(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]user.Public, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u.Public())
		}
	}
	return out, nil
}

func populateAuthors(ctx context.Context, users UsersStore, rvs []review.Review) ([]reviewView, error) {
	ids := make([]string, 0, len(rvs))
	for _, rv := range rvs {
		ids = append(ids, rv.UserID)
	}

	byID, err := usersByID(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	out := make([]reviewView, 0, len(rvs))
	for _, rv := range rvs {
		out = append(out, reviewView{Review: rv, User: author(byID, rv.UserID)})
	}
	return out, nil
}

func author(byID map[string]user.User, id string) *user.Public {
	u, ok := byID[id]
	if !ok {
		return nil
	}
	return &user.Public{ID: u.ID, Name: u.Name, Photo: u.Photo}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

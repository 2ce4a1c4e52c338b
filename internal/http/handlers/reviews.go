package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/tourhub/internal/cache"
	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/geocoder89/tourhub/internal/http/middlewares"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/gin-gonic/gin"
)

type ReviewsHandler struct {
	reviews ReviewsStore
	tours   ToursStore
	users   UsersStore
	cache   readCache
	log     *slog.Logger
	now     func() time.Time
}

// NewReviewsHandler wires the review routes. c is the tour cache, dropped
// whenever a rating changes; it may be nil.
func NewReviewsHandler(s Stores, c cache.Cache, log *slog.Logger) *ReviewsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ReviewsHandler{
		reviews: s.Reviews,
		tours:   s.Tours,
		users:   s.Users,
		cache:   readCache{c: c, log: log},
		log:     log,
		now:     time.Now,
	}
}

// List serves /reviews, optionally filtered with ?tour=.
func (h *ReviewsHandler) List(ctx *gin.Context) {
	h.list(ctx, "")
}

// ListForTour serves /tours/:id/reviews.
func (h *ReviewsHandler) ListForTour(ctx *gin.Context) {
	h.list(ctx, ctx.Param("id"))
}

func (h *ReviewsHandler) list(ctx *gin.Context, tourID string) {
	q, err := query.Parse(ctx.Request.URL.Query(), review.QuerySchema)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	if tourID != "" {
		q.Conditions = append(q.Conditions, query.Condition{Field: "tour", Op: query.Eq, Value: tourID})
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	rvs, err := h.reviews.List(cctx, q)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	views, err := populateAuthors(cctx, h.users, rvs)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	items, err := query.ProjectAll(views, q.Fields)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondList(ctx, items)
}

// Create serves POST /reviews with the tour in the body.
func (h *ReviewsHandler) Create(ctx *gin.Context) {
	h.create(ctx, "")
}

// CreateForTour serves POST /tours/:id/reviews.
func (h *ReviewsHandler) CreateForTour(ctx *gin.Context) {
	h.create(ctx, ctx.Param("id"))
}

// create always records the caller as the author.
func (h *ReviewsHandler) create(ctx *gin.Context, tourID string) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondError(ctx, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
		return
	}

	var req review.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if tourID != "" {
		req.TourID = tourID
	}
	if req.TourID == "" {
		RespondBadRequest(ctx, "Review must belong to a tour.", gin.H{"fields": []gin.H{{"field": "tour", "message": "is required"}}})
		return
	}
	req.UserID = current.ID

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	if _, err := h.tours.GetByID(cctx, req.TourID); err != nil {
		RespondError(ctx, err)
		return
	}

	created, err := h.reviews.Create(cctx, review.NewFromCreateRequest(req, h.now().UTC()))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.afterWrite(ctx, created.TourID)
	RespondData(ctx, http.StatusCreated, "data", reviewView{Review: created, User: authorOf(current)})
}

func (h *ReviewsHandler) Get(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	rv, err := h.reviews.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	views, err := populateAuthors(cctx, h.users, []review.Review{rv})
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondData(ctx, http.StatusOK, "data", views[0])
}

func (h *ReviewsHandler) Update(ctx *gin.Context) {
	var req review.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	rv, ok := h.loadOwned(ctx, cctx)
	if !ok {
		return
	}

	req.Apply(&rv)
	updated, err := h.reviews.Replace(cctx, rv)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.afterWrite(ctx, updated.TourID)

	views, err := populateAuthors(cctx, h.users, []review.Review{updated})
	if err != nil {
		RespondError(ctx, err)
		return
	}
	RespondData(ctx, http.StatusOK, "data", views[0])
}

func (h *ReviewsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	rv, ok := h.loadOwned(ctx, cctx)
	if !ok {
		return
	}

	deleted, err := h.reviews.Delete(cctx, rv.ID)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.afterWrite(ctx, deleted.TourID)
	RespondNoContent(ctx)
}

// loadOwned fetches the review named in the path and checks that the caller
// wrote it or is an admin.
func (h *ReviewsHandler) loadOwned(ctx *gin.Context, cctx context.Context) (review.Review, bool) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondError(ctx, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
		return review.Review{}, false
	}

	rv, err := h.reviews.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return review.Review{}, false
	}

	if rv.UserID != current.ID && !current.HasRole(user.RoleAdmin) {
		RespondError(ctx, apierr.Forbidden("You do not have permission to perform this action."))
		return review.Review{}, false
	}
	return rv, true
}

// afterWrite recomputes the tour's ratings and drops cached tours. The review
// write already succeeded, so failures here are logged only.
func (h *ReviewsHandler) afterWrite(ctx *gin.Context, tourID string) {
	if err := h.recomputeRatings(ctx.Request.Context(), tourID); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reviews.recompute_ratings_failed",
			"tour_id", tourID,
			"err", err,
		)
	}
	h.cache.invalidateTours(ctx.Request.Context())
}

// recomputeRatings refreshes a tour's rating fields from its reviews. A tour
// deleted in the meantime is not an error.
func (h *ReviewsHandler) recomputeRatings(ctx context.Context, tourID string) error {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	sum, err := h.reviews.RatingSummary(cctx, tourID)
	if err != nil {
		return err
	}

	average := sum.Average
	if sum.Quantity == 0 {
		average = tour.DefaultRatingsAverage
	}

	err = h.tours.SetRatings(cctx, tourID, sum.Quantity, average)
	if err != nil && !errors.Is(err, tour.ErrNotFound) {
		return err
	}
	return nil
}

func authorOf(u user.User) *user.Public {
	return &user.Public{ID: u.ID, Name: u.Name, Photo: u.Photo}
}

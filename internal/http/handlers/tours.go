package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/tourhub/internal/cache"
	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/geocoder89/tourhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ToursHandler struct {
	tours   ToursStore
	reviews ReviewsStore
	users   UsersStore
	cache   readCache
	now     func() time.Time
}

// NewToursHandler wires the tour routes. c may be nil to disable caching.
func NewToursHandler(s Stores, c cache.Cache, log *slog.Logger) *ToursHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ToursHandler{
		tours:   s.Tours,
		reviews: s.Reviews,
		users:   s.Users,
		cache:   readCache{c: c, log: log},
		now:     time.Now,
	}
}

// AliasTopTours rewrites the query to the five best rated, cheapest tours.
func (h *ToursHandler) AliasTopTours(ctx *gin.Context) {
	q := ctx.Request.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	ctx.Request.URL.RawQuery = q.Encode()
	ctx.Next()
}

func (h *ToursHandler) List(ctx *gin.Context) {
	values := ctx.Request.URL.Query()

	q, err := query.Parse(values, tour.QuerySchema)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	key := utils.BuildToursListCacheKey(values)
	var items []any
	if h.cache.get(ctx.Request.Context(), key, &items) {
		RespondList(ctx, items)
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	tours, err := h.tours.List(cctx, q)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	items, err = query.ProjectAll(listViews(tours), q.Fields)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.cache.set(ctx.Request.Context(), key, items)
	RespondList(ctx, items)
}

// Get returns one tour with its guides and reviews.
func (h *ToursHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	key := utils.BuildTourCacheKey(id)

	var view tourDetailView
	if h.cache.get(ctx.Request.Context(), key, &view) {
		RespondDataWithETag(ctx, "data", view)
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	t, err := h.tours.GetByID(cctx, id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	guides, err := populateGuides(cctx, h.users, t.Guides)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	rvs, err := h.reviews.List(cctx, query.List{
		Conditions: []query.Condition{{Field: "tour", Op: query.Eq, Value: t.ID}},
		Sort:       []query.SortField{{Field: "createdAt", Desc: true}},
		Page:       1,
		Limit:      query.MaxLimit,
	})
	if err != nil {
		RespondError(ctx, err)
		return
	}
	reviews, err := populateAuthors(cctx, h.users, rvs)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	view = tourDetailView{
		Tour:          t,
		DurationWeeks: t.DurationWeeks(),
		Guides:        guides,
		Reviews:       reviews,
	}

	h.cache.set(ctx.Request.Context(), key, view)
	RespondDataWithETag(ctx, "data", view)
}

func (h *ToursHandler) Create(ctx *gin.Context) {
	var req tour.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	t := tour.NewFromCreateRequest(req, h.now().UTC())
	if err := t.Validate(); err != nil {
		RespondError(ctx, err)
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	created, err := h.tours.Create(cctx, t)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.cache.invalidateTours(ctx.Request.Context())
	RespondData(ctx, http.StatusCreated, "data", listView(created))
}

func (h *ToursHandler) Update(ctx *gin.Context) {
	var req tour.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	t, err := h.tours.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	req.Apply(&t)
	if err := t.Validate(); err != nil {
		RespondError(ctx, err)
		return
	}

	updated, err := h.tours.Replace(cctx, t)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	h.cache.invalidateTours(ctx.Request.Context())
	RespondData(ctx, http.StatusOK, "data", listView(updated))
}

func (h *ToursHandler) Delete(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	if err := h.tours.Delete(cctx, ctx.Param("id")); err != nil {
		RespondError(ctx, err)
		return
	}

	h.cache.invalidateTours(ctx.Request.Context())
	RespondNoContent(ctx)
}

func (h *ToursHandler) Stats(ctx *gin.Context) {
	key := utils.BuildTourStatsCacheKey()

	var stats []tour.DifficultyStats
	if !h.cache.get(ctx.Request.Context(), key, &stats) {
		cctx, cancel := requestCtx(ctx, 5*time.Second)
		defer cancel()

		var err error
		stats, err = h.tours.Stats(cctx)
		if err != nil {
			RespondError(ctx, err)
			return
		}
		h.cache.set(ctx.Request.Context(), key, stats)
	}

	RespondData(ctx, http.StatusOK, "stats", stats)
}

func (h *ToursHandler) MonthlyPlan(ctx *gin.Context) {
	year, err := strconv.Atoi(ctx.Param("year"))
	if err != nil || year < 1970 || year > 9999 {
		RespondBadRequest(ctx, "Invalid year: "+ctx.Param("year"), nil)
		return
	}

	key := utils.BuildMonthlyPlanCacheKey(year)

	var plan []tour.MonthlyPlan
	if !h.cache.get(ctx.Request.Context(), key, &plan) {
		cctx, cancel := requestCtx(ctx, 5*time.Second)
		defer cancel()

		plan, err = h.tours.MonthlyPlan(cctx, year)
		if err != nil {
			RespondError(ctx, err)
			return
		}
		h.cache.set(ctx.Request.Context(), key, plan)
	}

	RespondData(ctx, http.StatusOK, "plan", plan)
}


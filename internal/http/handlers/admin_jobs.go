package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/geocoder89/tourhub/internal/queue"
	"github.com/gin-gonic/gin"
)

type AdminJobsQueue interface {
	Stats(ctx context.Context) (queue.Stats, error)
	ListDead(ctx context.Context, limit int) ([]jobs.Job, error)
	RequeueDead(ctx context.Context, limit int) (int, error)
}

type AdminJobsHandler struct {
	queue AdminJobsQueue
}

func NewAdminJobsHandler(q AdminJobsQueue) *AdminJobsHandler {
	return &AdminJobsHandler{queue: q}
}

// Stats serves GET /admin/jobs/stats.
func (h *AdminJobsHandler) Stats(ctx *gin.Context) {
	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	s, err := h.queue.Stats(cctx)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	RespondData(ctx, http.StatusOK, "stats", s)
}

// ListDead serves GET /admin/jobs/dead?limit=20.
func (h *AdminJobsHandler) ListDead(ctx *gin.Context) {
	limit, ok := parseLimit(ctx, 20)
	if !ok {
		return
	}

	cctx, cancel := requestCtx(ctx, 2*time.Second)
	defer cancel()

	items, err := h.queue.ListDead(cctx, limit)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	out := make([]any, 0, len(items))
	for _, j := range items {
		out = append(out, j)
	}
	RespondList(ctx, out)
}

// RequeueDead serves POST /admin/jobs/dead/requeue?limit=50.
func (h *AdminJobsHandler) RequeueDead(ctx *gin.Context) {
	limit, ok := parseLimit(ctx, 50)
	if !ok {
		return
	}

	cctx, cancel := requestCtx(ctx, 3*time.Second)
	defer cancel()

	n, err := h.queue.RequeueDead(cctx, limit)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"requeued": n,
	})
}

func parseLimit(ctx *gin.Context, fallback int) (int, bool) {
	raw := ctx.Query("limit")
	if raw == "" {
		return fallback, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 100 {
		RespondBadRequest(ctx, "limit must be between 1 and 100", gin.H{"param": "limit"})
		return 0, false
	}
	return n, true
}

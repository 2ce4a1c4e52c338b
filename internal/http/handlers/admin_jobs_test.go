package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/http/handlers"
	"github.com/geocoder89/tourhub/internal/http/middlewares"
	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/geocoder89/tourhub/internal/queue"
	"github.com/gin-gonic/gin"
)

type fakeAdminQueue struct {
	stats      queue.Stats
	dead       []jobs.Job
	err        error
	lastLimit  int
	requeueCnt int
}

func (f *fakeAdminQueue) Stats(context.Context) (queue.Stats, error) {
	return f.stats, f.err
}

func (f *fakeAdminQueue) ListDead(_ context.Context, limit int) ([]jobs.Job, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.dead) {
		return f.dead[:limit], nil
	}
	return f.dead, nil
}

func (f *fakeAdminQueue) RequeueDead(_ context.Context, limit int) (int, error) {
	f.lastLimit = limit
	return f.requeueCnt, f.err
}

func adminJobsRouter(q handlers.AdminJobsQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewAdminJobsHandler(q)
	r := gin.New()
	r.Use(middlewares.ErrorHandler(config.EnvTest, slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.GET("/admin/jobs/stats", h.Stats)
	r.GET("/admin/jobs/dead", h.ListDead)
	r.POST("/admin/jobs/dead/requeue", h.RequeueDead)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestAdminJobs_Stats(t *testing.T) {
	q := &fakeAdminQueue{stats: queue.Stats{Ready: 3, Delayed: 1, Dead: 2}}
	w := serve(adminJobsRouter(q), http.MethodGet, "/admin/jobs/stats")

	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Stats queue.Stats `json:"stats"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Stats != q.stats {
		t.Fatalf("stats = %+v, want %+v", resp.Data.Stats, q.stats)
	}
}

func TestAdminJobs_ListDeadLimits(t *testing.T) {
	q := &fakeAdminQueue{dead: []jobs.Job{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	r := adminJobsRouter(q)

	w := serve(r, http.MethodGet, "/admin/jobs/dead")
	if w.Code != http.StatusOK || q.lastLimit != 20 {
		t.Fatalf("default limit: code=%d limit=%d", w.Code, q.lastLimit)
	}

	w = serve(r, http.MethodGet, "/admin/jobs/dead?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Results int `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Results != 2 {
		t.Fatalf("results = %d, want 2", resp.Results)
	}

	for _, bad := range []string{"0", "101", "many"} {
		w = serve(r, http.MethodGet, "/admin/jobs/dead?limit="+bad)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s: got %d", bad, w.Code)
		}
	}
}

func TestAdminJobs_Requeue(t *testing.T) {
	q := &fakeAdminQueue{requeueCnt: 4}
	w := serve(adminJobsRouter(q), http.MethodPost, "/admin/jobs/dead/requeue")

	if w.Code != http.StatusOK {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
	if q.lastLimit != 50 {
		t.Fatalf("default requeue limit = %d", q.lastLimit)
	}

	var resp struct {
		Requeued int `json:"requeued"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Requeued != 4 {
		t.Fatalf("requeued = %d", resp.Requeued)
	}
}

func TestAdminJobs_QueueErrorIsInternal(t *testing.T) {
	q := &fakeAdminQueue{err: errors.New("redis down")}
	w := serve(adminJobsRouter(q), http.MethodGet, "/admin/jobs/stats")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d body=%s", w.Code, w.Body.String())
	}
}

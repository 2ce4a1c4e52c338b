package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/tourhub/internal/auth"
	"github.com/geocoder89/tourhub/internal/cache"
	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/db"
	"github.com/geocoder89/tourhub/internal/domain/user"
	httpx "github.com/geocoder89/tourhub/internal/http"
	"github.com/geocoder89/tourhub/internal/notifications"
	"github.com/geocoder89/tourhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@tourhub.test"
	adminPassword = "admin-pass-123"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, notifications.Message) error { return nil }

type api struct {
	t      *testing.T
	router *gin.Engine
}

func testConfig() config.Config {
	return config.Config{
		Env:             config.EnvTest,
		JWTSecret:       "integration-secret",
		JWTExpiresIn:    time.Hour,
		JWTCookieDays:   1,
		ResetTokenTTL:   10 * time.Minute,
		RateLimitWindow: time.Hour,
		BodyLimitBytes:  10 << 10,
		CacheTTL:        time.Minute,
		AdminEmail:      adminEmail,
		AdminPassword:   adminPassword,
		AdminName:       "Site Admin",
	}
}

func newAPI(t *testing.T, mutate func(*config.Config)) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	backend := db.OpenMemory()
	hasher := security.NewHasher(4)

	_, err := db.EnsureAdminUser(context.Background(), backend.Stores.Users, user.SaveHooks(hasher, time.Now), cfg)
	require.NoError(t, err)

	router := httpx.NewRouter(httpx.Deps{
		Cfg:      cfg,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Stores:   backend.Stores,
		Tokens:   auth.NewManager(cfg.JWTSecret, cfg.JWTExpiresIn),
		Hasher:   hasher,
		Mailer:   nopMailer{},
		Cache:    cache.NewLocal(cfg.CacheTTL),
		Gatherer: prometheus.NewRegistry(),
	})

	return &api{t: t, router: router}
}

func (a *api) do(method, path, token string, body any, header ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) expect(w *httptest.ResponseRecorder, status int) map[string]any {
	a.t.Helper()
	require.Equalf(a.t, status, w.Code, "body=%s", w.Body.String())

	if w.Body.Len() == 0 {
		return nil
	}
	var out map[string]any
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	out := a.expect(a.do(http.MethodPost, "/api/v1/users/login", "", gin.H{"email": email, "password": password}), http.StatusOK)
	return out["token"].(string)
}

// signup returns the new identity's token and id.
func (a *api) signup(name, email string) (string, string) {
	a.t.Helper()
	out := a.expect(a.do(http.MethodPost, "/api/v1/users/signup", "", gin.H{
		"name": name, "email": email, "password": "pass1234", "passwordConfirm": "pass1234",
	}), http.StatusCreated)
	u := out["data"].(map[string]any)["user"].(map[string]any)
	return out["token"].(string), u["id"].(string)
}

func data(out map[string]any) map[string]any {
	return out["data"].(map[string]any)["data"].(map[string]any)
}

func list(out map[string]any) []any {
	return out["data"].(map[string]any)["data"].([]any)
}

func tourBody(name string, price float64, difficulty string) gin.H {
	return gin.H{
		"name":         name,
		"duration":     7,
		"maxGroupSize": 10,
		"difficulty":   difficulty,
		"price":        price,
		"summary":      "A walk through the hills",
		"imageCover":   "cover.jpg",
		"startDates":   []string{"2026-04-25T09:00:00Z", "2026-07-20T09:00:00Z"},
	}
}

func (a *api) createTour(token, name string, price float64, difficulty string) string {
	a.t.Helper()
	out := a.expect(a.do(http.MethodPost, "/api/v1/tours", token, tourBody(name, price, difficulty)), http.StatusCreated)
	return data(out)["id"].(string)
}

func TestOpsEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	out := a.expect(a.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)
	require.Equal(t, "ok", out["status"])

	out = a.expect(a.do(http.MethodGet, "/readyz", "", nil), http.StatusOK)
	require.Equal(t, "ready", out["status"])

	w := a.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	out = a.expect(w, http.StatusNotFound)
	require.Equal(t, "fail", out["status"])
	require.Contains(t, out["message"], "/api/v1/nowhere")
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAccessGuardAndRoleGate(t *testing.T) {
	a := newAPI(t, nil)
	userTok, _ := a.signup("Ana Lima", "ana@example.com")

	a.expect(a.do(http.MethodGet, "/api/v1/users/me", "", nil), http.StatusUnauthorized)
	a.expect(a.do(http.MethodGet, "/api/v1/users/me", "not-a-token", nil), http.StatusUnauthorized)
	a.expect(a.do(http.MethodGet, "/api/v1/users/me", userTok, nil), http.StatusOK)

	out := a.expect(a.do(http.MethodGet, "/api/v1/users", userTok, nil), http.StatusForbidden)
	require.Equal(t, "You do not have permission to perform this action.", out["message"])

	a.expect(a.do(http.MethodPost, "/api/v1/tours", userTok, tourBody("The Forest Hiker", 397, "easy")), http.StatusForbidden)

	adminTok := a.login(adminEmail, adminPassword)
	out = a.expect(a.do(http.MethodGet, "/api/v1/users", adminTok, nil), http.StatusOK)
	require.EqualValues(t, 2, out["results"])

	out = a.expect(a.do(http.MethodPost, "/api/v1/users", adminTok, gin.H{"name": "x"}), http.StatusInternalServerError)
	require.Equal(t, "This route is not defined! Please use /signup instead", out["message"])
}

func TestCookieSessionIsAccepted(t *testing.T) {
	a := newAPI(t, nil)
	w := a.do(http.MethodPost, "/api/v1/users/signup", "", gin.H{
		"name": "Ana Lima", "email": "ana@example.com", "password": "pass1234", "passwordConfirm": "pass1234",
	})
	a.expect(w, http.StatusCreated)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "jwt" {
			session = c
		}
	}
	require.NotNil(t, session)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminManagesUsers(t *testing.T) {
	a := newAPI(t, nil)
	_, guideID := a.signup("Gil Guide", "gil@example.com")
	adminTok := a.login(adminEmail, adminPassword)

	a.expect(a.do(http.MethodPatch, "/api/v1/users/"+guideID, adminTok, gin.H{"password": "hijack99"}), http.StatusBadRequest)
	a.expect(a.do(http.MethodPatch, "/api/v1/users/"+guideID, adminTok, gin.H{"role": "captain"}), http.StatusBadRequest)

	out := a.expect(a.do(http.MethodPatch, "/api/v1/users/"+guideID, adminTok, gin.H{"role": "lead-guide"}), http.StatusOK)
	require.Equal(t, "lead-guide", data(out)["role"])

	guideTok := a.login("gil@example.com", "pass1234")
	a.createTour(guideTok, "The Forest Hiker", 397, "easy")

	a.expect(a.do(http.MethodDelete, "/api/v1/users/"+guideID, adminTok, nil), http.StatusNoContent)
	a.expect(a.do(http.MethodGet, "/api/v1/users/"+guideID, adminTok, nil), http.StatusNotFound)
}

func TestToursCRUDAndQueries(t *testing.T) {
	a := newAPI(t, nil)
	adminTok := a.login(adminEmail, adminPassword)

	forest := a.createTour(adminTok, "The Forest Hiker", 397, "easy")
	a.createTour(adminTok, "The Sea Explorer", 497, "medium")
	a.createTour(adminTok, "The Snow Adventurer", 997, "difficult")

	out := a.expect(a.do(http.MethodPost, "/api/v1/tours", adminTok, tourBody("The Forest Hiker", 1, "easy")), http.StatusBadRequest)
	require.Equal(t, "duplicate_value", out["code"])

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours?price[lt]=500&sort=-price", "", nil), http.StatusOK)
	require.EqualValues(t, 2, out["results"])
	require.Equal(t, "The Sea Explorer", list(out)[0].(map[string]any)["name"])

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours?fields=name&limit=1&page=2&sort=price", "", nil), http.StatusOK)
	items := list(out)
	require.Len(t, items, 1)
	require.Equal(t, "The Sea Explorer", items[0].(map[string]any)["name"])
	require.NotContains(t, items[0], "price")

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/top-5-cheap", "", nil), http.StatusOK)
	require.EqualValues(t, 3, out["results"])
	require.NotContains(t, list(out)[0], "imageCover")

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/"+forest, "", nil), http.StatusOK)
	detail := data(out)
	require.Equal(t, "the-forest-hiker", detail["slug"])
	require.EqualValues(t, 1, detail["durationWeeks"])

	out = a.expect(a.do(http.MethodPatch, "/api/v1/tours/"+forest, adminTok, gin.H{"price": 450}), http.StatusOK)
	require.EqualValues(t, 450, data(out)["price"])

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/"+forest, "", nil), http.StatusOK)
	require.EqualValues(t, 450, data(out)["price"], "tour writes must invalidate the read cache")

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/tour-stats", "", nil), http.StatusOK)
	require.Len(t, out["data"].(map[string]any)["stats"], 3)

	a.expect(a.do(http.MethodGet, "/api/v1/tours/monthly-plan/2026", "", nil), http.StatusUnauthorized)
	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/monthly-plan/2026", adminTok, nil), http.StatusOK)
	require.NotEmpty(t, out["data"].(map[string]any)["plan"])
	a.expect(a.do(http.MethodGet, "/api/v1/tours/monthly-plan/abc", adminTok, nil), http.StatusBadRequest)

	a.expect(a.do(http.MethodDelete, "/api/v1/tours/"+forest, adminTok, nil), http.StatusNoContent)
	a.expect(a.do(http.MethodGet, "/api/v1/tours/"+forest, "", nil), http.StatusNotFound)
}

func TestTourDetailETag(t *testing.T) {
	a := newAPI(t, nil)
	adminTok := a.login(adminEmail, adminPassword)
	id := a.createTour(adminTok, "The Forest Hiker", 397, "easy")

	first := a.do(http.MethodGet, "/api/v1/tours/"+id, "", nil)
	a.expect(first, http.StatusOK)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w := a.do(http.MethodGet, "/api/v1/tours/"+id, "", nil, "If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Zero(t, w.Body.Len())
}

func TestReviewsRecomputeTourRatings(t *testing.T) {
	a := newAPI(t, nil)
	adminTok := a.login(adminEmail, adminPassword)
	tourID := a.createTour(adminTok, "The Forest Hiker", 397, "easy")

	anaTok, _ := a.signup("Ana Lima", "ana@example.com")
	bobTok, _ := a.signup("Bob Reis", "bob@example.com")

	reviewsPath := "/api/v1/tours/" + tourID + "/reviews"

	out := a.expect(a.do(http.MethodPost, reviewsPath, anaTok, gin.H{"review": "Lovely", "rating": 5}), http.StatusCreated)
	anaReview := data(out)["id"].(string)
	require.Equal(t, "Ana Lima", data(out)["user"].(map[string]any)["name"])

	a.expect(a.do(http.MethodPost, reviewsPath, bobTok, gin.H{"review": "Too long", "rating": 2}), http.StatusCreated)

	out = a.expect(a.do(http.MethodPost, reviewsPath, anaTok, gin.H{"review": "Again", "rating": 4}), http.StatusBadRequest)
	require.Equal(t, "duplicate_value", out["code"])

	a.expect(a.do(http.MethodPost, reviewsPath, adminTok, gin.H{"review": "Admin", "rating": 4}), http.StatusForbidden)
	a.expect(a.do(http.MethodPost, "/api/v1/tours/missing/reviews", anaTok, gin.H{"review": "x", "rating": 4}), http.StatusNotFound)

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/"+tourID, "", nil), http.StatusOK)
	detail := data(out)
	require.EqualValues(t, 2, detail["ratingsQuantity"])
	require.EqualValues(t, 3.5, detail["ratingsAverage"])
	require.Len(t, detail["reviews"], 2)

	out = a.expect(a.do(http.MethodGet, reviewsPath, anaTok, nil), http.StatusOK)
	require.EqualValues(t, 2, out["results"])

	a.expect(a.do(http.MethodPatch, "/api/v1/reviews/"+anaReview, bobTok, gin.H{"rating": 1}), http.StatusForbidden)
	a.expect(a.do(http.MethodPatch, "/api/v1/reviews/"+anaReview, anaTok, gin.H{"rating": 4}), http.StatusOK)

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/"+tourID, "", nil), http.StatusOK)
	require.EqualValues(t, 3, data(out)["ratingsAverage"])

	a.expect(a.do(http.MethodDelete, "/api/v1/reviews/"+anaReview, adminTok, nil), http.StatusNoContent)

	out = a.expect(a.do(http.MethodGet, "/api/v1/tours/"+tourID, "", nil), http.StatusOK)
	require.EqualValues(t, 1, data(out)["ratingsQuantity"])
	require.EqualValues(t, 2, data(out)["ratingsAverage"])
}

func TestHardening(t *testing.T) {
	a := newAPI(t, nil)

	w := a.do(http.MethodGet, "/api/v1/tours", "", nil)
	a.expect(w, http.StatusOK)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewBufferString("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	big := bytes.Repeat([]byte("a"), 20<<10)
	out := a.expect(a.do(http.MethodPost, "/api/v1/users/login", "", gin.H{"email": string(big), "password": "x"}), http.StatusRequestEntityTooLarge)
	require.Equal(t, "fail", out["status"])

	out = a.expect(a.do(http.MethodPost, "/api/v1/users/signup", "", gin.H{
		"name": "<script>alert(1)</script>Eve", "email": "eve@example.com", "password": "pass1234", "passwordConfirm": "pass1234",
	}), http.StatusCreated)
	require.Equal(t, "Eve", out["data"].(map[string]any)["user"].(map[string]any)["name"])
}

func TestRateLimit(t *testing.T) {
	a := newAPI(t, func(cfg *config.Config) { cfg.RateLimitMax = 2 })

	a.expect(a.do(http.MethodGet, "/api/v1/tours", "", nil), http.StatusOK)
	w := a.do(http.MethodGet, "/api/v1/tours", "", nil)
	a.expect(w, http.StatusOK)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = a.do(http.MethodGet, "/api/v1/tours", "", nil)
	out := a.expect(w, http.StatusTooManyRequests)
	require.Equal(t, "Too many requests from this IP, please try again in an hour!", out["message"])
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	a.expect(a.do(http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

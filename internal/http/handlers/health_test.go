package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/geocoder89/tourhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		pings  map[string]handlers.PingFunc
		status int
		want   string
	}{
		{name: "no dependencies", pings: nil, status: http.StatusOK, want: "ready"},
		{name: "all up", pings: map[string]handlers.PingFunc{"store": ok, "redis": ok}, status: http.StatusOK, want: "ready"},
		{name: "one down", pings: map[string]handlers.PingFunc{"store": ok, "redis": down}, status: http.StatusServiceUnavailable, want: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.pings)
			r := gin.New()
			r.GET("/readyz", h.Readyz)

			w := serve(r, http.MethodGet, "/readyz")
			if w.Code != tt.status {
				t.Fatalf("got %d want %d", w.Code, tt.status)
			}

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.want {
				t.Fatalf("status = %q", body.Status)
			}
			if tt.want == "not_ready" && body.Checks["redis"] != "connection refused" {
				t.Fatalf("checks = %+v", body.Checks)
			}
		})
	}
}

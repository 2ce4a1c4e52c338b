package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIfNoneMatchMatches(t *testing.T) {
	const current = `"abc123"`

	tests := []struct {
		header string
		want   bool
	}{
		{``, false},
		{`*`, true},
		{`"abc123"`, true},
		{`W/"abc123"`, true},
		{`"zzz", "abc123"`, true},
		{`"zzz"`, false},
	}

	for _, tt := range tests {
		if got := ifNoneMatchMatches(tt.header, current); got != tt.want {
			t.Errorf("ifNoneMatchMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestRespondDataWithETag_StableAcrossCalls(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(ctx *gin.Context) {
		RespondDataWithETag(ctx, "data", gin.H{"name": "The Forest Hiker"})
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/x", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/x", nil))

	etag := first.Header().Get("ETag")
	if etag == "" || etag != second.Header().Get("ETag") {
		t.Fatalf("etag not stable: %q vs %q", etag, second.Header().Get("ETag"))
	}
	if first.Header().Get("Cache-Control") != "no-cache" {
		t.Fatalf("missing Cache-Control")
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("If-None-Match", etag)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("got %d, want 304", w.Code)
	}
}

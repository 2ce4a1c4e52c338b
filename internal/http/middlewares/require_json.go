package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
)

// RequireJSON rejects writes carrying a non-JSON body. Bodyless writes pass
// and fail validation later.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength == 0 {
				break
			}
			ct := strings.ToLower(c.GetHeader("Content-Type"))
			if !strings.HasPrefix(ct, "application/json") {
				apierr.Abort(c, apierr.New(http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json"))
				return
			}
		}
		c.Next()
	}
}

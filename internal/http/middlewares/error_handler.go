package middlewares

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorHandler renders the last error recorded with c.Error once the rest of
// the chain has run. Unexpected errors hide their cause outside development.
func ErrorHandler(env string, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apierr.From(err)

		details := appErr.Details
		if appErr.Status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request.Context(), "http.unhandled_error",
				"err", err,
				"request_id", RequestIDFrom(c),
				"path", c.Request.URL.Path,
			)
			if env == config.EnvDevelopment && appErr.Err != nil {
				details = gin.H{"error": appErr.Err.Error()}
			}
		}

		status := "fail"
		if appErr.Status >= http.StatusInternalServerError {
			status = "error"
		}

		c.JSON(appErr.Status, ErrorBody{
			Status:    status,
			Message:   appErr.Message,
			Code:      appErr.Code,
			RequestID: RequestIDFrom(c),
			Details:   details,
		})
	}
}

// Recovery turns a panic into an error for ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		apierr.Abort(c, apierr.Internal(fmt.Errorf("panic: %v", recovered)))
	})
}

// NotFound answers unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		apierr.Abort(c, apierr.NotFound("Can't find "+c.Request.URL.Path+" on this server!"))
	}
}

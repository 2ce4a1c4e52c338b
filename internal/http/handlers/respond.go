package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
)

// RespondData writes {status:"success", data:{<key>: payload}}.
func RespondData(ctx *gin.Context, status int, key string, payload any) {
	ctx.JSON(status, gin.H{
		"status": "success",
		"data":   gin.H{key: payload},
	})
}

// RespondList writes a list envelope with its result count.
func RespondList(ctx *gin.Context, items []any) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(items),
		"data":    gin.H{"data": items},
	})
}

func RespondNoContent(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
}

// RespondError hands err to the error handler middleware and stops the chain.
func RespondError(ctx *gin.Context, err error) {
	apierr.Abort(ctx, err)
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, apierr.BadRequest(message, details))
}


// requestCtx bounds a store call by d and by the lifetime of the request.
func requestCtx(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

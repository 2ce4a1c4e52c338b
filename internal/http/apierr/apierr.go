// Package apierr carries HTTP-facing errors from handlers and middleware to
// the central error handler.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/geocoder89/tourhub/internal/auth"
	"github.com/geocoder89/tourhub/internal/domain/review"
	"github.com/geocoder89/tourhub/internal/domain/tour"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/gin-gonic/gin"
)

// AppError is an error with a known HTTP answer. Errors that are not an
// AppError are treated as unexpected.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Operational reports whether the message is safe to show a client.
func (e *AppError) Operational() bool {
	return e.Status < http.StatusInternalServerError || e.Code != "internal_error"
}

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func BadRequest(message string, details any) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: "invalid_request", Message: message, Details: details}
}

func Unauthorized(code, message string) *AppError {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, "forbidden", message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, "not_found", message)
}

// Internal wraps an unexpected failure. The cause is logged, never rendered
// outside development.
func Internal(cause error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Something went very wrong!", Err: cause}
}

// Abort records err for the error handler and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// From maps domain and infrastructure errors to their HTTP answer.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var vErr *tour.ValidationError
	if errors.As(err, &vErr) {
		return BadRequest("Invalid input data. "+vErr.Message, gin.H{"fields": []gin.H{{"field": vErr.Field, "message": vErr.Message}}})
	}

	var qErr *query.Error
	if errors.As(err, &qErr) {
		return BadRequest(qErr.Error(), gin.H{"param": qErr.Param})
	}

	switch {
	case errors.Is(err, user.ErrNotFound):
		return NotFound("No user found with that ID")
	case errors.Is(err, tour.ErrNotFound):
		return NotFound("No tour found with that ID")
	case errors.Is(err, review.ErrNotFound):
		return NotFound("No review found with that ID")
	case errors.Is(err, user.ErrEmailTaken):
		return duplicate("email")
	case errors.Is(err, tour.ErrNameTaken):
		return duplicate("name")
	case errors.Is(err, review.ErrDuplicate):
		return &AppError{Status: http.StatusBadRequest, Code: "duplicate_value", Message: "You have already reviewed this tour"}
	case errors.Is(err, auth.ErrTokenExpired):
		return Unauthorized("token_expired", "Invalid session. Please log in again.")
	case errors.Is(err, auth.ErrTokenInvalid):
		return Unauthorized("invalid_token", "Invalid session. Please log in again.")
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Status: http.StatusGatewayTimeout, Code: "timeout", Message: "The request took too long. Please try again.", Err: err}
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return New(http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Sprintf("Request body must not exceed %d bytes", maxBytes.Limit))
	}

	return Internal(err)
}

func duplicate(field string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    "duplicate_value",
		Message: "Duplicate field value: " + field + ". Please use another value!",
		Details: gin.H{"field": field},
	}
}

package middlewares

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/tourhub/internal/actorctx"
	"github.com/geocoder89/tourhub/internal/auth"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
)

// CookieName holds the session token for browser clients.
const CookieName = "jwt"

// LoggedOutValue replaces the token on logout.
const LoggedOutValue = "loggedout"

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string, opts ...user.LoadOption) (user.User, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserLoader
}

func NewAuthMiddleware(tokens TokenVerifier, users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Protect admits a request only with a valid token whose identity still
// exists, is active and has not changed its secret since the token was
// issued.
func (m *AuthMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ExtractToken(c)
		if raw == "" {
			apierr.Abort(c, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			apierr.Abort(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		u, err := m.users.GetByID(ctx, claims.UserID)
		cancel()
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				apierr.Abort(c, apierr.Unauthorized("user_not_found", "The user belonging to this token no longer exists."))
				return
			}
			apierr.Abort(c, err)
			return
		}

		if u.ChangedPasswordAfter(claims.IssuedAtTime()) {
			apierr.Abort(c, apierr.Unauthorized("password_changed", "User recently changed password. Please log in again."))
			return
		}

		SetCurrentUser(c, u)
		c.Next()
	}
}

// ExtractToken reads a bearer token, falling back to the session cookie.
func ExtractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
			return tok
		}
	}

	if v, err := c.Cookie(CookieName); err == nil && v != "" && v != LoggedOutValue {
		return v
	}
	return ""
}

// SetCurrentUser attaches u to the gin context and the request context.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
	c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))
}

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok && u.ID != ""
}

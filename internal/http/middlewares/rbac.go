package middlewares

import (
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
)

// RestrictTo admits only identities holding one of roles. It must run after
// Protect.
func RestrictTo(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			apierr.Abort(c, apierr.Unauthorized("unauthorized", "You are not logged in! Please log in to get access."))
			return
		}
		if !u.HasRole(roles...) {
			apierr.Abort(c, apierr.Forbidden("You do not have permission to perform this action."))
			return
		}
		c.Next()
	}
}

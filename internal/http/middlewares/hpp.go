package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultHPPWhitelist lists the query parameters that may repeat.
var DefaultHPPWhitelist = []string{
	"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price",
}

// HPP collapses repeated query parameters to their last value unless the
// parameter, ignoring any [op] suffix, is whitelisted.
func HPP(whitelist []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(whitelist))
	for _, w := range whitelist {
		allowed[w] = struct{}{}
	}

	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		changed := false

		for key, vals := range q {
			if len(vals) < 2 {
				continue
			}
			base, _, _ := strings.Cut(key, "[")
			if _, ok := allowed[base]; ok {
				continue
			}
			q[key] = vals[len(vals)-1:]
			changed = true
		}

		if changed {
			c.Request.URL.RawQuery = q.Encode()
		}
		c.Next()
	}
}

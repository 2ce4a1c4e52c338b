package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/geocoder89/tourhub/internal/http/apierr"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizeJSON rewrites JSON bodies before binding: object keys that could
// reach a document store as operators ($-prefixed or dotted) are dropped and
// markup is stripped from string values. Bodies that are not valid JSON pass
// untouched so binding can report them.
func SanitizeJSON() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()

	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 ||
			!strings.HasPrefix(strings.ToLower(c.GetHeader("Content-Type")), "application/json") {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			apierr.Abort(c, err)
			return
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err == nil {
			if cleaned, err := json.Marshal(sanitizeValue(doc, policy)); err == nil {
				raw = cleaned
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		c.Request.ContentLength = int64(len(raw))
		c.Next()
	}
}

func sanitizeValue(v any, p *bluemonday.Policy) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
				continue
			}
			out[k] = sanitizeValue(val, p)
		}
		return out
	case []any:
		for i := range x {
			x[i] = sanitizeValue(x[i], p)
		}
		return x
	case string:
		if strings.ContainsAny(x, "<>") {
			return p.Sanitize(x)
		}
		return x
	default:
		return v
	}
}

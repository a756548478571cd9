package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	exposeHeaders = "Content-Disposition, X-Request-ID"
)

// policy holds exact origins plus "*.domain" suffix patterns from CORS_ALLOWED_ORIGINS.
type policy struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

func newPolicy(allowedOrigins []string) policy {
	p := policy{exact: make(map[string]struct{}, len(allowedOrigins))}
	for _, raw := range allowedOrigins {
		origin := normalize(raw)
		switch {
		case origin == "":
			continue
		case origin == "*":
			p.any = true
		case strings.Contains(origin, "://*."):
			p.suffixes = append(p.suffixes, strings.Replace(origin, "://*.", "://.", 1))
		default:
			p.exact[origin] = struct{}{}
		}
	}
	if len(p.exact) == 0 && len(p.suffixes) == 0 {
		p.any = true
	}
	return p
}

func (p policy) allows(origin string) bool {
	if p.any {
		return true
	}
	origin = normalize(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, suffix := range p.suffixes {
		scheme, host, _ := strings.Cut(suffix, "://")
		if strings.HasPrefix(origin, scheme+"://") && strings.HasSuffix(origin, host) {
			return true
		}
	}
	return false
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

// New returns the CORS middleware. An empty list allows every origin; entries may be
// exact origins or "https://*.example.com" patterns. Content-Disposition is exposed so
// browsers can read export filenames.
func New(allowedOrigins []string) gin.HandlerFunc {
	p := newPolicy(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && p.allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && p.any:
			h.Set("Access-Control-Allow-Origin", "*")
		}

		h.Set("Vary", "Origin")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Expose-Headers", exposeHeaders)
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

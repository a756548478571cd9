package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	cacheHitKey      = "cache_hit"
	processingTimeMs = "processing_time_ms"
)

// WithResponseMeta gives each request a metadata map that handlers fill and copy into the
// envelope. processing_time_ms is measured here unless a handler set it first.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		c.Set(responseMetaKey, meta)
		c.Next()
		if _, exists := meta[processingTimeMs]; !exists {
			meta[processingTimeMs] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records whether the response body came from the lookup cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitKey, hit)
}

// SetProcessingTime records handler time measured from start.
func SetProcessingTime(c *gin.Context, start time.Time) {
	SetMeta(c, processingTimeMs, time.Since(start).Milliseconds())
}

// SetMeta stores one metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	ensureMeta(c)[key] = value
}

// ExtractMeta returns the metadata map stored on the context, or nil when none was set.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}

package middleware

import (
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	apperrors "github.com/block-nexus/blocknexus-site/errors"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/block-nexus/blocknexus-site/store"
	"github.com/gin-gonic/gin"
)

// RateLimit bounds contact submissions per client identity. The identity is
// the validated client IP; when no valid IP can be derived the key is unique
// per request so unrelated anonymous clients never share a bucket.
//
// Denial is a normal outcome: it maps to 429 with Retry-After and the
// X-RateLimit-* headers. If the store itself fails (e.g. Redis down) the
// request is let through so the endpoint stays available.
func RateLimit(limits store.RateLimitStore, maxRequests int, window time.Duration, trustedProxies []string) gin.HandlerFunc {
	trusted := make(map[string]struct{}, len(trustedProxies))
	for _, p := range trustedProxies {
		trusted[p] = struct{}{}
	}

	return func(c *gin.Context) {
		identity := clientIdentity(c, trusted)

		res, err := limits.Check(c.Request.Context(), identity, maxRequests, window)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed, allowing request",
				"error", err, "request_id", c.GetString(RequestIDKey))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetTime.Unix()))

		if !res.Allowed {
			retryAfter := int(math.Ceil(time.Until(res.ResetTime).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))

			_ = c.Error(apperrors.RateLimitExceeded(
				"Too many submissions. Please wait before trying again.",
				retryAfter,
				res.ResetTime.UnixMilli(),
			))
			c.Abort()
			return
		}

		c.Next()
	}
}

// clientIdentity derives the rate-limit key for a request. Forwarded headers
// are honored only when the immediate peer is a trusted proxy, and only when
// they carry a syntactically valid IP.
func clientIdentity(c *gin.Context, trustedProxies map[string]struct{}) string {
	remote := c.RemoteIP()

	if _, ok := trustedProxies[remote]; ok {
		if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
			first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if realIP := c.GetHeader("X-Real-IP"); realIP != "" && net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	if remote != "" && net.ParseIP(remote) != nil {
		return remote
	}

	// No usable IP: a shared fallback bucket would let unrelated clients
	// starve each other or bypass the limit, so key on the request itself.
	return "anon:" + c.GetString(RequestIDKey)
}

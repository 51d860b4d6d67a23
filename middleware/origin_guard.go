package middleware

import (
	"net/url"

	apperrors "github.com/block-nexus/blocknexus-site/errors"
	"github.com/gin-gonic/gin"
)

// OriginGuard validates the Origin/Referer headers against the exact origin
// allow-list before any body is read. Cross-site form posts carry a foreign
// origin (or none at all) and are rejected with 403.
//
// Matching is exact on scheme+host+port; a referer may carry any path under
// an allowed origin, but a suffix host such as allowed-host.evil.com never
// matches.
func OriginGuard(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")

		if origin == "" && referer == "" {
			_ = c.Error(apperrors.SecurityViolation("Origin or Referer header required"))
			c.Abort()
			return
		}

		if origin != "" {
			if _, ok := allowed[origin]; ok {
				c.Next()
				return
			}
		}

		if referer != "" && refererAllowed(referer, allowed) {
			c.Next()
			return
		}

		if origin != "" {
			_ = c.Error(apperrors.SecurityViolation("Invalid origin"))
		} else {
			_ = c.Error(apperrors.SecurityViolation("Invalid referer"))
		}
		c.Abort()
	}
}

// refererAllowed derives the referer's origin and requires an exact match
// against the allow-list. Any parse failure means not allowed.
func refererAllowed(referer string, allowed map[string]struct{}) bool {
	u, err := url.Parse(referer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	_, ok := allowed[u.Scheme+"://"+u.Host]
	return ok
}

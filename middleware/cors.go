package middleware

import (
	"strings"
	"time"

	"github.com/block-nexus/blocknexus-site/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var corsAllowMethods = []string{"GET", "POST", "OPTIONS"}

var corsAllowHeaders = []string{
	"Origin",
	"Content-Length",
	"Content-Type",
	"Accept",
	"X-Requested-With",
}

var corsExposeHeaders = []string{
	"X-Request-ID",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"Retry-After",
}

// CORS configures cross-origin access for the site frontends. With an
// explicit allow-list, disallowed origins simply get no CORS headers; the
// request still proceeds so the origin guard can produce its structured 403
// instead of an opaque preflight failure.
func CORS(cfg *config.ServerConfig) gin.HandlerFunc {
	if containsOrigin(cfg.AllowedOrigins, "*") {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    corsAllowMethods,
			AllowHeaders:    corsAllowHeaders,
			ExposeHeaders:   corsExposeHeaders,
			MaxAge:          12 * time.Hour,
		})
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if containsOrigin(cfg.AllowedOrigins, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", strings.Join(corsAllowMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(corsAllowHeaders, ", "))
			c.Header("Access-Control-Expose-Headers", strings.Join(corsExposeHeaders, ", "))
			c.Header("Access-Control-Max-Age", "43200")
			c.Header("Vary", "Origin")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(204)
				return
			}
		}

		c.Next()
	}
}

// containsOrigin checks if a string is present in the allowed origins slice.
func containsOrigin(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

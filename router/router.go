// Package router wires the middleware chain and routes. The contact route's
// middleware order is the pipeline order: origin guard, content-type check,
// rate limit, body guards; the handler runs the parse/sanitize/validate tail.
package router

import (
	"time"

	"github.com/block-nexus/blocknexus-site/config"
	"github.com/block-nexus/blocknexus-site/handlers"
	"github.com/block-nexus/blocknexus-site/middleware"
	"github.com/block-nexus/blocknexus-site/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds everything required for setting up routes.
type Dependencies struct {
	Config         *config.Config
	ContactHandler *handlers.ContactHandler
	HealthHandler  *handlers.HealthHandler
	RateLimitStore store.RateLimitStore
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(deps.Config))
	r.Use(middleware.SecurityHeaders(deps.Config))
	r.Use(middleware.CORS(&deps.Config.Server))

	// Health and metrics
	r.GET("/health", deps.HealthHandler.Liveness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Contact pipeline. Guard order is fixed; a failing guard short-circuits
	// and later stages never run.
	r.POST("/contact",
		middleware.OriginGuard(deps.Config.Server.AllowedOrigins),
		middleware.ContentTypeGuard(),
		middleware.RateLimit(
			deps.RateLimitStore,
			deps.Config.RateLimit.MaxRequests,
			deps.Config.RateLimit.Window(),
			deps.Config.Server.TrustedProxies,
		),
		middleware.BodyGuard(
			deps.Config.Security.MaxBodySize,
			time.Duration(deps.Config.Security.BodyReadTimeoutSeconds)*time.Second,
		),
		deps.ContactHandler.Submit,
	)
	r.GET("/contact", deps.ContactHandler.MethodNotAllowed)

	return r
}

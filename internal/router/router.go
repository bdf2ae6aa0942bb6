package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp" // Prometheus exposition handler

	"github.com/iliyamo/queue-health-probe/internal/handler"    // import the handlers that implement the probes
	"github.com/iliyamo/queue-health-probe/internal/middleware" // import middleware for callback auth and rate limiting
)

// RegisterRoutes registers the liveness and metrics endpoints. Neither
// touches a dependency, so both stay cheap enough for aggressive polling.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterProbes registers the dependency probes. Each probe call does real
// work against a backend, so the probe group runs behind the limiter.
func RegisterProbes(e *echo.Echo, q *handler.QueueHandler, s *handler.StorageHandler, env *handler.EnvHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/health", limiter)
	g.GET("/queue", q.Check)
	g.GET("/storage", s.Check)

	// Introspection is read-only and not rate limited.
	e.GET("/health/queue/status", q.Status)
	e.GET("/health/env", env.Show)
}

// RegisterInbound registers the delivery callback the queue transport
// invokes. When a signing secret is configured every call must carry a
// valid token.
func RegisterInbound(e *echo.Echo, q *handler.QueueHandler, signingSecret string) {
	e.POST("/queue/inbound", q.Inbound, middleware.QueueAuth(signingSecret))
}

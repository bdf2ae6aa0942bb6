package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/queue-health-probe/internal/utils" // token verification helpers
)

// SubjectHeader carries the subject of a verified callback token.
const SubjectHeader = "X-Queue-Subject"

// QueueAuth returns an Echo middleware that verifies the token the queue
// transport attaches to inbound callbacks. The Authorization header may hold
// the raw token or "Bearer <token>". An empty secret disables verification so
// local setups can post deliveries by hand. The verified token subject
// replaces any SubjectHeader the caller sent, so it is recorded with the
// delivery headers.
func QueueAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
			}
			claims, err := utils.ParseQueueToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			sub, _ := claims.GetSubject()
			c.Request().Header.Set(SubjectHeader, sub)
			c.Logger().Debugf("queue callback authenticated (sub=%s)", sub)
			return next(c)
		}
	}
}

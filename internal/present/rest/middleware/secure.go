package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecureHeaders sets baseline hardening headers on every response. The
// artifact page additionally sets a per-request Content-Security-Policy in
// its handler; nothing here must override that.
func SecureHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			return next(c)
		}
	}
}

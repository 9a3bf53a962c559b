package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/showsec/security-demo/internal/pkg/clientip"
)

// SimulatedIPHeader lets a demo client pretend to come from another address,
// mirroring the IP-simulation control of the original exercise. It is a demo
// aid only; nothing in the core makes decisions on it.
const SimulatedIPHeader = "X-Simulated-IP"

// ClientIP resolves the effective client IP (simulated header first, then the
// transport address) and stamps it into the request context for audit events.
func ClientIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.Request().Header.Get(SimulatedIPHeader)
			if ip == "" {
				ip = c.RealIP()
			}

			ctx := clientip.WithIP(c.Request().Context(), ip)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

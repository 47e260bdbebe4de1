// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"log/slog"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Messages returned when a limiter denies a request.
const (
	AuthLimitMessage   = "Too many authentication attempts, please try again later."
	VerifyLimitMessage = "Too many verification attempts, please try again later."
)

// RateLimit throttles requests per client address using store. The address comes from
// c.RealIP, so the echo instance must set an IPExtractor. Denied requests get a 429 with
// message before any handler runs.
func RateLimit(store echomw.RateLimiterStore, message string) echo.MiddlewareFunc {
	denied := apperr.New(apperr.RateLimited, message)

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return denied
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.WarnContext(c.Request().Context(), "rate_limited",
				"ip", identifier,
				"path", c.Path(),
			)
			return denied
		},
	})
}

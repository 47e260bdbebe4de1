// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"codeberg.org/oliverandrich/remind/internal/i18n"
	"github.com/labstack/echo/v4"
)

// Locale picks the language of outgoing mail from the Accept-Language header.
// Requests without the header keep the configured default.
func Locale() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acceptLang := c.Request().Header.Get("Accept-Language")
			if acceptLang != "" {
				req := c.Request()
				ctx := i18n.WithLocale(req.Context(), i18n.MatchLanguage(acceptLang))
				c.SetRequest(req.WithContext(ctx))
			}
			return next(c)
		}
	}
}

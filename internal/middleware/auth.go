// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"strings"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/auth"
	"codeberg.org/oliverandrich/remind/internal/models"
	"github.com/labstack/echo/v4"
)

var (
	ErrTokenRequired = apperr.New(apperr.Unauthenticated, "Access token required")
	ErrTokenInvalid  = apperr.New(apperr.Unauthenticated, "Invalid or expired token")
)

// TokenVerifier checks a bearer token and returns its principal.
type TokenVerifier interface {
	Verify(token string) (models.Principal, error)
}

// RequireToken rejects requests without a valid bearer token and stores the principal
// in the request context.
func RequireToken(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return ErrTokenRequired
			}

			p, err := verifier.Verify(token)
			if err != nil {
				return ErrTokenInvalid
			}

			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithPrincipal(req.Context(), p)))
			return next(c)
		}
	}
}

// Principal returns the principal set by RequireToken. Routes behind RequireToken
// always have one.
func Principal(c echo.Context) models.Principal {
	p, _ := auth.GetPrincipal(c.Request().Context())
	return p
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

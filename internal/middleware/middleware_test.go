// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/auth"
	"codeberg.org/oliverandrich/remind/internal/i18n"
	"codeberg.org/oliverandrich/remind/internal/middleware"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/ratelimit"
	"codeberg.org/oliverandrich/remind/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (models.Principal, error) {
	if token == "good" {
		return models.Principal{ID: 1, Email: "a@example.com"}, nil
	}
	return models.Principal{}, errors.New("bad token")
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRequireToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing", "", middleware.ErrTokenRequired},
		{"no scheme", "good", middleware.ErrTokenRequired},
		{"wrong scheme", "Basic good", middleware.ErrTokenRequired},
		{"empty token", "Bearer ", middleware.ErrTokenRequired},
		{"invalid", "Bearer nope", middleware.ErrTokenInvalid},
		{"valid", "Bearer good", nil},
		{"lowercase scheme", "bearer good", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c, rec := testutil.NewEchoContext(e, http.MethodGet, "/reminders", nil)
			if tt.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tt.header)
			}

			var seen models.Principal
			h := middleware.RequireToken(stubVerifier{})(func(c echo.Context) error {
				seen = middleware.Principal(c)
				return okHandler(c)
			})
			err := h(c)

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, int64(1), seen.ID)
		})
	}
}

func TestRateLimit(t *testing.T) {
	clock := testutil.NewClock()
	store := ratelimit.New(2, time.Minute, ratelimit.WithClock(clock.Now))
	e := echo.New()

	call := func(ip string) error {
		c, _ := testutil.NewEchoContext(e, http.MethodPost, "/auth/login", nil)
		c.Request().RemoteAddr = ip + ":1234"
		h := middleware.RateLimit(store, middleware.AuthLimitMessage)(okHandler)
		return h(c)
	}

	require.NoError(t, call("10.0.0.1"))
	require.NoError(t, call("10.0.0.1"))

	err := call("10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, apperr.RateLimited, apperr.KindOf(err))
	assert.EqualError(t, err, middleware.AuthLimitMessage)

	assert.NoError(t, call("10.0.0.2"))

	clock.Advance(time.Minute)
	assert.NoError(t, call("10.0.0.1"))
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/", nil)

	var seen string
	h := middleware.RequestID()(func(c echo.Context) error {
		seen = auth.RequestID(c.Request().Context())
		return okHandler(c)
	})
	require.NoError(t, h(c))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	e := echo.New()
	e.Use(middleware.RequestLogger(logger))
	e.GET("/reminders", okHandler)
	e.GET("/health", okHandler)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/reminders", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "/reminders", entry["path"])
	assert.InDelta(t, 200, entry["status"], 0)
}

func TestLocale(t *testing.T) {
	require.NoError(t, i18n.Init())

	tests := []struct {
		header string
		want   string
		set    bool
	}{
		{"de-DE,de;q=0.9", "de", true},
		{"en-US", "en", true},
		{"", "en", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			e := echo.New()
			c, _ := testutil.NewEchoContext(e, http.MethodPost, "/auth/signup", nil)
			if tt.header != "" {
				c.Request().Header.Set("Accept-Language", tt.header)
			}

			var locale string
			var set bool
			h := middleware.Locale()(func(c echo.Context) error {
				locale = i18n.GetLocale(c.Request().Context())
				set = i18n.HasLocale(c.Request().Context())
				return nil
			})
			require.NoError(t, h(c))

			assert.Equal(t, tt.want, locale)
			assert.Equal(t, tt.set, set)
		})
	}
}

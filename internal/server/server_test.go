// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/remind/internal/config"
	"codeberg.org/oliverandrich/remind/internal/memstore"
	"codeberg.org/oliverandrich/remind/internal/server"
	"codeberg.org/oliverandrich/remind/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "localhost", Port: 0, MaxBodySize: 1},
		Log:      config.LogConfig{Level: "error", Format: "json"},
		Database: config.DatabaseConfig{Driver: driver, DSN: ":memory:"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
			CodeTTL:    15 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			AuthLimit:    10,
			AuthWindow:   15 * time.Minute,
			VerifyLimit:  5,
			VerifyWindow: 5 * time.Minute,
		},
		Mail:    config.MailConfig{Transport: config.TransportLog, Locale: "en"},
		CORS:    config.CORSConfig{AllowOrigins: []string{"*"}},
		Cleanup: config.CleanupConfig{Schedule: "@every 1h"},
	}
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newClient(t *testing.T, driver string, mailbox *testutil.Mailbox) *client {
	t.Helper()
	return newClientWithConfig(t, testConfig(driver), mailbox)
}

func newClientWithConfig(t *testing.T, cfg *config.Config, mailbox *testutil.Mailbox) *client {
	t.Helper()
	srv, err := server.New(cfg, server.WithMailer(mailbox), server.WithVersion("test"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Close()
	})
	return &client{t: t, handler: srv.Handler()}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.doFrom("", "", method, path, body)
}

// doFrom sends the request from remoteAddr with the given X-Forwarded-For value.
// Empty arguments keep the request defaults.
func (c *client) doFrom(remoteAddr, forwardedFor, method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := testutil.NewRequest(method, path, &buf)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	if forwardedFor != "" {
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func signupAndVerify(t *testing.T, c *client, mailbox *testutil.Mailbox, email string) {
	t.Helper()
	rec := c.do(http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": "correct horse", "publicKey": "pk",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/auth/verify-email", map[string]string{"code": mailbox.LastCode(t, email)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c.token = decode(t, rec)["token"].(string)
}

// corrupt changes one fully significant character of the signature.
func corrupt(token string) string {
	b := []byte(token)
	i := len(b) - 5
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestEndToEnd(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			mailbox := testutil.NewMailbox()
			c := newClient(t, driver, mailbox)

			rec := c.do(http.MethodGet, "/reminders", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Access token required", decode(t, rec)["message"])

			signupAndVerify(t, c, mailbox, "a@example.com")

			rec = c.do(http.MethodGet, "/reminders", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `[]`, rec.Body.String())

			rec = c.do(http.MethodPost, "/reminders", map[string]any{
				"title": "Buy milk", "location": map[string]float64{"lat": 52.5, "lng": 13.4}, "radius": 100,
			})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			rec = c.do(http.MethodGet, "/reminders/", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var list []map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			require.Len(t, list, 1)
			assert.Equal(t, "Buy milk", list[0]["title"])

			c.token = corrupt(c.token)
			rec = c.do(http.MethodGet, "/reminders", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid or expired token", decode(t, rec)["message"])
		})
	}
}

func TestLoginBeforeVerification(t *testing.T) {
	mailbox := testutil.NewMailbox()
	c := newClient(t, config.DriverMemory, mailbox)

	rec := c.do(http.MethodPost, "/auth/signup", map[string]string{
		"email": "a@example.com", "password": "pw", "publicKey": "pk",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.do(http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["needsVerification"])
	assert.NotContains(t, body, "token")
	assert.Equal(t, 2, mailbox.Count("a@example.com"))
}

func TestLoginRateLimit(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())

	for range 10 {
		rec := c.do(http.MethodPost, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "x"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := c.do(http.MethodPost, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many authentication attempts, please try again later.", decode(t, rec)["message"])
}

func TestLoginRateLimit_IgnoresForwardedFor(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())
	login := map[string]string{"email": "nobody@example.com", "password": "x"}

	for i := range 10 {
		rec := c.doFrom("203.0.113.7:5555", fmt.Sprintf("10.0.0.%d", i), http.MethodPost, "/auth/login", login)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := c.doFrom("203.0.113.7:5555", "10.0.0.99", http.MethodPost, "/auth/login", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = c.doFrom("203.0.113.8:5555", "", http.MethodPost, "/auth/login", login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimit_TrustedProxy(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.Server.TrustedProxies = []string{"203.0.113.0/24"}
	c := newClientWithConfig(t, cfg, testutil.NewMailbox())
	login := map[string]string{"email": "nobody@example.com", "password": "x"}

	for i := range 15 {
		rec := c.doFrom("203.0.113.7:5555", fmt.Sprintf("198.51.100.%d", i), http.MethodPost, "/auth/login", login)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	// Headers from an untrusted peer do not pick the client
	for i := range 10 {
		rec := c.doFrom("192.0.2.50:5555", fmt.Sprintf("198.51.100.%d", 100+i), http.MethodPost, "/auth/login", login)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := c.doFrom("192.0.2.50:5555", "198.51.100.200", http.MethodPost, "/auth/login", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSignupRateLimit_CreatesNoUser(t *testing.T) {
	mailbox := testutil.NewMailbox()
	st := memstore.New()
	srv, err := server.New(testConfig(config.DriverMemory), server.WithStore(st), server.WithMailer(mailbox))
	require.NoError(t, err)
	c := &client{t: t, handler: srv.Handler()}

	for i := range 10 {
		rec := c.do(http.MethodPost, "/auth/signup", map[string]string{
			"email": fmt.Sprintf("user%d@example.com", i), "password": "pw", "publicKey": "pk",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := c.do(http.MethodPost, "/auth/signup", map[string]string{
		"email": "late@example.com", "password": "pw", "publicKey": "pk",
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many authentication attempts, please try again later.", decode(t, rec)["message"])

	stats, err := st.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Users)
	assert.Zero(t, mailbox.Count("late@example.com"))
}

func TestVerifyRateLimit(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())

	for range 5 {
		rec := c.do(http.MethodPost, "/auth/verify-email", map[string]string{"code": "000000"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := c.do(http.MethodPost, "/auth/verify-email", map[string]string{"code": "000000"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many verification attempts, please try again later.", decode(t, rec)["message"])

	rec = c.do(http.MethodPost, "/auth/resend-verification", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// The signup and login limiter keeps its own count
	rec = c.do(http.MethodPost, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResendRateLimit(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())

	for range 5 {
		rec := c.do(http.MethodPost, "/auth/resend-verification", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := c.do(http.MethodPost, "/auth/resend-verification", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many verification attempts, please try again later.", decode(t, rec)["message"])
}

func TestIndexAndHealth(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())

	rec := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ReMind Backend API", body["name"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "memory", body["database"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = c.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestUnknownRoute(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())

	rec := c.do(http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode(t, rec)["message"])
}

func TestBodyLimit(t *testing.T) {
	c := newClient(t, config.DriverMemory, testutil.NewMailbox())

	rec := c.do(http.MethodPost, "/auth/signup", map[string]string{
		"email": "a@example.com", "password": strings.Repeat("x", 2<<20), "publicKey": "pk",
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDeleteAccountThroughAPI(t *testing.T) {
	mailbox := testutil.NewMailbox()
	st := memstore.New()
	srv, err := server.New(testConfig(config.DriverMemory), server.WithStore(st), server.WithMailer(mailbox))
	require.NoError(t, err)
	c := &client{t: t, handler: srv.Handler()}

	signupAndVerify(t, c, mailbox, "a@example.com")
	rec := c.do(http.MethodPost, "/reminders", map[string]any{"title": "Milk"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.do(http.MethodDelete, "/auth/delete-account", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account deleted successfully", decode(t, rec)["message"])

	stats, err := st.Stats(t.Context())
	require.NoError(t, err)
	assert.Zero(t, stats.Users)
	assert.Zero(t, stats.Reminders)
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/remind/internal/database"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/repository"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestStore returns a migrated in-memory SQLite store.
func NewTestStore(t *testing.T) store.Store {
	t.Helper()
	_, repo := NewTestDB(t)
	return repo
}

// NewTestUser creates an unverified test user.
func NewTestUser(t *testing.T, users store.Users, email string) *models.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), email, "test-hash", "test-public-key")
	require.NoError(t, err)
	return user
}

// NewTestReminder creates an active reminder for a user.
func NewTestReminder(t *testing.T, reminders store.Reminders, userID int64, title string) *models.Reminder {
	t.Helper()
	r := &models.Reminder{
		UserID:   userID,
		Title:    title,
		Location: models.JSON(`{"lat":48.137,"lng":11.575}`),
		Radius:   150,
	}
	require.NoError(t, reminders.CreateReminder(context.Background(), r))
	return r
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Mailbox records verification codes instead of sending them.
type Mailbox struct {
	mu    sync.Mutex
	codes map[string][]string
	Err   error
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{codes: make(map[string][]string)}
}

// SendVerificationCode records code for to. It returns m.Err when set.
func (m *Mailbox) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.codes[to] = append(m.codes[to], code)
	return nil
}

// LastCode returns the most recent code sent to email.
func (m *Mailbox) LastCode(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := m.codes[email]
	require.NotEmpty(t, codes, "no verification code sent to %s", email)
	return codes[len(codes)-1]
}

// Count returns how many codes were sent to email.
func (m *Mailbox) Count(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes[email])
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates a JSON HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

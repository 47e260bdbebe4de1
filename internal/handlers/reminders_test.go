// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"codeberg.org/oliverandrich/remind/internal/handlers"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/reminders"
	"codeberg.org/oliverandrich/remind/internal/store"
	"codeberg.org/oliverandrich/remind/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reminderFixture struct {
	h     *handlers.ReminderHandlers
	e     *echo.Echo
	store store.Store
	user  *models.User
}

func newReminderFixture(t *testing.T) *reminderFixture {
	t.Helper()
	st := testutil.NewTestStore(t)
	return &reminderFixture{
		h:     handlers.NewReminders(reminders.NewService(st)),
		e:     newEcho(),
		store: st,
		user:  testutil.NewTestUser(t, st, "a@example.com"),
	}
}

type call struct {
	target string
	body   string
	id     string
	user   *models.User
}

// run invokes fn as the fixture user unless call.user is set.
func (f *reminderFixture) run(t *testing.T, fn echo.HandlerFunc, method string, cl call) (int, []byte, error) {
	t.Helper()
	var body io.Reader
	if cl.body != "" {
		body = strings.NewReader(cl.body)
	}
	target := cl.target
	if target == "" {
		target = "/reminders"
	}
	c, rec := testutil.NewEchoContext(f.e, method, target, body)
	if cl.id != "" {
		c.SetParamNames("id")
		c.SetParamValues(cl.id)
	}
	user := cl.user
	if user == nil {
		user = f.user
	}
	authenticate(c, user)

	if err := fn(c); err != nil {
		return 0, nil, err
	}
	return rec.Code, rec.Body.Bytes(), nil
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestReminderHandlers_Create(t *testing.T) {
	f := newReminderFixture(t)

	status, body, err := f.run(t, f.h.Create, http.MethodPost, call{
		body: `{"title":"Buy milk","description":"2 liters","location":{"lat":52.5,"lng":13.4},"radius":200}`,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	var r models.Reminder
	require.NoError(t, json.Unmarshal(body, &r))
	assert.NotZero(t, r.ID)
	assert.Equal(t, f.user.ID, r.UserID)
	assert.Equal(t, "Buy milk", r.Title)
	assert.Equal(t, models.StatusActive, r.Status)
	assert.Equal(t, 200, r.Radius)
	assert.JSONEq(t, `{"lat":52.5,"lng":13.4}`, string(r.Location))
}

func TestReminderHandlers_CreateRequiresTitle(t *testing.T) {
	f := newReminderFixture(t)

	_, _, err := f.run(t, f.h.Create, http.MethodPost, call{body: `{"description":"x"}`})

	assert.EqualError(t, err, "title is required")
}

func TestReminderHandlers_List(t *testing.T) {
	f := newReminderFixture(t)
	first := testutil.NewTestReminder(t, f.store, f.user.ID, "First")
	testutil.NewTestReminder(t, f.store, f.user.ID, "Second")
	_, err := reminders.NewService(f.store).Archive(t.Context(), f.user.ID, first.ID)
	require.NoError(t, err)

	status, body, err := f.run(t, f.h.List, http.MethodGet, call{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	var active []models.Reminder
	require.NoError(t, json.Unmarshal(body, &active))
	require.Len(t, active, 1)
	assert.Equal(t, "Second", active[0].Title)

	_, body, err = f.run(t, f.h.List, http.MethodGet, call{target: "/reminders?status=archived"})
	require.NoError(t, err)
	var archived []models.Reminder
	require.NoError(t, json.Unmarshal(body, &archived))
	require.Len(t, archived, 1)
	assert.Equal(t, "First", archived[0].Title)

	_, _, err = f.run(t, f.h.List, http.MethodGet, call{target: "/reminders?status=deleted"})
	assert.ErrorIs(t, err, reminders.ErrInvalidStatus)
}

func TestReminderHandlers_ListEmpty(t *testing.T) {
	f := newReminderFixture(t)

	_, body, err := f.run(t, f.h.List, http.MethodGet, call{})

	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestReminderHandlers_Update(t *testing.T) {
	f := newReminderFixture(t)
	r := testutil.NewTestReminder(t, f.store, f.user.ID, "Old")
	other := testutil.NewTestUser(t, f.store, "b@example.com")

	status, body, err := f.run(t, f.h.Update, http.MethodPatch, call{id: idString(r.ID), body: `{"title":"New"}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	var updated models.Reminder
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, 150, updated.Radius)

	_, _, err = f.run(t, f.h.Update, http.MethodPatch, call{id: idString(r.ID), body: `{}`})
	assert.ErrorIs(t, err, reminders.ErrNoUpdates)

	_, _, err = f.run(t, f.h.Update, http.MethodPatch, call{id: idString(r.ID), body: `{"title":"Mine"}`, user: other})
	assert.ErrorIs(t, err, reminders.ErrForbidden)

	_, _, err = f.run(t, f.h.Update, http.MethodPatch, call{id: "9999", body: `{"title":"x"}`})
	assert.ErrorIs(t, err, reminders.ErrNotFound)

	_, _, err = f.run(t, f.h.Update, http.MethodPatch, call{id: "abc", body: `{"title":"x"}`})
	assert.ErrorIs(t, err, reminders.ErrNotFound)
}

func TestReminderHandlers_DeleteAndArchive(t *testing.T) {
	f := newReminderFixture(t)
	a := testutil.NewTestReminder(t, f.store, f.user.ID, "A")
	b := testutil.NewTestReminder(t, f.store, f.user.ID, "B")

	status, body, err := f.run(t, f.h.Archive, http.MethodPost, call{id: idString(a.ID)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	var archived models.Reminder
	require.NoError(t, json.Unmarshal(body, &archived))
	assert.Equal(t, models.StatusArchived, archived.Status)
	assert.NotNil(t, archived.ArchivedAt)

	_, body, err = f.run(t, f.h.Delete, http.MethodDelete, call{id: idString(b.ID)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Reminder deleted successfully"}`, string(body))

	_, _, err = f.run(t, f.h.Delete, http.MethodDelete, call{id: idString(b.ID)})
	assert.ErrorIs(t, err, reminders.ErrNotFound)
}

func TestReminderHandlers_Batch(t *testing.T) {
	f := newReminderFixture(t)
	a := testutil.NewTestReminder(t, f.store, f.user.ID, "A")
	b := testutil.NewTestReminder(t, f.store, f.user.ID, "B")
	c := testutil.NewTestReminder(t, f.store, f.user.ID, "C")
	other := testutil.NewTestUser(t, f.store, "b@example.com")
	foreign := testutil.NewTestReminder(t, f.store, other.ID, "Foreign")

	_, body, err := f.run(t, f.h.BatchArchive, http.MethodPost, call{
		body: `{"ids":[` + idString(a.ID) + `,` + idString(foreign.ID) + `]}`,
	})
	require.NoError(t, err)
	var archived []models.Reminder
	require.NoError(t, json.Unmarshal(body, &archived))
	require.Len(t, archived, 1)
	assert.Equal(t, a.ID, archived[0].ID)

	_, body, err = f.run(t, f.h.BatchDelete, http.MethodPost, call{
		body: `{"ids":[` + idString(b.ID) + `,` + idString(c.ID) + `,` + idString(foreign.ID) + `]}`,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"2 reminders deleted successfully"}`, string(body))

	_, err = f.store.GetReminder(t.Context(), foreign.ID)
	assert.NoError(t, err)
}

func TestReminderHandlers_BatchRequiresArray(t *testing.T) {
	f := newReminderFixture(t)

	for _, body := range []string{`{}`, `{"ids":5}`, `{"ids":"1,2"}`, `{"ids":null}`, `{"ids":["a"]}`} {
		t.Run(body, func(t *testing.T) {
			_, _, err := f.run(t, f.h.BatchDelete, http.MethodPost, call{body: body})
			assert.EqualError(t, err, "ids must be an array")
		})
	}
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package reminders_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/remind/internal/memstore"
	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/services/reminders"
	"codeberg.org/oliverandrich/remind/internal/store"
	"codeberg.org/oliverandrich/remind/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*reminders.Service, store.Store, *models.User, *models.User) {
	t.Helper()
	s := memstore.New()
	clock := testutil.NewClock()
	alice := testutil.NewTestUser(t, s, "alice@example.com")
	bob := testutil.NewTestUser(t, s, "bob@example.com")
	return reminders.NewService(s, reminders.WithClock(clock.Now)), s, alice, bob
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateAndList(t *testing.T) {
	svc, _, alice, bob := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice.ID, reminders.CreateParams{
		Title:    "Buy milk",
		Location: models.JSON(`{"lat":1,"lng":2}`),
		Radius:   100,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.Equal(t, models.StatusActive, created.Status)

	list, err := svc.List(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Buy milk", list[0].Title)
	assert.JSONEq(t, `{"lat":1,"lng":2}`, string(list[0].Location))

	list, err = svc.List(ctx, bob.ID, models.StatusActive)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_InvalidStatus(t *testing.T) {
	svc, _, alice, _ := setup(t)

	_, err := svc.List(context.Background(), alice.ID, "deleted")

	assert.ErrorIs(t, err, reminders.ErrInvalidStatus)
}

func TestUpdate(t *testing.T) {
	svc, s, alice, _ := setup(t)
	r := testutil.NewTestReminder(t, s, alice.ID, "Buy milk")

	updated, err := svc.Update(context.Background(), alice.ID, r.ID, models.ReminderPatch{
		Title: ptr("Buy oat milk"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.Equal(t, r.Radius, updated.Radius)
	assert.JSONEq(t, string(r.Location), string(updated.Location))
}

func TestUpdate_Errors(t *testing.T) {
	svc, s, alice, bob := setup(t)
	r := testutil.NewTestReminder(t, s, alice.ID, "Buy milk")
	patch := models.ReminderPatch{Radius: ptr(10)}

	_, err := svc.Update(context.Background(), bob.ID, r.ID, patch)
	assert.ErrorIs(t, err, reminders.ErrForbidden)

	_, err = svc.Update(context.Background(), alice.ID, r.ID+100, patch)
	assert.ErrorIs(t, err, reminders.ErrNotFound)

	_, err = svc.Update(context.Background(), alice.ID, r.ID, models.ReminderPatch{})
	assert.ErrorIs(t, err, reminders.ErrNoUpdates)
}

func TestDelete(t *testing.T) {
	svc, s, alice, bob := setup(t)
	r := testutil.NewTestReminder(t, s, alice.ID, "Buy milk")

	assert.ErrorIs(t, svc.Delete(context.Background(), bob.ID, r.ID), reminders.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), alice.ID, r.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), alice.ID, r.ID), reminders.ErrNotFound)
}

func TestArchive(t *testing.T) {
	svc, s, alice, bob := setup(t)
	ctx := context.Background()
	r := testutil.NewTestReminder(t, s, alice.ID, "Buy milk")

	_, err := svc.Archive(ctx, bob.ID, r.ID)
	assert.ErrorIs(t, err, reminders.ErrNotFound)

	archived, err := svc.Archive(ctx, alice.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, archived.Status)
	assert.NotNil(t, archived.ArchivedAt)

	active, err := svc.List(ctx, alice.ID, models.StatusActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	list, err := svc.List(ctx, alice.ID, models.StatusArchived)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBatchArchiveAndDelete(t *testing.T) {
	svc, s, alice, bob := setup(t)
	ctx := context.Background()
	a1 := testutil.NewTestReminder(t, s, alice.ID, "one")
	a2 := testutil.NewTestReminder(t, s, alice.ID, "two")
	b1 := testutil.NewTestReminder(t, s, bob.ID, "bob's")

	archived, err := svc.BatchArchive(ctx, alice.ID, []int64{a1.ID, b1.ID})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, a1.ID, archived[0].ID)

	n, err := svc.BatchDelete(ctx, alice.ID, []int64{a1.ID, a2.ID, b1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.GetReminder(ctx, b1.ID)
	assert.NoError(t, err)
}

func TestAll(t *testing.T) {
	svc, s, alice, _ := setup(t)
	ctx := context.Background()
	testutil.NewTestReminder(t, s, alice.ID, "one")
	r2 := testutil.NewTestReminder(t, s, alice.ID, "two")
	_, err := svc.Archive(ctx, alice.ID, r2.ID)
	require.NoError(t, err)

	all, err := svc.All(ctx, alice.ID)

	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAll_Empty(t *testing.T) {
	svc, _, alice, _ := setup(t)

	all, err := svc.All(context.Background(), alice.ID)

	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

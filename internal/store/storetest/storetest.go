// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storetest runs the behaviour every store.Store implementation must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateUser", testCreateUser},
		{"CreateUser_Duplicate", testCreateUserDuplicate},
		{"CreateUser_ConcurrentDuplicates", testCreateUserConcurrent},
		{"GetUser_NotFound", testGetUserNotFound},
		{"MarkUserVerified", testMarkUserVerified},
		{"UpdateUserPassword", testUpdateUserPassword},
		{"VerificationCode_Consume", testConsumeCode},
		{"VerificationCode_Expired", testConsumeExpiredCode},
		{"VerificationCode_Superseded", testReplaceCodeSupersedes},
		{"VerificationCode_DeleteExpired", testDeleteExpiredCodes},
		{"DeleteUser_Cascades", testDeleteUserCascades},
		{"Reminders_CRUD", testRemindersCRUD},
		{"Reminders_Ownership", testRemindersOwnership},
		{"Reminders_Batch", testRemindersBatch},
		{"Settings_Upsert", testSettingsUpsert},
		{"Stats", testStats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func createUser(t *testing.T, s store.Store, email string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), email, "hash-"+email, "pk-"+email)
	require.NoError(t, err)
	return user
}

func createReminder(t *testing.T, s store.Store, userID int64, title string) *models.Reminder {
	t.Helper()
	r := &models.Reminder{
		UserID:   userID,
		Title:    title,
		Location: models.JSON(`{"lat":52.52,"lng":13.405}`),
		Radius:   100,
	}
	require.NoError(t, s.CreateReminder(context.Background(), r))
	return r
}

func testCreateUser(t *testing.T, s store.Store) {
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "a@example.com", "hash", "pk")

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.False(t, user.Verified)
	assert.NotZero(t, user.CreatedAt)

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.Equal(t, "pk", byEmail.PublicKey)

	byID, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", byID.Email)

	// Email matching is exact.
	_, err = s.GetUserByEmail(ctx, "A@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCreateUserDuplicate(t *testing.T, s store.Store) {
	createUser(t, s, "a@example.com")

	_, err := s.CreateUser(context.Background(), "a@example.com", "other", "other")

	assert.ErrorIs(t, err, store.ErrConflict)
}

func testCreateUserConcurrent(t *testing.T, s store.Store) {
	const attempts = 8
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(context.Background(), "race@example.com", "hash", "pk")
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, store.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())
}

func testGetUserNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.MarkUserVerified(ctx, 999), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateUserPassword(ctx, 999, "x"), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, 999), store.ErrNotFound)
}

func testMarkUserVerified(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := createUser(t, s, "a@example.com")

	require.NoError(t, s.MarkUserVerified(ctx, user.ID))

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
}

func testUpdateUserPassword(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := createUser(t, s, "a@example.com")

	require.NoError(t, s.UpdateUserPassword(ctx, user.ID, "new-hash"))

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func testConsumeCode(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	createUser(t, s, "a@example.com")
	require.NoError(t, s.ReplaceVerificationCode(ctx, "a@example.com", "123456", now.Add(15*time.Minute)))

	email, err := s.ConsumeVerificationCode(ctx, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)

	// Single use.
	_, err = s.ConsumeVerificationCode(ctx, "123456", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ConsumeVerificationCode(ctx, "654321", now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConsumeExpiredCode(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	createUser(t, s, "a@example.com")
	require.NoError(t, s.ReplaceVerificationCode(ctx, "a@example.com", "123456", now.Add(15*time.Minute)))

	_, err := s.ConsumeVerificationCode(ctx, "123456", now.Add(16*time.Minute))

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testReplaceCodeSupersedes(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	createUser(t, s, "a@example.com")
	require.NoError(t, s.ReplaceVerificationCode(ctx, "a@example.com", "111111", now.Add(15*time.Minute)))
	require.NoError(t, s.ReplaceVerificationCode(ctx, "a@example.com", "222222", now.Add(15*time.Minute)))

	_, err := s.ConsumeVerificationCode(ctx, "111111", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	email, err := s.ConsumeVerificationCode(ctx, "222222", now)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
}

func testDeleteExpiredCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	createUser(t, s, "old@example.com")
	createUser(t, s, "new@example.com")
	require.NoError(t, s.ReplaceVerificationCode(ctx, "old@example.com", "111111", now.Add(-time.Minute)))
	require.NoError(t, s.ReplaceVerificationCode(ctx, "new@example.com", "222222", now.Add(time.Minute)))

	n, err := s.DeleteExpiredVerificationCodes(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	email, err := s.ConsumeVerificationCode(ctx, "222222", now)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)
}

func testDeleteUserCascades(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	user := createUser(t, s, "gone@example.com")
	other := createUser(t, s, "stay@example.com")
	reminder := createReminder(t, s, user.ID, "Buy milk")
	kept := createReminder(t, s, other.ID, "Walk dog")
	require.NoError(t, s.ReplaceVerificationCode(ctx, user.Email, "123456", now.Add(time.Hour)))
	_, err := s.UpsertSettings(ctx, user.ID, models.SettingsPatch{}, now)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, user.ID))

	_, err = s.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, user.Email)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetReminder(ctx, reminder.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSettings(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeVerificationCode(ctx, "123456", now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetReminder(ctx, kept.ID)
	assert.NoError(t, err)

	// The email is free again.
	_, err = s.CreateUser(ctx, user.Email, "hash", "pk")
	assert.NoError(t, err)
}

func testRemindersCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := createUser(t, s, "a@example.com")

	first := createReminder(t, s, user.ID, "First")
	second := createReminder(t, s, user.ID, "Second")
	assert.NotZero(t, first.ID)
	assert.Equal(t, models.StatusActive, first.Status)

	active, err := s.ListReminders(ctx, user.ID, models.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID, "newest first")
	assert.JSONEq(t, `{"lat":52.52,"lng":13.405}`, string(active[0].Location))

	first.Title = "First (edited)"
	first.Radius = 300
	require.NoError(t, s.UpdateReminder(ctx, first))

	got, err := s.GetReminder(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First (edited)", got.Title)
	assert.Equal(t, 300, got.Radius)

	require.NoError(t, s.DeleteReminder(ctx, user.ID, second.ID))
	assert.ErrorIs(t, s.DeleteReminder(ctx, user.ID, second.ID), store.ErrNotFound)

	archived, err := s.ListReminders(ctx, user.ID, models.StatusArchived)
	require.NoError(t, err)
	assert.Empty(t, archived)
	assert.NotNil(t, archived)
}

func testRemindersOwnership(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := createUser(t, s, "owner@example.com")
	intruder := createUser(t, s, "intruder@example.com")
	reminder := createReminder(t, s, owner.ID, "Private")

	assert.ErrorIs(t, s.DeleteReminder(ctx, intruder.ID, reminder.ID), store.ErrNotFound)

	forged := *reminder
	forged.UserID = intruder.ID
	forged.Title = "Hijacked"
	assert.ErrorIs(t, s.UpdateReminder(ctx, &forged), store.ErrNotFound)

	archived, err := s.ArchiveReminders(ctx, intruder.ID, []int64{reminder.ID}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, archived)

	n, err := s.DeleteReminders(ctx, intruder.ID, []int64{reminder.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := s.GetReminder(ctx, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
	assert.Equal(t, models.StatusActive, got.Status)

	list, err := s.ListReminders(ctx, intruder.ID, models.StatusActive)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testRemindersBatch(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := createUser(t, s, "a@example.com")
	r1 := createReminder(t, s, user.ID, "One")
	r2 := createReminder(t, s, user.ID, "Two")
	r3 := createReminder(t, s, user.ID, "Three")
	at := time.Now().UTC()

	archived, err := s.ArchiveReminders(ctx, user.ID, []int64{r2.ID, r1.ID, 9999}, at)
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.Equal(t, r1.ID, archived[0].ID)
	assert.Equal(t, r2.ID, archived[1].ID)
	for _, r := range archived {
		assert.Equal(t, models.StatusArchived, r.Status)
		require.NotNil(t, r.ArchivedAt)
		assert.WithinDuration(t, at, *r.ArchivedAt, time.Second)
	}

	active, err := s.ListReminders(ctx, user.ID, models.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, r3.ID, active[0].ID)

	n, err := s.DeleteReminders(ctx, user.ID, []int64{r1.ID, r3.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteReminders(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testSettingsUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()
	user := createUser(t, s, "a@example.com")

	_, err := s.GetSettings(ctx, user.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	dark := "dark"
	created, err := s.UpsertSettings(ctx, user.ID, models.SettingsPatch{Theme: &dark}, now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, "dark", created.Theme)
	assert.True(t, created.Notifications)
	assert.Equal(t, models.DefaultLocationAccuracy, created.LocationAccuracy)

	off := false
	updated, err := s.UpsertSettings(ctx, user.ID, models.SettingsPatch{Notifications: &off}, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "dark", updated.Theme, "unset fields stay unchanged")
	assert.False(t, updated.Notifications)

	got, err := s.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.Notifications)
	assert.Equal(t, "dark", got.Theme)
}

func testStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := createUser(t, s, "a@example.com")
	createUser(t, s, "b@example.com")
	createReminder(t, s, user.ID, "One")

	stats, err := s.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, store.Stats{Users: 2, Reminders: 1}, stats)
	assert.NotEmpty(t, s.Backend())
}

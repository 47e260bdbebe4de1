// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
	"codeberg.org/oliverandrich/remind/internal/store/storetest"
	"codeberg.org/oliverandrich/remind/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.NotNil(t, repo.DB())
	assert.Equal(t, "SQLite", repo.Backend())
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		_, repo := testutil.NewTestDB(t)
		return repo
	})
}

func TestReplaceVerificationCode_KeepsOneRowPerEmail(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "a@example.com")
	expires := time.Now().Add(15 * time.Minute)

	for _, code := range []string{"111111", "222222", "333333"} {
		require.NoError(t, repo.ReplaceVerificationCode(ctx, user.Email, code, expires))
	}

	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM verification_codes WHERE email = ?`, user.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReplaceVerificationCode_RequiresUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.ReplaceVerificationCode(context.Background(), "nobody@example.com", "123456", time.Now())

	assert.Error(t, err)
}

func TestDeleteUser_NoOrphans(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "a@example.com")
	testutil.NewTestReminder(t, repo, user.ID, "One")
	testutil.NewTestReminder(t, repo, user.ID, "Two")
	_, err := repo.UpsertSettings(ctx, user.ID, models.SettingsPatch{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceVerificationCode(ctx, user.Email, "123456", time.Now().Add(time.Hour)))

	require.NoError(t, repo.DeleteUser(ctx, user.ID))

	for _, table := range []string{"users", "reminders", "settings", "verification_codes"} {
		var count int
		require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM "+table))
		assert.Zero(t, count, table)
	}
}

func TestCreateReminder_NullLocation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "a@example.com")
	r := &models.Reminder{UserID: user.ID, Title: "No place"}

	require.NoError(t, repo.CreateReminder(ctx, r))

	got, err := repo.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "null", string(got.Location))
	assert.Nil(t, got.ArchivedAt)
}

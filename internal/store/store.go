// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package store defines the persistence contract shared by the SQL repository and the
// in-memory store.
package store

import (
	"context"
	"errors"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist (or is not owned by the caller).
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("record already exists")
)

// Users persists accounts.
type Users interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateUser inserts an unverified user; it fails with ErrConflict if the email is taken.
	// The check and the insert are a single atomic step.
	CreateUser(ctx context.Context, email, passwordHash, publicKey string) (*models.User, error)
	MarkUserVerified(ctx context.Context, id int64) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	// DeleteUser removes the user with all reminders, settings and verification codes.
	DeleteUser(ctx context.Context, id int64) error
}

// VerificationCodes persists email verification codes, at most one per email.
type VerificationCodes interface {
	// ReplaceVerificationCode stores code for email, superseding any previous code.
	ReplaceVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error
	// ConsumeVerificationCode returns the email owning a code that is still valid at now and
	// deletes the codes of that email. Unknown and expired codes both yield ErrNotFound.
	ConsumeVerificationCode(ctx context.Context, code string, now time.Time) (string, error)
	DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error)
}

// Reminders persists reminders. Methods taking a userID only touch rows owned by it.
type Reminders interface {
	ListReminders(ctx context.Context, userID int64, status string) ([]models.Reminder, error)
	GetReminder(ctx context.Context, id int64) (*models.Reminder, error)
	CreateReminder(ctx context.Context, r *models.Reminder) error
	UpdateReminder(ctx context.Context, r *models.Reminder) error
	DeleteReminder(ctx context.Context, userID, id int64) error
	ArchiveReminders(ctx context.Context, userID int64, ids []int64, at time.Time) ([]models.Reminder, error)
	DeleteReminders(ctx context.Context, userID int64, ids []int64) (int64, error)
}

// Settings persists per-user settings.
type Settings interface {
	GetSettings(ctx context.Context, userID int64) (*models.Settings, error)
	// UpsertSettings creates the row with defaults for unset fields, or applies patch to it.
	UpsertSettings(ctx context.Context, userID int64, patch models.SettingsPatch, now time.Time) (*models.Settings, error)
}

// Stats are the record counts reported by the health endpoint.
type Stats struct {
	Users     int64 `db:"users"`
	Reminders int64 `db:"reminders"`
}

// Store is the full persistence contract.
type Store interface {
	Users
	VerificationCodes
	Reminders
	Settings
	Stats(ctx context.Context) (Stats, error)
	// Backend names the storage engine for diagnostics.
	Backend() string
}

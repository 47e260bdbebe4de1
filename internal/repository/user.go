// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/vinovest/sqlx"
)

// CreateUser inserts an unverified user. A taken email yields store.ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, publicKey string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		PublicKey:    publicKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// ON CONFLICT DO NOTHING returns no row for a duplicate, which keeps the
	// uniqueness check and the insert in one statement.
	err := r.db.GetContext(ctx, &user.ID, r.db.Rebind(
		`INSERT INTO users (email, password_hash, public_key, verified, created_at, updated_at)
		 VALUES (?, ?, ?, FALSE, ?, ?)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id`),
		email, passwordHash, publicKey, now, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT * FROM users WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by exact email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(`SELECT * FROM users WHERE email = ?`), email)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// MarkUserVerified flags the user as verified.
func (r *Repository) MarkUserVerified(ctx context.Context, id int64) error {
	return expectRows(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET verified = TRUE, updated_at = ? WHERE id = ?`),
		time.Now().UTC(), id))
}

// UpdateUserPassword replaces the stored password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return expectRows(r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		passwordHash, time.Now().UTC(), id))
}

// DeleteUser removes the user and everything it owns.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		statements := []string{
			`DELETE FROM verification_codes WHERE email IN (SELECT email FROM users WHERE id = ?)`,
			`DELETE FROM reminders WHERE user_id = ?`,
			`DELETE FROM settings WHERE user_id = ?`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
				return err
			}
		}
		return expectRows(tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id))
	})
}

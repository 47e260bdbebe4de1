// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/remind/internal/models"
	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/vinovest/sqlx"
)

// ReplaceVerificationCode stores the code for email. The email column is unique, so the
// upsert supersedes any earlier code atomically.
func (r *Repository) ReplaceVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO verification_codes (email, code, expires_at, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		   code = excluded.code,
		   expires_at = excluded.expires_at,
		   created_at = excluded.created_at`),
		email, code, expiresAt.UTC(), time.Now().UTC())
	return err
}

// ConsumeVerificationCode returns the email of a code still valid at now and deletes it.
func (r *Repository) ConsumeVerificationCode(ctx context.Context, code string, now time.Time) (string, error) {
	var email string
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var codes []models.VerificationCode
		err := tx.SelectContext(ctx, &codes,
			tx.Rebind(`SELECT * FROM verification_codes WHERE code = ? ORDER BY created_at DESC`), code)
		if err != nil {
			return err
		}

		for i := range codes {
			if codes[i].Expired(now) {
				continue
			}
			// A concurrent consumer that deleted the row first wins.
			err := expectRows(tx.ExecContext(ctx,
				tx.Rebind(`DELETE FROM verification_codes WHERE email = ? AND code = ?`),
				codes[i].Email, code))
			if err != nil {
				return err
			}
			email = codes[i].Email
			return nil
		}
		return store.ErrNotFound
	})
	if err != nil {
		return "", err
	}
	return email, nil
}

// DeleteExpiredVerificationCodes purges codes that expired before now.
func (r *Repository) DeleteExpiredVerificationCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM verification_codes WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

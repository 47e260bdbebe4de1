// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository implements store.Store on SQLite or Postgres through sqlx.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"codeberg.org/oliverandrich/remind/internal/store"
	"github.com/vinovest/sqlx"
)

// Repository wraps sqlx for database operations.
type Repository struct {
	db *sqlx.DB
}

var _ store.Store = (*Repository)(nil)

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying sqlx DB for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// Backend names the database engine.
func (r *Repository) Backend() string {
	if r.db.DriverName() == "pgx" {
		return "PostgreSQL"
	}
	return "SQLite"
}

// Stats counts users and reminders.
func (r *Repository) Stats(ctx context.Context) (store.Stats, error) {
	var stats store.Stats
	err := r.db.GetContext(ctx, &stats,
		`SELECT (SELECT COUNT(*) FROM users) AS users, (SELECT COUNT(*) FROM reminders) AS reminders`)
	return stats, err
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// notFound maps sql.ErrNoRows to store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// expectRows returns store.ErrNotFound when a statement touched no row.
func expectRows(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

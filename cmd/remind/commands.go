// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/remind/internal/config"
	"codeberg.org/oliverandrich/remind/internal/database"
	"codeberg.org/oliverandrich/remind/internal/server"
	"codeberg.org/oliverandrich/remind/internal/services/cleanup"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

func migrateCommand() *cli.Command {
	step := func(name, usage string, fn func(*sqlx.DB) error) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: func(_ context.Context, cmd *cli.Command) error {
				return withDatabase(cmd, fn)
			},
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			step("up", "Apply all pending migrations", database.RunMigrations),
			step("down", "Roll back the last migration", database.MigrateDown),
			step("reset", "Roll back all migrations", database.MigrateReset),
			step("status", "Show the state of every migration", database.MigrateStatus),
		},
	}
}

// withDatabase connects without migrating and runs fn.
func withDatabase(cmd *cli.Command, fn func(*sqlx.DB) error) error {
	cfg := config.NewFromCLI(cmd)
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("the memory driver has no schema to migrate")
	}

	db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	return fn(db)
}

func runCleanup(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	st, release, err := server.OpenStore(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := release(); closeErr != nil {
			slog.Error("failed to close store", "error", closeErr)
		}
	}()

	res, err := cleanup.NewService(st).RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d expired verification codes\n", res.ExpiredCodes)
	return nil
}

// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/remind/internal/config"
	"codeberg.org/oliverandrich/remind/internal/database"
	"codeberg.org/oliverandrich/remind/internal/memstore"
	"codeberg.org/oliverandrich/remind/internal/repository"
	"codeberg.org/oliverandrich/remind/internal/store"
)

// OpenStore opens the configured store and applies pending migrations. The returned
// function releases it.
func OpenStore(cfg *config.DatabaseConfig) (store.Store, func() error, error) {
	if cfg.Driver == config.DriverMemory {
		slog.Warn("memory_store_selected", "detail", "data is lost on restart")
		return memstore.New(), func() error { return nil }, nil
	}

	db, err := database.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repository.New(db), db.Close, nil
}

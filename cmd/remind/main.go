// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/oliverandrich/remind/internal/config"
	"codeberg.org/oliverandrich/remind/internal/server"
	"github.com/urfave/cli/v3"
)

// Version is set via ldflags during build.
var Version = "2.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "remind",
		Usage:   "Location reminder API server",
		Version: Version,
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the API server",
				Action: server.Run,
			},
			migrateCommand(),
			{
				Name:   "cleanup",
				Usage:  "Delete expired verification codes once and exit",
				Action: runCleanup,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

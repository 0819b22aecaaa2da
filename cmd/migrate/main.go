// Command migrate applies the embedded schema migrations.
//
//	migrate up
//	migrate down [-steps N]
//	migrate version
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ecoserv/ecoserv/internal/app"
	"github.com/ecoserv/ecoserv/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping migrations")
		return
	}
	if err := run(os.Args[1:]); err != nil {
		slog.Default().Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up|down|version")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to revert (down only)")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	m, err := db.NewMigrator(cfg.PGDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("close migrator", slog.Any("error", err))
		}
	}()

	switch cmd {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(*steps); err != nil {
			return err
		}
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	logger.Info("schema version", slog.String("command", cmd), slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}

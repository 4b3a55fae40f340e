package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/todosync/internal/config"
	"github.com/randalmurphal/todosync/internal/db/driver"
)

// NewStore creates the snapshot store selected by cfg.Store.Driver.
// Relative default locations are resolved under baseDir.
func NewStore(ctx context.Context, baseDir string, cfg *config.Config, logger *slog.Logger) (Store, error) {
	path := cfg.StorePath(baseDir)

	switch cfg.Store.Driver {
	case config.DriverFile, "":
		return NewFileStore(path, logger), nil
	case config.DriverSQLite:
		return OpenSQLStore(ctx, driver.DialectSQLite, path, logger)
	case config.DriverPostgres:
		return OpenSQLStore(ctx, driver.DialectPostgres, cfg.Store.DSN, logger)
	case config.DriverBadger:
		return OpenBadgerStore(BadgerConfig{Path: path, Logger: logger})
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

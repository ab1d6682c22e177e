// Package store opens the license.Store backend named by the configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cheetahbyte/licensor/internal/config"
	"github.com/cheetahbyte/licensor/internal/license"
	"github.com/cheetahbyte/licensor/internal/store/memstore"
	"github.com/cheetahbyte/licensor/internal/store/mongostore"
	"github.com/cheetahbyte/licensor/internal/store/pgstore"
)

func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (license.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := mongostore.Open(ctx, mongostore.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := pgstore.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMemory:
		logger.Warn("using in-memory license store; licenses are lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

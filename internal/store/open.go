package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/addr2line-web/addr2line/internal/config"
)

// Open returns the Store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	driver := strings.ToLower(cfg.Store.Driver)
	slog.Info("opening artifact store", "driver", driver, "compress", cfg.Store.CompressBlobs)

	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.Store.SQLitePath, cfg.Store.CompressBlobs)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := OpenPostgres(ctx, cfg.Database, cfg.Store.CompressBlobs)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

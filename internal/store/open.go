// File: internal/store/open.go
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xkilldash9x/birdclip/internal/config"
)

// Open builds the backend named by the config. Drivers are validated at
// config load time; an unknown value here is a programming error.
func Open(ctx context.Context, cfg config.StoreConfig) (KeyValueStore, error) {
	switch cfg.Driver {
	case config.StoreDriverSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(cfg.DataDir, "birdclip.db")
		}
		return OpenSQLite(ctx, path)
	case config.StoreDriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case config.StoreDriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

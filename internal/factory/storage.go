package factory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/FrithiofJensen/openproject/internal/config"
	storepkg "github.com/FrithiofJensen/openproject/internal/store"
	storepg "github.com/FrithiofJensen/openproject/internal/store/postgres"
	storesqlite "github.com/FrithiofJensen/openproject/internal/store/sqlite"
)

// memoryPath selects a private in-memory SQLite database.
const memoryPath = ":memory:"

// NewStore opens the configured store and ensures its schema. The returned
// close func releases the connection pool.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, func() error, error) {
	var (
		db     *sql.DB
		err    error
		ensure func(context.Context, *sql.DB) error
		wrap   func(*sql.DB) storepkg.Store
	)
	switch cfg.DBDriver {
	case "sqlite":
		if cfg.SQLitePath == memoryPath {
			db, err = storesqlite.OpenMemory("activity-" + uuid.NewString())
		} else {
			db, err = storesqlite.Open(cfg.SQLitePath)
		}
		ensure, wrap = storesqlite.EnsureSchema, storesqlite.NewWithDB
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("ACTIVITY_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err = storepg.Open(cfg.PostgresDSN)
		ensure, wrap = storepg.EnsureSchema, storepg.NewWithDB
	default:
		return nil, nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}

	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := ensure(schemaCtx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure %s schema: %w", cfg.DBDriver, err)
	}
	log.Debug().Str("driver", cfg.DBDriver).Msg("store schema ensured")
	return wrap(db), db.Close, nil
}

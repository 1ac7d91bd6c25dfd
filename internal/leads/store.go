package leads

import (
	"context"
	"fmt"

	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/repository/memstore"
	"leadflow_backend/internal/leads/repository/sqlitestore"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/db"
	"leadflow_backend/platform/logger"
)

// Backend is an opened Conversation Store plus what the composition root
// needs to supervise it.
type Backend struct {
	Store repository.Store
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStore opens the store selected by cfg. Postgres connections run the
// embedded migrations before the store is returned.
func OpenStore(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (*Backend, error) {
	switch cfg.GetStoreDriver() {
	case config.StoreDriverPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("postgres store ready")
		return &Backend{
			Store: repository.New(pool, cfg.GetStoreTimeout()),
			Ping:  db.NewPoolChecker(pool).Ping,
			Close: pool.Close,
		}, nil

	case config.StoreDriverSQLite:
		store, err := sqlitestore.Open(ctx, cfg.GetSQLitePath(), cfg.GetStoreTimeout())
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store ready", "path", cfg.GetSQLitePath())
		return &Backend{
			Store: store,
			Ping:  store.Ping,
			Close: func() { _ = store.Close() },
		}, nil

	case config.StoreDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		store := memstore.New()
		return &Backend{Store: store, Ping: store.Ping, Close: func() {}}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.GetStoreDriver())
	}
}

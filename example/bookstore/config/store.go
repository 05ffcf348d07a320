package config

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/endpoint-contracts-go/contract"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/core"
	"github.com/AntonStoeckl/endpoint-contracts-go/example/bookstore/store"
)

// NewStore builds the configured book store and returns a function that releases its connections.
// A PostgreSQL store gets its table created and, if configured, the seed books upserted.
func NewStore(ctx context.Context, cfg StoreConfig, logger contract.Logger) (store.Store, func(), error) {
	noop := func() {}

	if cfg.Kind == StoreMemory {
		if !cfg.Seed {
			return store.NewMemory(), noop, nil
		}

		return store.NewMemory(core.SeedBooks()...), noop, nil
	}

	options := []store.PostgresOption{store.WithTableName(cfg.TableName)}
	if logger != nil {
		options = append(options, store.WithLogger(logger))
	}

	var (
		pg      store.Postgres
		closeFn func()
		err     error
	)

	switch cfg.Driver {
	case DriverPGXPool:
		pg, closeFn, err = newPGXPoolStore(ctx, cfg, options)
	case DriverSQLDB:
		db, openErr := NewSQLDB(ctx, cfg.DSN)
		if openErr != nil {
			return nil, noop, openErr
		}

		closeFn = func() { _ = db.Close() }
		pg, err = store.NewPostgresFromSQLDB(db, options...)
	case DriverSQLX:
		db, openErr := NewSQLX(ctx, cfg.DSN)
		if openErr != nil {
			return nil, noop, openErr
		}

		closeFn = func() { _ = db.Close() }
		pg, err = store.NewPostgresFromSQLX(db, options...)
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	if err != nil {
		if closeFn != nil {
			closeFn()
		}

		return nil, noop, err
	}

	if err := pg.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, noop, err
	}

	if cfg.Seed {
		if err := pg.Seed(ctx, core.SeedBooks()...); err != nil {
			closeFn()
			return nil, noop, err
		}
	}

	return pg, closeFn, nil
}

func newPGXPoolStore(ctx context.Context, cfg StoreConfig, options []store.PostgresOption) (store.Postgres, func(), error) {
	pool, err := NewPGXPool(ctx, cfg.DSN)
	if err != nil {
		return store.Postgres{}, nil, err
	}

	closeFn := pool.Close

	if cfg.ReplicaDSN == "" {
		pg, err := store.NewPostgresFromPGXPool(pool, options...)
		return pg, closeFn, err
	}

	replica, err := NewPGXPool(ctx, cfg.ReplicaDSN)
	if err != nil {
		pool.Close()
		return store.Postgres{}, nil, err
	}

	closeFn = func() {
		replica.Close()
		pool.Close()
	}

	pg, err := store.NewPostgresFromPGXPoolWithReplica(pool, replica, options...)

	return pg, closeFn, err
}

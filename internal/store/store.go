// Package store defines the key-value contract used for checkpoints and
// its memory, Badger and SQLite implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/steelman/internal/config"
	"github.com/fyrsmithlabs/steelman/internal/logging"
)

// ErrNotFound is returned by Load when the key is absent.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Store is a byte-oriented key-value store.
// Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(cfg config.StoreConfig, logger *logging.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "badger":
		bcfg := DefaultBadgerConfig()
		bcfg.Path = cfg.Path
		bcfg.Logger = logger
		return OpenBadger(bcfg)
	case "sqlite":
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

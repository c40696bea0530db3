package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
)

// keyPrefix namespaces credential keys inside a shared Badger database.
var keyPrefix = []byte("credential/")

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Dir is the database directory.
	Dir string

	// SyncWrites forces fsync on every write. Slower, safer.
	SyncWrites bool

	// Logger receives Badger's internal logging. Defaults to slog.Default.
	Logger *slog.Logger
}

// BadgerStore is a TokenStore backed by an embedded Badger database.
// Intended for server-side applications embedding the SDK that already
// run Badger, or that need credential storage for many client instances.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage: badger dir is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Store implements TokenStore.
func (s *BadgerStore) Store(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(keyPrefix, key...), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("storage: badger set: %w", err)
	}
	return nil
}

// Retrieve implements TokenStore.
func (s *BadgerStore) Retrieve(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append(keyPrefix, key...))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: badger get: %w", err)
	}
	return value, nil
}

// Clear implements TokenStore.
func (s *BadgerStore) Clear(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(append(keyPrefix, key...))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("storage: badger delete: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

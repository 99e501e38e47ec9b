package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v3"
)

// BadgerStore persists values in an embedded badger database.
type BadgerStore struct {
	db *badgerdb.DB
}

// OpenBadger opens (or creates) a badger database in dir. An empty dir opens
// an in-memory database.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badgerdb.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.SyncWrites = true
	opts.Logger = badgerLogger{logger: logger.With("component", "badger")}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, key string) (string, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("badger get %q: %w", key, err)
	}
	return string(value), nil
}

// Set implements Store.
func (s *BadgerStore) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

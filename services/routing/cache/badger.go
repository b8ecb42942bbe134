// Copyright (C) 2025 Alexandria Library (maintainers@alexandria-canon.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig holds configuration for the badger-backed store.
type BadgerConfig struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Useful
	// for testing.
	InMemory bool

	// SyncWrites enables synchronous writes. Cached routing results are
	// cheap to recompute, so the default is false.
	SyncWrites bool

	// Logger receives badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// BadgerStore persists cache entries in an embedded BadgerDB.
//
// Unlike MemoryStore it survives restarts, so a warm cache comes back after
// a deploy. Entries are written with badger's native TTL to bound disk usage;
// RoutingCache still performs the authoritative freshness check on read.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerStore opens a BadgerDB at the configured path, creating the
// directory if needed. The caller must Close the store when done.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache: path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("cache: create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger store: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Get implements Store.
func (s *BadgerStore) Get(key string) (Entry, bool, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: read entry %s: %w", key, err)
	}
	return entry, true, nil
}

// Set implements Store. A positive ttl becomes the badger entry TTL.
func (s *BadgerStore) Set(key string, entry Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: encode entry %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("cache: write entry %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("cache: delete entry %s: %w", key, err)
	}
	return nil
}

// Clear implements Store. Uses DropAll, which blocks writes briefly.
func (s *BadgerStore) Clear() error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("cache: clear store: %w", err)
	}
	return nil
}

// Len implements Store. Iterates keys only, skipping values.
func (s *BadgerStore) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache: count entries: %w", err)
	}
	return count, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Package store provides Badger DB-backed persistence for browser sessions.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

// Key prefixes for different data types
const (
	prefixSession = "s:" // Workspace snapshots keyed by session ID
	prefixMeta    = "m:" // Metadata (schema)
)

// ErrNotFound is returned when no snapshot is stored for an ID.
var ErrNotFound = errors.New("session not found")

// Option configures a Store.
type Option func(*badger.Options, *Store)

// WithTTL expires snapshots that have not been written for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(_ *badger.Options, s *Store) {
		s.ttl = ttl
	}
}

// InMemory keeps the database in memory only. The path is ignored.
func InMemory() Option {
	return func(o *badger.Options, _ *Store) {
		*o = o.WithInMemory(true).WithDir("").WithValueDir("")
	}
}

// Store keeps workspace snapshots in Badger.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates a store at the given path.
func Open(path string, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil

	s := &Store{}
	for _, opt := range opts {
		opt(&bopts, s)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	s.db = db

	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores the snapshot for id, replacing any previous one.
func (s *Store) Put(id string, snap workspace.Snapshot) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(id), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get returns the snapshot stored for id.
func (s *Store) Get(id string) (*workspace.Snapshot, error) {
	var snap workspace.Snapshot

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes the snapshot for id. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(id))
	})
}

// List returns the IDs of all stored sessions.
func (s *Store) List() ([]string, error) {
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSession)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefixSession):]))
		}
		return nil
	})
	return ids, err
}

// PurgeOlderThan deletes snapshots last written more than age ago and
// returns how many were removed.
func (s *Store) PurgeOlderThan(age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	var stale [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSession)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var snap workspace.Snapshot
				if err := json.Unmarshal(val, &snap); err != nil || snap.UpdatedAt.Before(cutoff) {
					stale = append(stale, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func sessionKey(id string) []byte {
	return []byte(prefixSession + id)
}

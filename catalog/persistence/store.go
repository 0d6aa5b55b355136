// Package persistence provides durable storage for catalog snapshots.
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/guileen/planlite/catalog"
	cerrors "github.com/guileen/planlite/catalog/errors"
)

const snapshotKeyPrefix = "\x00snapshot\x00"

// Store keeps named catalog documents in a Pebble keyspace. It backs the
// "catalog service" side of the planner: importers write documents here,
// planning sessions load them and build immutable snapshots.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a snapshot store at the given path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a catalog document under a name, replacing any previous
// version.
func (s *Store) Put(name string, doc *catalog.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog document: %w", err)
	}
	if err := s.db.Set(snapshotKey(name), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to persist catalog document: %w", err)
	}
	return nil
}

// Get loads the named catalog document. Missing names return
// ErrSnapshotNotFound.
func (s *Store) Get(name string) (*catalog.Document, error) {
	data, closer, err := s.db.Get(snapshotKey(name))
	if err == pebble.ErrNotFound {
		return nil, cerrors.ErrSnapshotNotFound.WithDetail("%q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog document: %w", err)
	}
	defer closer.Close()

	var doc catalog.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog document: %w", err)
	}
	return &doc, nil
}

// Delete removes the named catalog document. Deleting a missing name is
// not an error.
func (s *Store) Delete(name string) error {
	if err := s.db.Delete(snapshotKey(name), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete catalog document: %w", err)
	}
	return nil
}

// List returns the names of all stored catalog documents.
func (s *Store) List() ([]string, error) {
	lower := []byte(snapshotKeyPrefix)
	upper := []byte(snapshotKeyPrefix + "\xff")
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot store: %w", err)
	}
	defer iter.Close()

	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		names = append(names, string(iter.Key()[len(snapshotKeyPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot store: %w", err)
	}
	return names, nil
}

func snapshotKey(name string) []byte {
	return []byte(snapshotKeyPrefix + name)
}

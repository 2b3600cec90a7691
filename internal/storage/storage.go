// ABOUTME: Storage facade aggregating all per-table SQLite stores
// ABOUTME: Every other component reads and writes durable state through this type
package storage

import (
	"fmt"

	"github.com/harper/engage-standalone/internal/storage/sqlite"
)

// Storage owns all persisted entities of the agent.
type Storage struct {
	db *sqlite.DB

	Decisions *sqlite.DecisionStore
	Tokens    *sqlite.TokenStore
	Replay    *sqlite.ReplayStore
	Counters  *sqlite.CounterStore
	Breaker   *sqlite.BreakerStore
	Errors    *sqlite.ErrorLogStore
}

// NewStorage opens (or creates) the durable store. An empty path uses
// the XDG default location.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		path = sqlite.DefaultDBPath()
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	return wrap(db), nil
}

// NewStorageInMemory creates an in-memory store (for testing).
func NewStorageInMemory() (*Storage, error) {
	db, err := sqlite.OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("opening in-memory state store: %w", err)
	}
	return wrap(db), nil
}

func wrap(db *sqlite.DB) *Storage {
	return &Storage{
		db:        db,
		Decisions: sqlite.NewDecisionStore(db),
		Tokens:    sqlite.NewTokenStore(db),
		Replay:    sqlite.NewReplayStore(db),
		Counters:  sqlite.NewCounterStore(db),
		Breaker:   sqlite.NewBreakerStore(db),
		Errors:    sqlite.NewErrorLogStore(db),
	}
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.db.Path()
}

// Package store holds the in-memory transaction table and reloads it from a
// persisted source. The table is swapped wholesale on every reload; there are
// no partial updates.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/khimraj/budget-planner/internal/domain"
	"github.com/khimraj/budget-planner/internal/storage"
)

// Store owns the current transaction table. Safe for concurrent use; reads
// never block behind a reload in progress beyond the final swap.
type Store struct {
	src storage.Source
	log zerolog.Logger

	mu    sync.RWMutex
	table domain.Table
}

// New creates a store over the given source. The table starts empty; call
// Reload to populate it.
func New(src storage.Source, log zerolog.Logger) *Store {
	return &Store{src: src, log: log}
}

// Reload fetches the source and replaces the table with its content. A
// missing source yields an empty table and a warning, not an error. A
// malformed source is a load failure: the error is returned and the
// previously loaded table is left in place untouched.
func (s *Store) Reload(ctx context.Context) (domain.Table, error) {
	data, err := s.src.Fetch(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Msg("Transactions source not found, using empty table")
		empty := domain.Table{}
		s.swap(empty)
		return empty, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("fetch transactions source: %w", err)
	}

	table, err := ParseTable(data)
	if err != nil {
		return domain.Table{}, fmt.Errorf("parse transactions source: %w", err)
	}

	s.swap(table)
	s.log.Info().Int("rows", table.Len()).Msg("Loaded transactions")
	return table, nil
}

// Current returns the most recently loaded table without side effects.
func (s *Store) Current() domain.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

func (s *Store) swap(t domain.Table) {
	s.mu.Lock()
	s.table = t
	s.mu.Unlock()
}

package postgres

import (
	"context"
	"fmt"

	"facturo/internal/domain/numbering"
)

// CounterStore is the PostgreSQL implementation of numbering.CounterStore.
//
// The read-modify-write is a single upsert with RETURNING, so two
// concurrent allocations for the same (organization, type, year) can
// never observe the same prior value. Counter rows are written only
// through this statement and are never decremented or deleted.
type CounterStore struct {
	pool *Pool
}

// NewCounterStore creates a counter store on the given pool.
// Counter increments intentionally run on the pool, outside any
// surrounding business transaction: a rolled-back document write leaves
// a gap in the sequence, never a duplicate.
func NewCounterStore(pool *Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

// IncrementAndGet implements numbering.CounterStore.
func (s *CounterStore) IncrementAndGet(ctx context.Context, key numbering.CounterKey) (int64, error) {
	var current int64
	err := s.pool.QueryRow(ctx, `
        INSERT INTO document_counters (organization_id, doc_type, year, current_val)
        VALUES ($1, $2, $3, 1)
        ON CONFLICT (organization_id, doc_type, year)
        DO UPDATE SET current_val = document_counters.current_val + 1, updated_at = NOW()
        RETURNING current_val
	`, key.OrganizationID, key.Prefix, key.Year).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", key, err)
	}
	return current, nil
}

// Ensure compile-time interface compliance.
var _ numbering.CounterStore = (*CounterStore)(nil)

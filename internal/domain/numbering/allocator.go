package numbering

import (
	"context"
	"time"

	"facturo/internal/core/apperror"
	"facturo/pkg/logger"
)

// CounterStore is the storage capability behind the allocator.
// IncrementAndGet must execute as a single atomic operation: two
// concurrent calls for the same key may never observe the same prior
// value. The PostgreSQL implementation uses one
// INSERT ... ON CONFLICT ... DO UPDATE ... RETURNING statement.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, key CounterKey) (int64, error)
}

// Allocator issues legal document numbers.
//
// Allocation is NOT idempotent per call: every successful call consumes
// a new sequence value. Callers own the caller-side invariant of
// invoking Allocate at most once per document; a retry after an unknown
// outcome (timeout) yields a new number, never the lost one. Gaps
// caused by such crashes are acceptable, duplicates are not.
type Allocator struct {
	store CounterStore

	// now is the server-side clock; fiscal year is always determined
	// here, never from client input.
	now func() time.Time
}

// NewAllocator creates an allocator backed by the given counter store.
func NewAllocator(store CounterStore) *Allocator {
	return &Allocator{
		store: store,
		now:   time.Now,
	}
}

// NewAllocatorWithClock creates an allocator with a fixed clock.
// Use only in tests.
func NewAllocatorWithClock(store CounterStore, now func() time.Time) *Allocator {
	return &Allocator{store: store, now: now}
}

// Allocate issues the next number for (organization, type, current year).
// On storage failure nothing was committed and the caller may retry.
func (a *Allocator) Allocate(ctx context.Context, organizationID string, docType DocumentType) (DocumentNumber, error) {
	if organizationID == "" {
		return DocumentNumber{}, apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}

	prefix, err := docType.Prefix()
	if err != nil {
		return DocumentNumber{}, apperror.NewValidation("unsupported document type").
			WithDetail("field", "documentType").
			WithDetail("value", string(docType))
	}

	year := a.now().Year()
	key := CounterKey{
		OrganizationID: organizationID,
		Prefix:         prefix,
		Year:           year,
	}

	seq, err := a.store.IncrementAndGet(ctx, key)
	if err != nil {
		return DocumentNumber{}, apperror.NewAllocationFailed(err).
			WithDetail("organization_id", organizationID).
			WithDetail("document_type", string(docType))
	}

	number := DocumentNumber{
		OrganizationID: organizationID,
		Type:           docType,
		FiscalYear:     year,
		Sequence:       seq,
		Formatted:      Format(prefix, year, seq),
	}

	logger.Info(ctx, "document number allocated",
		"number", number.Formatted,
		"organization_id", organizationID)

	return number, nil
}

package numbering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"facturo/internal/core/apperror"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 14, 10, 30, 0, 0, time.UTC)
	}
}

func TestAllocate_SequentialFormatting(t *testing.T) {
	store := NewMemoryCounterStore()
	alloc := NewAllocatorWithClock(store, fixedClock(2026))
	ctx := context.Background()

	expected := []string{"FAC-2026-000001", "FAC-2026-000002", "FAC-2026-000003"}
	for i, want := range expected {
		num, err := alloc.Allocate(ctx, "org-1", TypeFacture)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if num.Formatted != want {
			t.Errorf("call %d: expected %s, got %s", i+1, want, num.Formatted)
		}
		if num.Sequence != int64(i+1) {
			t.Errorf("call %d: expected sequence %d, got %d", i+1, i+1, num.Sequence)
		}
	}
}

func TestAllocate_PrefixPerType(t *testing.T) {
	store := NewMemoryCounterStore()
	alloc := NewAllocatorWithClock(store, fixedClock(2026))
	ctx := context.Background()

	fac, err := alloc.Allocate(ctx, "org-1", TypeFacture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dev, err := alloc.Allocate(ctx, "org-1", TypeDevis)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fac.Formatted != "FAC-2026-000001" {
		t.Errorf("expected FAC-2026-000001, got %s", fac.Formatted)
	}
	// Independent counter: devis also starts at 1.
	if dev.Formatted != "DEV-2026-000001" {
		t.Errorf("expected DEV-2026-000001, got %s", dev.Formatted)
	}
}

func TestAllocate_YearScoping(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	prev := NewAllocatorWithClock(store, fixedClock(2025))
	cur := NewAllocatorWithClock(store, fixedClock(2026))

	n25, err := prev.Allocate(ctx, "org-1", TypeFacture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n26, err := cur.Allocate(ctx, "org-1", TypeFacture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both years reach sequence 1 without conflict.
	if n25.Formatted != "FAC-2025-000001" {
		t.Errorf("expected FAC-2025-000001, got %s", n25.Formatted)
	}
	if n26.Formatted != "FAC-2026-000001" {
		t.Errorf("expected FAC-2026-000001, got %s", n26.Formatted)
	}
}

func TestAllocate_OrganizationScoping(t *testing.T) {
	store := NewMemoryCounterStore()
	alloc := NewAllocatorWithClock(store, fixedClock(2026))
	ctx := context.Background()

	a, _ := alloc.Allocate(ctx, "org-a", TypeFacture)
	b, err := alloc.Allocate(ctx, "org-b", TypeFacture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Sequence != 1 || b.Sequence != 1 {
		t.Errorf("expected independent counters per organization, got %d and %d", a.Sequence, b.Sequence)
	}
}

func TestAllocate_ConcurrentUniqueness(t *testing.T) {
	store := NewMemoryCounterStore()
	alloc := NewAllocatorWithClock(store, fixedClock(2026))
	ctx := context.Background()

	const callers = 100

	var wg sync.WaitGroup
	results := make(chan int64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := alloc.Allocate(ctx, "org-1", TypeFacture)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- num.Sequence
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]bool, callers)
	for seq := range results {
		if seen[seq] {
			t.Fatalf("duplicate sequence issued: %d", seq)
		}
		seen[seq] = true
		if seq < 1 || seq > callers {
			t.Errorf("sequence %d outside expected range 1..%d", seq, callers)
		}
	}
	if len(seen) != callers {
		t.Errorf("expected %d unique sequences, got %d", callers, len(seen))
	}
}

func TestAllocate_NotIdempotent(t *testing.T) {
	store := NewMemoryCounterStore()
	alloc := NewAllocatorWithClock(store, fixedClock(2026))
	ctx := context.Background()

	// Two calls for what the caller considers "the same document"
	// yield two different numbers. Callers must not re-trigger
	// allocation for an already-numbered document.
	first, _ := alloc.Allocate(ctx, "org-1", TypeDevis)
	second, _ := alloc.Allocate(ctx, "org-1", TypeDevis)
	if first.Formatted == second.Formatted {
		t.Errorf("expected distinct numbers on repeated allocation, got %s twice", first.Formatted)
	}
}

func TestAllocate_InvalidArguments(t *testing.T) {
	store := NewMemoryCounterStore()
	alloc := NewAllocatorWithClock(store, fixedClock(2026))
	ctx := context.Background()

	_, err := alloc.Allocate(ctx, "", TypeFacture)
	if appErr, ok := apperror.AsAppError(err); !ok || appErr.Code != apperror.CodeValidation {
		t.Errorf("expected validation error for empty organization, got %v", err)
	}

	_, err = alloc.Allocate(ctx, "org-1", DocumentType("mandat"))
	if appErr, ok := apperror.AsAppError(err); !ok || appErr.Code != apperror.CodeValidation {
		t.Errorf("expected validation error for unsupported type, got %v", err)
	}

	// Nothing consumed on rejected input.
	key := CounterKey{OrganizationID: "org-1", Prefix: "FAC", Year: 2026}
	if store.Current(key) != 0 {
		t.Errorf("expected no counter consumption on invalid input")
	}
}

func TestAllocate_StorageFailure(t *testing.T) {
	alloc := NewAllocatorWithClock(&FailingCounterStore{Err: errors.New("connection refused")}, fixedClock(2026))

	_, err := alloc.Allocate(context.Background(), "org-1", TypeFacture)
	if !apperror.IsAllocationFailed(err) {
		t.Fatalf("expected ALLOCATION_FAILED, got %v", err)
	}
	// Cause is preserved for logs.
	if appErr, _ := apperror.AsAppError(err); appErr.Err == nil {
		t.Errorf("expected underlying cause to be wrapped")
	}
}

func TestFormat_Padding(t *testing.T) {
	cases := []struct {
		seq  int64
		want string
	}{
		{1, "FAC-2026-000001"},
		{42, "FAC-2026-000042"},
		{999999, "FAC-2026-999999"},
		{1000000, "FAC-2026-1000000"}, // beyond pad width, never truncated
	}
	for _, tc := range cases {
		if got := Format("FAC", 2026, tc.seq); got != tc.want {
			t.Errorf("Format(%d): expected %s, got %s", tc.seq, tc.want, got)
		}
	}
}

func ExampleFormat() {
	fmt.Println(Format("DEV", 2026, 7))
	// Output: DEV-2026-000007
}

package documents

import (
	"context"
	"strings"
	"sync"

	"facturo/internal/core/apperror"
	"facturo/internal/core/id"
)

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu    sync.Mutex
	docs  map[id.ID]*Document
	lines map[id.ID][]Line
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:  make(map[id.ID]*Document),
		lines: make(map[id.ID][]Line),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[doc.ID]; exists {
		return apperror.NewConflict("document already exists")
	}
	clone := *doc
	r.docs[doc.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	clone := *doc
	return &clone, nil
}

func (r *MemoryRepository) GetByReference(ctx context.Context, organizationID, reference string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.OrganizationID == organizationID && doc.Reference == reference {
			clone := *doc
			return &clone, nil
		}
	}
	return nil, apperror.NewNotFound("document", reference)
}

func (r *MemoryRepository) Update(ctx context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	doc.Touch()
	clone := *doc
	r.docs[doc.ID] = &clone
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[docID]; !ok {
		return apperror.NewNotFound("document", docID.String())
	}
	delete(r.docs, docID)
	delete(r.lines, docID)
	return nil
}

func (r *MemoryRepository) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *MemoryRepository) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Document
	for _, doc := range r.docs {
		if filter.OrganizationID != "" && doc.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Type != "" && string(doc.Type) != filter.Type {
			continue
		}
		if filter.Status != "" && string(doc.Status) != filter.Status {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(doc.ClientName), strings.ToLower(filter.Search)) &&
			!strings.Contains(doc.Reference, filter.Search) {
			continue
		}
		clone := *doc
		result = append(result, &clone)
	}
	return result, nil
}

// MemoryEventRecorder collects audit events in memory.
type MemoryEventRecorder struct {
	mu     sync.Mutex
	Events []Event
}

// Record implements EventRecorder.
func (r *MemoryEventRecorder) Record(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
	return nil
}

// ByAction returns recorded events for one action.
func (r *MemoryEventRecorder) ByAction(action EventAction) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Ensure compile-time interface compliance.
var (
	_ Repository    = (*MemoryRepository)(nil)
	_ EventRecorder = (*MemoryEventRecorder)(nil)
)

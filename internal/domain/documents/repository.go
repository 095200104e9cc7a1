package documents

import (
	"context"
	"encoding/json"
	"time"

	"facturo/internal/core/id"
)

// Repository defines persistence operations for documents.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, docID id.ID) (*Document, error)
	GetByReference(ctx context.Context, organizationID, reference string) (*Document, error)
	Update(ctx context.Context, doc *Document) error

	// Delete removes a document row. The service only permits this for
	// drafts; issued numbers survive in the counter table regardless.
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) ([]*Document, error)
}

// ListFilter for filtering documents.
type ListFilter struct {
	OrganizationID string
	Type           string
	Status         string
	Search         string
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

// EventAction identifies an audited document operation.
type EventAction string

const (
	EventNumbered      EventAction = "numbered"
	EventStatusChanged EventAction = "status_changed"
	EventConverted     EventAction = "converted"
	EventDeleted       EventAction = "deleted"
)

// Event is one entry of the document audit trail.
type Event struct {
	ID         id.ID           `db:"id"`
	DocumentID id.ID           `db:"document_id"`
	Action     EventAction     `db:"action"`
	UserID     string          `db:"user_id"`
	Payload    json.RawMessage `db:"payload"`
	CreatedAt  time.Time       `db:"created_at"`
}

// EventRecorder appends audit trail entries.
// Recording is best-effort from the service's point of view: a failed
// audit write is logged, it never rolls back the business operation.
type EventRecorder interface {
	Record(ctx context.Context, event Event) error
}

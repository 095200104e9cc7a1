// Package documents provides the commercial document domain: devis and
// factures assembled from a CRM lead, numbered by the allocator and
// rendered by an external PDF/HTML engine.
package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"facturo/internal/core/apperror"
	"facturo/internal/core/id"
	"facturo/internal/core/types"
	"facturo/internal/domain/numbering"
)

// Status is the user-visible document lifecycle state.
// A document becomes legally final only once numbered: brouillon is a
// non-binding preview, the remaining states track the issued document.
type Status string

const (
	StatusBrouillon Status = "brouillon"
	StatusGenere    Status = "généré"
	StatusEnvoye    Status = "envoyé"
	StatusSigne     Status = "signé"
)

// statusRank orders the lifecycle; transitions only move forward.
var statusRank = map[Status]int{
	StatusBrouillon: 0,
	StatusGenere:    1,
	StatusEnvoye:    2,
	StatusSigne:     3,
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Line is one billable line of a document.
type Line struct {
	LineID      id.ID       `db:"line_id" json:"lineId"`
	LineNo      int         `db:"line_no" json:"lineNo"`
	Designation string      `db:"designation" json:"designation"`
	Quantity    types.Money `db:"quantity" json:"quantity"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"` // HT, per unit
	VATRate     types.Money `db:"vat_rate" json:"vatRate"`     // percent, e.g. 20
	AmountHT    types.Money `db:"amount_ht" json:"amountHt"`
	AmountTVA   types.Money `db:"amount_tva" json:"amountTva"`
}

// Document represents a devis or facture.
//
// Reference stays empty while the document is a draft; it is assigned
// exactly once by the allocator and immutable from then on. The
// reference outlives the document row: allocated numbers are never
// reused even after deletion.
type Document struct {
	ID      id.ID `db:"id" json:"id"`
	Version int   `db:"version" json:"version"`

	OrganizationID string                 `db:"organization_id" json:"organizationId"`
	Type           numbering.DocumentType `db:"doc_type" json:"type"`
	Reference      string                 `db:"reference" json:"reference,omitempty"`
	Status         Status                 `db:"status" json:"status"`

	// Client block, denormalized from the CRM lead at assembly time
	LeadID      *id.ID `db:"lead_id" json:"leadId,omitempty"`
	ClientName  string `db:"client_name" json:"clientName"`
	ClientEmail string `db:"client_email" json:"clientEmail,omitempty"`
	ClientPhone string `db:"client_phone" json:"clientPhone,omitempty"`

	Currency string `db:"currency" json:"currency"`

	// Totals (calculated from lines)
	TotalHT  types.Money `db:"total_ht" json:"totalHt"`
	TotalTVA types.Money `db:"total_tva" json:"totalTva"`
	TotalTTC types.Money `db:"total_ttc" json:"totalTtc"`

	// AmountInWords is the legal closing sentence, nil when the clause
	// is disabled for this document.
	AmountInWords     *string `db:"amount_in_words" json:"amountInWords,omitempty"`
	WithLegalSentence bool    `db:"with_legal_sentence" json:"withLegalSentence"`

	// ParentDocumentID links a facture back to the devis it was
	// converted from.
	ParentDocumentID *id.ID `db:"parent_document_id" json:"parentDocumentId,omitempty"`

	// HTML is the rendered snapshot handed back by the renderer,
	// persisted for reprints. Stored compressed above a threshold.
	HTML string `db:"-" json:"html,omitempty"`

	IssuedAt  *time.Time `db:"issued_at" json:"issuedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	CreatedBy string     `db:"created_by" json:"createdBy,omitempty"`

	// Table part
	Lines []Line `db:"-" json:"lines"`
}

// NewDocument creates a draft document for an organization.
func NewDocument(organizationID string, docType numbering.DocumentType, clientName string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:             id.New(),
		Version:        1,
		OrganizationID: organizationID,
		Type:           docType,
		Status:         StatusBrouillon,
		ClientName:     clientName,
		Currency:       "EUR",
		TotalHT:        types.Zero(),
		TotalTVA:       types.Zero(),
		TotalTTC:       types.Zero(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Lines:          make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (d *Document) AddLine(designation string, quantity, unitPrice, vatRate types.Money) {
	amountHT := unitPrice.Mul(quantity)
	amountTVA := amountHT.Mul(vatRate).Div(decimal.NewFromInt(100))

	d.Lines = append(d.Lines, Line{
		LineID:      id.New(),
		LineNo:      len(d.Lines) + 1,
		Designation: designation,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
		AmountHT:    amountHT,
		AmountTVA:   amountTVA,
	})
	d.RecalculateTotals()
}

// RecalculateTotals updates HT/TVA/TTC from lines, rounded to centimes.
func (d *Document) RecalculateTotals() {
	ht := types.Zero()
	tva := types.Zero()
	for _, line := range d.Lines {
		ht = ht.Add(line.AmountHT)
		tva = tva.Add(line.AmountTVA)
	}
	d.TotalHT = ht.Round(2)
	d.TotalTVA = tva.Round(2)
	d.TotalTTC = ht.Add(tva).Round(2)
}

// Touch increments version (for optimistic locking).
func (d *Document) Touch() {
	d.Version++
	d.UpdatedAt = time.Now().UTC()
}

// IsNumbered reports whether a legal number has been assigned.
func (d *Document) IsNumbered() bool {
	return d.Reference != ""
}

// Validate checks entity invariants.
func (d *Document) Validate(ctx context.Context) error {
	if d.OrganizationID == "" {
		return apperror.NewValidation("organization is required").
			WithDetail("field", "organizationId")
	}
	if !d.Type.Valid() {
		return apperror.NewValidation("unsupported document type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}
	if d.ClientName == "" {
		return apperror.NewValidation("client name is required").
			WithDetail("field", "clientName")
	}
	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range d.Lines {
		if line.Designation == "" {
			return apperror.NewValidation("designation is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// CanModify checks if the document can still be edited.
// Numbered documents are immutable legal records.
func (d *Document) CanModify() error {
	if d.IsNumbered() {
		return apperror.NewBusinessRule(
			apperror.CodeDocumentNumbered,
			"Document already has a legal number and cannot be modified.",
		).WithDetail("document_id", d.ID.String()).
			WithDetail("reference", d.Reference)
	}
	return nil
}

// CanTransitionTo validates a status change. The lifecycle only moves
// forward, and leaving brouillon happens through number allocation, not
// a plain status update.
func (d *Document) CanTransitionTo(next Status) error {
	if !next.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(next))
	}
	if d.Status == StatusBrouillon || next == StatusBrouillon {
		return apperror.NewBusinessRule(
			apperror.CodeInvalidStatus,
			"Draft documents change state through finalization only.",
		).WithDetail("from", string(d.Status)).WithDetail("to", string(next))
	}
	if statusRank[next] <= statusRank[d.Status] {
		return apperror.NewBusinessRule(
			apperror.CodeInvalidStatus,
			"Document status can only move forward.",
		).WithDetail("from", string(d.Status)).WithDetail("to", string(next))
	}
	return nil
}

// Title returns the heading printed on the document. Drafts carry the
// preview marker instead of a number.
func (d *Document) Title() string {
	label := d.Type.Label()
	if !d.IsNumbered() {
		return label + " (Aperçu)"
	}
	return label + " N° " + d.Reference
}

// DownloadName returns the filename offered for PDF download.
func (d *Document) DownloadName() string {
	return numbering.FileName(d.Reference, d.Type)
}

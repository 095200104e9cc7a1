// Package numbering allocates legal document numbers for commercial
// documents (factures and devis). Numbers are unique and strictly
// increasing per organization, document type and fiscal year.
package numbering

import (
	"fmt"
)

// DocumentType identifies the kind of commercial document being numbered.
type DocumentType string

const (
	// TypeFacture is an invoice, prefixed FAC.
	TypeFacture DocumentType = "facture"

	// TypeDevis is a quote, prefixed DEV.
	TypeDevis DocumentType = "devis"
)

// Prefix returns the legal number prefix for the document type.
func (t DocumentType) Prefix() (string, error) {
	switch t {
	case TypeFacture:
		return "FAC", nil
	case TypeDevis:
		return "DEV", nil
	default:
		return "", fmt.Errorf("unsupported document type: %q", string(t))
	}
}

// Label returns the French download label for the document type.
// Unknown types fall back to the generic label.
func (t DocumentType) Label() string {
	switch t {
	case TypeFacture:
		return "Facture"
	case TypeDevis:
		return "Devis"
	default:
		return "Document"
	}
}

// Valid reports whether the document type is one of the recognized values.
func (t DocumentType) Valid() bool {
	_, err := t.Prefix()
	return err == nil
}

// SequenceWidth is the zero-padded width of the sequence part.
const SequenceWidth = 6

// DocumentNumber is an immutable allocated legal number.
// Once issued it is a historical record: it survives even if the owning
// document is later deleted (audit requirement).
type DocumentNumber struct {
	OrganizationID string
	Type           DocumentType
	FiscalYear     int
	Sequence       int64
	Formatted      string
}

// Format renders a number as PREFIX-YEAR-SEQ with the sequence
// zero-padded to SequenceWidth digits, e.g. FAC-2026-000001.
func Format(prefix string, year int, sequence int64) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, SequenceWidth, sequence)
}

// CounterKey identifies one persisted sequence counter.
// Counters are created lazily on first allocation for a new year and
// are never decremented.
type CounterKey struct {
	OrganizationID string
	Prefix         string
	Year           int
}

// String renders the key for logs and in-memory maps.
func (k CounterKey) String() string {
	return fmt.Sprintf("%s_%s_%d", k.OrganizationID, k.Prefix, k.Year)
}

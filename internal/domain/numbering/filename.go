package numbering

import (
	"regexp"
)

// fileNameUnsafe matches every character that may not appear in the
// number part of a download name.
var fileNameUnsafe = regexp.MustCompile(`[^A-Z0-9-]`)

// DefaultFileName is returned when no usable number is available.
const DefaultFileName = "Document.pdf"

// FileName builds the human-readable download name for a numbered
// document, e.g. Facture_FAC-2026-000001.pdf. It never fails: with an
// empty number it falls back to DefaultFileName.
func FileName(number string, docType DocumentType) string {
	if number == "" {
		return DefaultFileName
	}
	sanitized := fileNameUnsafe.ReplaceAllString(number, "_")
	return docType.Label() + "_" + sanitized + ".pdf"
}

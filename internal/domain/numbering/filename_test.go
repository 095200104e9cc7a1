package numbering

import "testing"

func TestFileName(t *testing.T) {
	cases := []struct {
		name   string
		number string
		typ    DocumentType
		want   string
	}{
		{"facture", "FAC-2026-000001", TypeFacture, "Facture_FAC-2026-000001.pdf"},
		{"devis", "DEV-2026-000012", TypeDevis, "Devis_DEV-2026-000012.pdf"},
		{"sanitized", "FAC/2026#01", TypeFacture, "Facture_FAC_2026_01.pdf"},
		{"lowercase replaced", "fac-2026", TypeFacture, "Facture____-2026.pdf"},
		{"empty number", "", TypeFacture, "Document.pdf"},
		{"unknown type keeps generic label", "FAC-2026-000001", DocumentType("mandat"), "Document_FAC-2026-000001.pdf"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FileName(tc.number, tc.typ); got != tc.want {
				t.Errorf("FileName(%q, %q) = %q, want %q", tc.number, tc.typ, got, tc.want)
			}
		})
	}
}

package dto

import (
	"time"

	"facturo/internal/core/id"
	"facturo/internal/core/types"
	"facturo/internal/domain/documents"
	"facturo/internal/domain/numbering"
)

// LineRequest is one billable line of a create/update request.
type LineRequest struct {
	Designation string `json:"designation" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unitPrice" binding:"required"`
	VATRate     string `json:"vatRate"`
}

// CreateDocumentRequest for creating a draft devis or facture.
type CreateDocumentRequest struct {
	Type              string        `json:"type" binding:"required,oneof=devis facture"`
	LeadID            *string       `json:"leadId"`
	ClientName        string        `json:"clientName" binding:"required"`
	ClientEmail       string        `json:"clientEmail"`
	ClientPhone       string        `json:"clientPhone"`
	Currency          string        `json:"currency"`
	WithLegalSentence *bool         `json:"withLegalSentence"`
	HTML              string        `json:"html"`
	Lines             []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToDomain builds a draft Document from the request. Amount fields are
// decimal strings; a malformed one surfaces as a validation error from
// the domain layer rather than a silent zero.
func (r CreateDocumentRequest) ToDomain(organizationID string) (*documents.Document, error) {
	doc := documents.NewDocument(organizationID, numbering.DocumentType(r.Type), r.ClientName)
	doc.ClientEmail = r.ClientEmail
	doc.ClientPhone = r.ClientPhone
	doc.HTML = r.HTML
	if r.Currency != "" {
		doc.Currency = r.Currency
	}
	// The legal sentence defaults to on for factures.
	doc.WithLegalSentence = numbering.DocumentType(r.Type) == numbering.TypeFacture
	if r.WithLegalSentence != nil {
		doc.WithLegalSentence = *r.WithLegalSentence
	}
	if r.LeadID != nil {
		leadID, err := id.Parse(*r.LeadID)
		if err != nil {
			return nil, err
		}
		doc.LeadID = &leadID
	}

	for _, line := range r.Lines {
		quantity, err := types.NewMoneyFromString(line.Quantity)
		if err != nil {
			return nil, err
		}
		unitPrice, err := types.NewMoneyFromString(line.UnitPrice)
		if err != nil {
			return nil, err
		}
		vatRate := types.Zero()
		if line.VATRate != "" {
			if vatRate, err = types.NewMoneyFromString(line.VATRate); err != nil {
				return nil, err
			}
		}
		doc.AddLine(line.Designation, quantity, unitPrice, vatRate)
	}
	return doc, nil
}

// UpdateStatusRequest advances the document lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListDocumentsRequest filters the document listing.
type ListDocumentsRequest struct {
	Type     string     `form:"type"`
	Status   string     `form:"status"`
	Search   string     `form:"search"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit    int        `form:"limit"`
	Offset   int        `form:"offset"`
}

// ToFilter converts the request to a domain filter scoped to the
// caller's organization.
func (r ListDocumentsRequest) ToFilter(organizationID string) documents.ListFilter {
	return documents.ListFilter{
		OrganizationID: organizationID,
		Type:           r.Type,
		Status:         r.Status,
		Search:         r.Search,
		DateFrom:       r.DateFrom,
		DateTo:         r.DateTo,
		Limit:          r.Limit,
		Offset:         r.Offset,
	}
}

// LineResponse is one line of a document response.
type LineResponse struct {
	LineNo      int    `json:"lineNo"`
	Designation string `json:"designation"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	VATRate     string `json:"vatRate"`
	AmountHT    string `json:"amountHt"`
	AmountTVA   string `json:"amountTva"`
}

// DocumentResponse is the API shape of a document.
type DocumentResponse struct {
	ID                string         `json:"id"`
	Version           int            `json:"version"`
	Type              string         `json:"type"`
	Reference         string         `json:"reference,omitempty"`
	Status            string         `json:"status"`
	Title             string         `json:"title"`
	FileName          string         `json:"fileName"`
	LeadID            *string        `json:"leadId,omitempty"`
	ClientName        string         `json:"clientName"`
	ClientEmail       string         `json:"clientEmail,omitempty"`
	ClientPhone       string         `json:"clientPhone,omitempty"`
	Currency          string         `json:"currency"`
	TotalHT           string         `json:"totalHt"`
	TotalTVA          string         `json:"totalTva"`
	TotalTTC          string         `json:"totalTtc"`
	AmountInWords     *string        `json:"amountInWords,omitempty"`
	WithLegalSentence bool           `json:"withLegalSentence"`
	ParentDocumentID  *string        `json:"parentDocumentId,omitempty"`
	IssuedAt          *time.Time     `json:"issuedAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	Lines             []LineResponse `json:"lines,omitempty"`
}

// FromDocument creates DocumentResponse from a domain document.
func FromDocument(d *documents.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                d.ID.String(),
		Version:           d.Version,
		Type:              string(d.Type),
		Reference:         d.Reference,
		Status:            string(d.Status),
		Title:             d.Title(),
		FileName:          d.DownloadName(),
		ClientName:        d.ClientName,
		ClientEmail:       d.ClientEmail,
		ClientPhone:       d.ClientPhone,
		Currency:          d.Currency,
		TotalHT:           d.TotalHT.StringFixed(2),
		TotalTVA:          d.TotalTVA.StringFixed(2),
		TotalTTC:          d.TotalTTC.StringFixed(2),
		AmountInWords:     d.AmountInWords,
		WithLegalSentence: d.WithLegalSentence,
		IssuedAt:          d.IssuedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.LeadID != nil {
		s := d.LeadID.String()
		resp.LeadID = &s
	}
	if d.ParentDocumentID != nil {
		s := d.ParentDocumentID.String()
		resp.ParentDocumentID = &s
	}
	for _, line := range d.Lines {
		resp.Lines = append(resp.Lines, LineResponse{
			LineNo:      line.LineNo,
			Designation: line.Designation,
			Quantity:    line.Quantity.String(),
			UnitPrice:   line.UnitPrice.StringFixed(2),
			VATRate:     line.VATRate.String(),
			AmountHT:    line.AmountHT.StringFixed(2),
			AmountTVA:   line.AmountTVA.StringFixed(2),
		})
	}
	return resp
}

package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "facturo/internal/core/context"
	"facturo/internal/core/apperror"
	"facturo/internal/core/id"
	"facturo/internal/core/tx"
	"facturo/internal/domain/numbering"
	"facturo/internal/domain/words"
	"facturo/pkg/logger"
)

// Service provides business operations for commercial documents.
type Service struct {
	repo      Repository
	events    EventRecorder
	allocator *numbering.Allocator
	txManager tx.Manager
}

// NewService creates a new document service.
func NewService(repo Repository, events EventRecorder, allocator *numbering.Allocator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		events:    events,
		allocator: allocator,
		txManager: txManager,
	}
}

// CreateDraft persists a new draft document. Drafts carry no number and
// may be previewed or printed with the "(Aperçu)" marker only.
func (s *Service) CreateDraft(ctx context.Context, doc *Document) error {
	doc.Status = StatusBrouillon
	doc.Reference = ""
	doc.CreatedBy = appctx.GetUserID(ctx)
	doc.RecalculateTotals()

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "draft created",
		"id", doc.ID,
		"type", string(doc.Type))
	return nil
}

// UpdateDraft replaces a draft's content. Numbered documents are
// immutable legal records and are rejected.
func (s *Service) UpdateDraft(ctx context.Context, doc *Document) error {
	existing, err := s.GetByID(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := existing.CanModify(); err != nil {
		return err
	}

	doc.Status = StatusBrouillon
	doc.Reference = ""
	doc.RecalculateTotals()
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Finalize assigns the legal number and issues the document: the
// draft → numbered transition, at most once per document.
//
// The allocator runs before the persisting transaction. If the write
// below fails the number stays consumed, leaving a gap in the sequence;
// gaps are acceptable, duplicates never. Re-running Finalize on the
// same draft after success is rejected, re-running it after failure
// allocates a fresh number.
func (s *Service) Finalize(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if doc.IsNumbered() {
		return nil, apperror.NewBusinessRule(
			apperror.CodeDocumentNumbered,
			"Document already has a legal number.",
		).WithDetail("document_id", doc.ID.String()).
			WithDetail("reference", doc.Reference)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.allocator.Allocate(ctx, doc.OrganizationID, doc.Type)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc.Reference = number.Formatted
	doc.Status = StatusGenere
	doc.IssuedAt = &now
	doc.AmountInWords = words.LegalSentence(ctx, doc.TotalTTC, doc.Currency, doc.WithLegalSentence)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("persist numbered document: %w", err)
	}

	s.record(ctx, doc.ID, EventNumbered, map[string]any{
		"reference":   doc.Reference,
		"fiscal_year": number.FiscalYear,
		"sequence":    number.Sequence,
	})

	logger.Info(ctx, "document finalized",
		"id", doc.ID,
		"reference", doc.Reference)
	return doc, nil
}

// UpdateStatus advances the lifecycle of an issued document
// (généré → envoyé → signé).
func (s *Service) UpdateStatus(ctx context.Context, docID id.ID, next Status) (*Document, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if err := doc.CanTransitionTo(next); err != nil {
		return nil, err
	}

	previous := doc.Status
	doc.Status = next
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, doc.ID, EventStatusChanged, map[string]any{
		"from": string(previous),
		"to":   string(next),
	})
	return doc, nil
}

// ConvertToFacture creates a facture from an issued devis.
// The devis is never modified; the facture is a new document with its
// own freshly allocated FAC number and a parent link back to the devis.
func (s *Service) ConvertToFacture(ctx context.Context, devisID id.ID) (*Document, error) {
	devis, err := s.GetByID(ctx, devisID)
	if err != nil {
		return nil, err
	}

	if devis.Type != numbering.TypeDevis {
		return nil, apperror.NewValidation("only a devis can be converted to a facture").
			WithDetail("document_id", devisID.String()).
			WithDetail("type", string(devis.Type))
	}
	if !devis.IsNumbered() {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Draft devis cannot be converted; finalize it first.",
		).WithDetail("document_id", devisID.String())
	}

	facture := NewDocument(devis.OrganizationID, numbering.TypeFacture, devis.ClientName)
	facture.LeadID = devis.LeadID
	facture.ClientEmail = devis.ClientEmail
	facture.ClientPhone = devis.ClientPhone
	facture.Currency = devis.Currency
	facture.WithLegalSentence = devis.WithLegalSentence
	facture.ParentDocumentID = &devis.ID
	facture.CreatedBy = appctx.GetUserID(ctx)
	for _, line := range devis.Lines {
		facture.AddLine(line.Designation, line.Quantity, line.UnitPrice, line.VATRate)
	}

	number, err := s.allocator.Allocate(ctx, facture.OrganizationID, numbering.TypeFacture)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	facture.Reference = number.Formatted
	facture.Status = StatusGenere
	facture.IssuedAt = &now
	facture.AmountInWords = words.LegalSentence(ctx, facture.TotalTTC, facture.Currency, facture.WithLegalSentence)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, facture); err != nil {
			return fmt.Errorf("create facture: %w", err)
		}
		return s.repo.SaveLines(ctx, facture.ID, facture.Lines)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, facture.ID, EventConverted, map[string]any{
		"devis_id":          devis.ID.String(),
		"devis_reference":   devis.Reference,
		"facture_reference": facture.Reference,
	})

	logger.Info(ctx, "devis converted to facture",
		"devis", devis.Reference,
		"facture", facture.Reference)
	return facture, nil
}

// GetByID retrieves a document with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List returns documents matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// DeleteDraft removes a draft. Numbered documents are legal records
// and cannot be deleted.
func (s *Service) DeleteDraft(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.IsNumbered() {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Numbered documents cannot be deleted.",
		).WithDetail("document_id", docID.String()).
			WithDetail("reference", doc.Reference)
	}

	if err := s.repo.Delete(ctx, docID); err != nil {
		return err
	}
	s.record(ctx, docID, EventDeleted, nil)
	return nil
}

// record appends an audit entry, logging failures instead of failing
// the business operation.
func (s *Service) record(ctx context.Context, docID id.ID, action EventAction, payload map[string]any) {
	if s.events == nil {
		return
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Warn(ctx, "marshal audit payload failed", "error", err)
			return
		}
		raw = data
	}

	event := Event{
		ID:         id.New(),
		DocumentID: docID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		Payload:    raw,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.events.Record(ctx, event); err != nil {
		logger.Warn(ctx, "record audit event failed",
			"action", string(action),
			"error", err)
	}
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"facturo/internal/core/apperror"
	"facturo/internal/core/id"
	"facturo/internal/domain/documents"
	"facturo/internal/infrastructure/http/v1/dto"
	"facturo/internal/infrastructure/storage/postgres"
)

// DocumentHandler handles devis and facture endpoints.
type DocumentHandler struct {
	*BaseHandler
	service *documents.Service
	events  *postgres.EventStore
}

// NewDocumentHandler creates a new document handler.
// events may be nil when the audit trail endpoint is disabled.
func NewDocumentHandler(base *BaseHandler, service *documents.Service, events *postgres.EventStore) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, service: service, events: events}
}

// RegisterRoutes registers document routes on the group.
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/finalize", h.Finalize)
	rg.POST("/:id/convert", h.Convert)
	rg.PATCH("/:id/status", h.UpdateStatus)
	if h.events != nil {
		rg.GET("/:id/events", h.Events)
	}
}

// Create handles draft creation.
// POST /api/v1/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToDomain(h.GetOrganizationID(c))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document payload").WithDetail("error", err.Error()))
		return
	}

	if err := h.service.CreateDraft(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}

// Get returns a single document with lines.
// GET /api/v1/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, ok := h.fetchScoped(c)
	if !ok {
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Update replaces the content of a draft.
// PUT /api/v1/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	existing, ok := h.fetchScoped(c)
	if !ok {
		return
	}

	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToDomain(existing.OrganizationID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document payload").WithDetail("error", err.Error()))
		return
	}
	doc.ID = existing.ID
	doc.Version = existing.Version
	doc.CreatedAt = existing.CreatedAt
	doc.CreatedBy = existing.CreatedBy

	if err := h.service.UpdateDraft(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// List returns documents of the caller's organization.
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	var req dto.ListDocumentsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	docs, err := h.service.List(c.Request.Context(), req.ToFilter(h.GetOrganizationID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, dto.FromDocument(doc))
	}
	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// Finalize assigns the legal number and issues the document.
// POST /api/v1/documents/:id/finalize
//
// Not idempotent at the domain level: retries must carry an
// X-Idempotency-Key or they will consume a fresh number.
func (h *DocumentHandler) Finalize(c *gin.Context) {
	doc, ok := h.fetchScoped(c)
	if !ok {
		return
	}

	issued, err := h.service.Finalize(c.Request.Context(), doc.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(issued))
}

// Convert creates a facture from an issued devis.
// POST /api/v1/documents/:id/convert
func (h *DocumentHandler) Convert(c *gin.Context) {
	doc, ok := h.fetchScoped(c)
	if !ok {
		return
	}

	facture, err := h.service.ConvertToFacture(c.Request.Context(), doc.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(facture))
}

// UpdateStatus advances the document lifecycle.
// PATCH /api/v1/documents/:id/status
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	doc, ok := h.fetchScoped(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), doc.ID, documents.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(updated))
}

// Delete removes a draft.
// DELETE /api/v1/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	doc, ok := h.fetchScoped(c)
	if !ok {
		return
	}

	if err := h.service.DeleteDraft(c.Request.Context(), doc.ID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Events returns the audit trail of a document.
// GET /api/v1/documents/:id/events
func (h *DocumentHandler) Events(c *gin.Context) {
	doc, ok := h.fetchScoped(c)
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 100)
	events, err := h.events.History(c.Request.Context(), doc.ID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: events, Count: len(events)})
}

// fetchScoped loads the document and hides it behind a 404 when it
// belongs to another organization.
func (h *DocumentHandler) fetchScoped(c *gin.Context) (*documents.Document, bool) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid document id").WithDetail("id", c.Param("id")))
		return nil, false
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	if doc.OrganizationID != h.GetOrganizationID(c) {
		h.Error(c, apperror.NewNotFound("document", docID.String()))
		return nil, false
	}
	return doc, true
}

package documents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturo/internal/core/apperror"
	"facturo/internal/core/tx"
	"facturo/internal/core/types"
	"facturo/internal/domain/numbering"
)

func newTestService() (*Service, *MemoryRepository, *MemoryEventRecorder) {
	repo := NewMemoryRepository()
	events := &MemoryEventRecorder{}
	allocator := numbering.NewAllocator(numbering.NewMemoryCounterStore())
	svc := NewService(repo, events, allocator, tx.NopManager{})
	return svc, repo, events
}

func newTestDraft(t *testing.T, svc *Service, docType numbering.DocumentType) *Document {
	t.Helper()
	doc := NewDocument("org-1", docType, "Immobilière Dupont")
	doc.ClientEmail = "contact@dupont.fr"
	doc.WithLegalSentence = true
	doc.AddLine("Mandat de vente exclusif", types.MustMoney("1"), types.MustMoney("1200"), types.MustMoney("20"))
	require.NoError(t, svc.CreateDraft(context.Background(), doc))
	return doc
}

func TestCreateDraft(t *testing.T) {
	svc, _, _ := newTestService()
	doc := newTestDraft(t, svc, numbering.TypeDevis)

	assert.Equal(t, StatusBrouillon, doc.Status)
	assert.Empty(t, doc.Reference)
	assert.Equal(t, "Devis (Aperçu)", doc.Title())
	assert.Equal(t, "Document.pdf", doc.DownloadName())

	// Totals: 1200 HT + 20% TVA
	assert.True(t, doc.TotalHT.Equal(types.MustMoney("1200")))
	assert.True(t, doc.TotalTVA.Equal(types.MustMoney("240")))
	assert.True(t, doc.TotalTTC.Equal(types.MustMoney("1440")))
}

func TestCreateDraft_Invalid(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	doc := NewDocument("org-1", numbering.TypeFacture, "Client")
	err := svc.CreateDraft(ctx, doc) // no lines
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestFinalize(t *testing.T) {
	svc, _, events := newTestService()
	ctx := context.Background()
	doc := newTestDraft(t, svc, numbering.TypeFacture)

	issued, err := svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, "FAC-"+issued.IssuedAt.Format("2006")+"-000001", issued.Reference)
	assert.Equal(t, StatusGenere, issued.Status)
	require.NotNil(t, issued.AmountInWords)
	assert.Equal(t,
		"Arrêté la présente facture à la somme de mille quatre cent quarante euros TTC",
		*issued.AmountInWords)
	assert.Equal(t, "Facture_"+issued.Reference+".pdf", issued.DownloadName())

	require.Len(t, events.ByAction(EventNumbered), 1)
}

func TestFinalize_AlreadyNumbered(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doc := newTestDraft(t, svc, numbering.TypeFacture)

	_, err := svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, doc.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDocumentNumbered, appErr.Code)
}

func TestFinalize_WithoutLegalSentence(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	doc := NewDocument("org-1", numbering.TypeFacture, "Client")
	doc.WithLegalSentence = false
	doc.AddLine("Honoraires", types.MustMoney("1"), types.MustMoney("500"), types.MustMoney("20"))
	require.NoError(t, svc.CreateDraft(ctx, doc))

	issued, err := svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, issued.AmountInWords)
}

func TestUpdateStatus(t *testing.T) {
	svc, _, events := newTestService()
	ctx := context.Background()
	doc := newTestDraft(t, svc, numbering.TypeFacture)

	// Drafts cannot change status directly.
	_, err := svc.UpdateStatus(ctx, doc.ID, StatusEnvoye)
	require.Error(t, err)

	_, err = svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)

	sent, err := svc.UpdateStatus(ctx, doc.ID, StatusEnvoye)
	require.NoError(t, err)
	assert.Equal(t, StatusEnvoye, sent.Status)

	signed, err := svc.UpdateStatus(ctx, doc.ID, StatusSigne)
	require.NoError(t, err)
	assert.Equal(t, StatusSigne, signed.Status)

	// Never backwards.
	_, err = svc.UpdateStatus(ctx, doc.ID, StatusGenere)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeInvalidStatus, appErr.Code)

	assert.Len(t, events.ByAction(EventStatusChanged), 2)
}

func TestConvertToFacture(t *testing.T) {
	svc, _, events := newTestService()
	ctx := context.Background()
	devis := newTestDraft(t, svc, numbering.TypeDevis)

	// Draft devis is not convertible.
	_, err := svc.ConvertToFacture(ctx, devis.ID)
	require.Error(t, err)

	issuedDevis, err := svc.Finalize(ctx, devis.ID)
	require.NoError(t, err)

	facture, err := svc.ConvertToFacture(ctx, devis.ID)
	require.NoError(t, err)

	assert.Equal(t, numbering.TypeFacture, facture.Type)
	assert.Contains(t, facture.Reference, "FAC-")
	require.NotNil(t, facture.ParentDocumentID)
	assert.Equal(t, devis.ID, *facture.ParentDocumentID)
	assert.Equal(t, issuedDevis.ClientName, facture.ClientName)
	assert.True(t, facture.TotalTTC.Equal(issuedDevis.TotalTTC))
	assert.Equal(t, StatusGenere, facture.Status)

	// The devis itself is untouched.
	reloaded, err := svc.GetByID(ctx, devis.ID)
	require.NoError(t, err)
	assert.Equal(t, issuedDevis.Reference, reloaded.Reference)
	assert.Equal(t, numbering.TypeDevis, reloaded.Type)

	require.Len(t, events.ByAction(EventConverted), 1)
}

func TestConvertToFacture_RejectsFacture(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	doc := newTestDraft(t, svc, numbering.TypeFacture)
	_, err := svc.Finalize(ctx, doc.ID)
	require.NoError(t, err)

	_, err = svc.ConvertToFacture(ctx, doc.ID)
	require.Error(t, err)
}

func TestDeleteDraft(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	draft := newTestDraft(t, svc, numbering.TypeDevis)
	require.NoError(t, svc.DeleteDraft(ctx, draft.ID))
	_, err := svc.GetByID(ctx, draft.ID)
	assert.True(t, apperror.IsNotFound(err))

	// Numbered documents are legal records.
	numbered := newTestDraft(t, svc, numbering.TypeDevis)
	_, err = svc.Finalize(ctx, numbered.ID)
	require.NoError(t, err)
	err = svc.DeleteDraft(ctx, numbered.ID)
	require.Error(t, err)
}

func TestList_FiltersByOrganization(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	newTestDraft(t, svc, numbering.TypeDevis)
	other := NewDocument("org-2", numbering.TypeDevis, "Autre agence")
	other.AddLine("Estimation", types.MustMoney("1"), types.MustMoney("300"), types.MustMoney("20"))
	require.NoError(t, svc.CreateDraft(ctx, other))

	docs, err := svc.List(ctx, ListFilter{OrganizationID: "org-1"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "org-1", docs[0].OrganizationID)
}

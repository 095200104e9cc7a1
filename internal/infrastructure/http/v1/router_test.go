package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturo/internal/core/tx"
	"facturo/internal/domain/auth"
	"facturo/internal/domain/documents"
	"facturo/internal/domain/numbering"
	"facturo/pkg/logger"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := documents.NewMemoryRepository()
	events := &documents.MemoryEventRecorder{}
	allocator := numbering.NewAllocator(numbering.NewMemoryCounterStore())
	service := documents.NewService(repo, events, allocator, tx.NopManager{})

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(testSecret))

	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		Logger:          log,
		JWTValidator:    jwtService,
		DocumentService: service,
	})
}

func testToken(t *testing.T, organizationID string) string {
	t.Helper()
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(testSecret))
	token, _, err := jwtService.GenerateAccessToken("user-1", organizationID, "agent@agence.fr", nil, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createDraftRequest() map[string]any {
	return map[string]any{
		"type":       "devis",
		"clientName": "Immobilière Dupont",
		"lines": []map[string]any{
			{"designation": "Mandat de vente", "quantity": "1", "unitPrice": "1200", "vatRate": "20"},
		},
	}
}

func TestDocumentAPI_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/documents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/documents", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentAPI_CreateAndFinalize(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "org-1")

	w := doRequest(t, router, http.MethodPost, "/api/v1/documents", token, createDraftRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Title     string `json:"title"`
		FileName  string `json:"fileName"`
		Reference string `json:"reference"`
		TotalTTC  string `json:"totalTtc"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "brouillon", created.Status)
	assert.Empty(t, created.Reference)
	assert.Equal(t, "Devis (Aperçu)", created.Title)
	assert.Equal(t, "Document.pdf", created.FileName)
	assert.Equal(t, "1440.00", created.TotalTTC)

	w = doRequest(t, router, http.MethodPost, "/api/v1/documents/"+created.ID+"/finalize", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var issued struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		FileName  string `json:"fileName"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	assert.Equal(t, "généré", issued.Status)
	assert.Regexp(t, `^DEV-\d{4}-\d{6}$`, issued.Reference)
	assert.Equal(t, "Devis_"+issued.Reference+".pdf", issued.FileName)

	// Finalizing twice is rejected.
	w = doRequest(t, router, http.MethodPost, "/api/v1/documents/"+created.ID+"/finalize", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDocumentAPI_ConvertDevis(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "org-1")

	w := doRequest(t, router, http.MethodPost, "/api/v1/documents", token, createDraftRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(t, router, http.MethodPost, "/api/v1/documents/"+created.ID+"/finalize", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/documents/"+created.ID+"/convert", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var facture struct {
		Type             string  `json:"type"`
		Reference        string  `json:"reference"`
		ParentDocumentID *string `json:"parentDocumentId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &facture))
	assert.Equal(t, "facture", facture.Type)
	assert.Regexp(t, `^FAC-\d{4}-\d{6}$`, facture.Reference)
	require.NotNil(t, facture.ParentDocumentID)
	assert.Equal(t, created.ID, *facture.ParentDocumentID)
}

func TestDocumentAPI_OrganizationIsolation(t *testing.T) {
	router := newTestRouter(t)
	owner := testToken(t, "org-1")
	stranger := testToken(t, "org-2")

	w := doRequest(t, router, http.MethodPost, "/api/v1/documents", owner, createDraftRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Another organization sees a 404, not a 403.
	w = doRequest(t, router, http.MethodGet, "/api/v1/documents/"+created.ID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/v1/documents/"+created.ID, owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentAPI_DeleteDraftOnly(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "org-1")

	w := doRequest(t, router, http.MethodPost, "/api/v1/documents", token, createDraftRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(t, router, http.MethodPost, "/api/v1/documents/"+created.ID+"/finalize", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/api/v1/documents/"+created.ID, token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDocumentAPI_InvalidPayload(t *testing.T) {
	router := newTestRouter(t)
	token := testToken(t, "org-1")

	w := doRequest(t, router, http.MethodPost, "/api/v1/documents", token, map[string]any{
		"type":       "devis",
		"clientName": "Client",
		"lines":      []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/v1/documents", token, map[string]any{
		"type":       "avoir",
		"clientName": "Client",
		"lines": []map[string]any{
			{"designation": "x", "quantity": "1", "unitPrice": "10"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

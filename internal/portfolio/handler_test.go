package portfolio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/observability"
)

func newPortfolioRouter() http.Handler {
	r := chi.NewRouter()
	Mount(r, NewMemoryStore(), observability.Discard())
	return r
}

func serve(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestExperienceHandler_CRUD(t *testing.T) {
	h := newPortfolioRouter()

	rec, body := serve(t, h, http.MethodPost, "/experiences", `{"title":"Engineer","company":"Acme","startDate":"2022-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, false, body["current"])

	rec, body = serve(t, h, http.MethodPut, "/experiences/"+id, `{"location":"Remote","current":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Engineer", body["title"], "fields absent from the body are kept")
	assert.Equal(t, "Remote", body["location"])
	assert.Equal(t, true, body["current"])

	rec, body = serve(t, h, http.MethodGet, "/experiences/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Remote", body["location"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiences", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec, body = serve(t, h, http.MethodDelete, "/experiences/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Experience deleted successfully", body["message"])

	rec, body = serve(t, h, http.MethodGet, "/experiences/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Experience not found", body["message"])
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestCertificateHandler_RequiredFields(t *testing.T) {
	h := newPortfolioRouter()

	rec, body := serve(t, h, http.MethodPost, "/certificates", `{"title":"CKA","issuer":"CNCF"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title, issuer, issue date, and image URL are required", body["message"])
	assert.Equal(t, "BAD_REQUEST", body["code"])
}

func TestHandler_BadInput(t *testing.T) {
	h := newPortfolioRouter()

	rec, body := serve(t, h, http.MethodGet, "/skills/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid skill id", body["message"])

	rec, _ = serve(t, h, http.MethodPost, "/skills", `{"category":"Go","unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, h, http.MethodPost, "/skills", `{"category":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = serve(t, h, http.MethodPost, "/skills", `{"category":"Backend","icon":"FaServer","items":["Go"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := body["id"].(string)

	rec, body = serve(t, h, http.MethodPut, "/skills/"+id, `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Category, icon, and at least one item are required", body["message"])

	rec, _ = serve(t, h, http.MethodPut, "/skills/"+id, `{"colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/adapters/catalog/memory"
	"datamart/domain/dataset"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seedCatalog(t *testing.T) *memory.Catalog {
	t.Helper()
	cat := memory.NewCatalog()
	p := dataset.NewProfile(dataset.NewId("noaa", "weather"), dataset.DatasetDescriptor{
		Name:        "weather",
		Materialize: dataset.Materialize{Identifier: "noaa", SourceLocalID: "weather"},
	})
	p.Columns = []dataset.ColumnProfile{{Name: "temp", StructuralType: dataset.StructuralFloat}}
	require.NoError(t, cat.Put(context.Background(), p))
	return cat
}

func TestSearchRejectsEmptyBody(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchByDatasetName(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	body := `{"query": {"dataset": {"name": ["weather"]}}}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, dataset.NewId("noaa", "weather"), resp.Results[0].ID)
}

func TestSearchResolvesLegacyDatasetIDShortcut(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	body := `{"metadata": {"about": {"datasetID": "noaa.weather"}}}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, dataset.NewId("noaa", "weather"), resp.Results[0].ID)
	assert.Equal(t, 1.0, resp.Results[0].Score)
}

func TestSearchLegacyDatasetIDShortcutNotFound(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	body := `{"metadata": {"about": {"datasetID": "missing.id"}}}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []searchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
}

func TestMetadataNotFound(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metadata/missing.id", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetadataFound(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metadata/noaa.weather", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var profile dataset.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, dataset.NewId("noaa", "weather"), profile.ID)
}

func TestMetadataDocRendersMarkdown(t *testing.T) {
	cat := memory.NewCatalog()
	p := dataset.NewProfile(dataset.NewId("noaa", "weather"), dataset.DatasetDescriptor{
		Description: "**daily** observations",
		Materialize: dataset.Materialize{Identifier: "noaa", SourceLocalID: "weather"},
	})
	require.NoError(t, cat.Put(context.Background(), p))
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metadata/noaa.weather/doc", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<strong>daily</strong>")
}

func TestDownloadRedirectsToDirectURL(t *testing.T) {
	cat := memory.NewCatalog()
	p := dataset.NewProfile(dataset.NewId("noaa", "weather"), dataset.DatasetDescriptor{
		Materialize: dataset.Materialize{Identifier: "noaa", SourceLocalID: "weather", DirectURL: "https://example.com/weather.csv"},
	})
	require.NoError(t, cat.Put(context.Background(), p))
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/download/noaa.weather", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/weather.csv", rec.Header().Get("Location"))
}

func TestAugmentReserved(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/augment", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestOptionsReturnsNoContent(t *testing.T) {
	cat := seedCatalog(t)
	s := NewServer(cat, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamart/adapters/catalog/memory"
	"datamart/domain/dataset"
)

func TestListShowsSeededDatasets(t *testing.T) {
	cat := memory.NewCatalog()
	p := dataset.NewProfile(dataset.NewId("noaa", "weather"), dataset.DatasetDescriptor{
		Name:        "weather",
		Materialize: dataset.Materialize{Identifier: "noaa", SourceLocalID: "weather"},
	})
	require.NoError(t, cat.Put(context.Background(), p))

	r := newRouter(cat)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weather")
}

func TestDatasetDetailNotFound(t *testing.T) {
	cat := memory.NewCatalog()
	r := newRouter(cat)

	req := httptest.NewRequest(http.MethodGet, "/datasets/missing.id", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Package httpapi is the gin-based HTTP API (§6): search, download,
// metadata, and the reserved augment endpoint.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"

	"datamart/augment"
	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/ports"
	"datamart/query"
)

// Server wires the Catalog, Augment Matcher, and Materializer behind
// the §6 HTTP surface.
type Server struct {
	router       *gin.Engine
	catalog      ports.Catalog
	matcher      *augment.Matcher
	materializer ports.Materializer
	profileProbe ProbeProfiler
}

// ProbeProfiler profiles raw uploaded bytes in search mode, without
// persisting, for a `/search` request carrying `data`
// instead of a dataset id.
type ProbeProfiler interface {
	ProbeProfile(ctx context.Context, csvBytes []byte) (*dataset.Profile, error)
}

func NewServer(catalog ports.Catalog, matcher *augment.Matcher, materializer ports.Materializer, probe ProbeProfiler) *Server {
	s := &Server{
		router:       gin.Default(),
		catalog:      catalog,
		matcher:      matcher,
		materializer: materializer,
		profileProbe: probe,
	}
	s.router.Use(corsMiddleware())
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	s.router.POST("/search", s.handleSearch)
	s.router.GET("/download/:id", s.handleDownload)
	s.router.GET("/metadata/:id", s.handleMetadata)
	s.router.GET("/metadata/:id/doc", s.handleMetadataDoc)
	s.router.POST("/augment", s.handleAugment)
}

// corsMiddleware implements §6's CORS contract: origin *, methods POST,
// headers Content-Type, OPTIONS short-circuits with 204.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

// searchRequest is the §4.6/§6 `/search` request body:
// either a compiled-query `query` clause, a probe `data` payload, a
// legacy `metadata.about.datasetID` shortcut, or a combination.
type searchRequest struct {
	Query    query.Body             `json:"query,omitempty"`
	Data     string                 `json:"data,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type searchResult struct {
	ID           dataset.Id               `json:"id"`
	Score        float64                  `json:"score"`
	Metadata     *dataset.Profile         `json:"metadata"`
	JoinColumns  []augment.JoinColumnPair `json:"join_columns,omitempty"`
	UnionColumns []string                 `json:"union_columns,omitempty"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	if req.Metadata != nil {
		if id, ok := query.ResolveLegacyDatasetID(map[string]interface{}{"metadata": req.Metadata}); ok {
			s.handleLegacyDatasetIDLookup(c, dataset.Id(id))
			return
		}
	}

	if req.Query.Dataset == nil && len(req.Query.RequiredVariables) == 0 && len(req.Query.DesiredVariables) == 0 && req.Data == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": core.ErrInvalidQuery.Error()})
		return
	}

	tree := query.Compile(&req.Query)

	if req.Data != "" {
		s.handleAugmentProbe(c, tree, []byte(req.Data))
		return
	}

	hits, err := s.catalog.Search(c.Request.Context(), tree)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		profile, err := s.catalog.Get(c.Request.Context(), h.ID)
		if err != nil {
			continue
		}
		results = append(results, searchResult{ID: h.ID, Score: h.Score, Metadata: profile})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// handleLegacyDatasetIDLookup serves the `metadata.about.datasetID`
// shortcut (query.ResolveLegacyDatasetID) as a single-result /search
// response, bypassing the query compiler entirely.
func (s *Server) handleLegacyDatasetIDLookup(c *gin.Context, id dataset.Id) {
	profile, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusOK, gin.H{"results": []searchResult{}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": []searchResult{{ID: profile.ID, Score: 1.0, Metadata: profile}}})
}

func (s *Server) handleAugmentProbe(c *gin.Context, filter *query.Tree, csvBytes []byte) {
	if s.profileProbe == nil || s.matcher == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "augmentation unavailable"})
		return
	}
	probe, err := s.profileProbe.ProbeProfile(c.Request.Context(), csvBytes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	candidates, err := s.matcher.Augment(c.Request.Context(), probe, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	results := make([]searchResult, 0, len(candidates))
	for _, cand := range candidates {
		profile, err := s.catalog.Get(c.Request.Context(), cand.ID)
		if err != nil {
			continue
		}
		results = append(results, searchResult{
			ID: cand.ID, Score: cand.Score, Metadata: profile,
			JoinColumns: cand.JoinColumns, UnionColumns: cand.UnionColumns,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleMetadata(c *gin.Context) {
	id := dataset.Id(c.Param("id"))
	profile, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// handleMetadataDoc renders a dataset's description markdown to HTML, a
// human-facing view rather than the machine-facing /metadata payload.
func (s *Server) handleMetadataDoc(c *gin.Context) {
	id := dataset.Id(c.Param("id"))
	profile, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	html := markdown.ToHTML([]byte(profile.Description), nil, nil)
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (s *Server) handleDownload(c *gin.Context) {
	id := dataset.Id(c.Param("id"))
	profile, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if profile.Materialize.DirectURL != "" {
		c.Redirect(http.StatusFound, profile.Materialize.DirectURL)
		return
	}

	if s.materializer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no materializer configured"})
		return
	}

	r, err := s.materializer.Fetch(c.Request.Context(), profile.Materialize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "materializer failure: " + err.Error()})
		return
	}
	defer r.Close()

	filename := strings.TrimSuffix(profile.Materialize.SourceLocalID, ".csv") + ".csv"
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.DataFromReader(http.StatusOK, -1, "text/csv; charset=utf-8", r, nil)
}

func (s *Server) handleAugment(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": "reserved"})
}

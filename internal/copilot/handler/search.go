// Package handler provides HTTP handlers for the diagnostics copilot
// retrieval service.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/adas-copilot/internal/copilot/biz"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
)

// SearchHandler handles search HTTP requests.
type SearchHandler struct {
	service biz.Service
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(service biz.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// isValidationError 区分请求语义错误与存储失败。
func isValidationError(err error) bool {
	return errors.Is(err, biz.ErrInvalidContentType) ||
		errors.Is(err, biz.ErrInvalidVehicleSystem) ||
		errors.Is(err, biz.ErrInvalidMaxResults) ||
		errors.Is(err, biz.ErrInvalidSearchMode) ||
		errors.Is(err, biz.ErrMissingEmbedding) ||
		errors.Is(err, biz.ErrInvalidMaxDepth) ||
		errors.Is(err, biz.ErrMissingEntityName)
}

func writeError(c *gin.Context, err error) {
	if isValidationError(err) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
}

// SearchRequest represents a search request.
type SearchRequest struct {
	Query          string    `json:"query" binding:"required"`
	Mode           string    `json:"mode,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
	ContentTypes   []string  `json:"content_types,omitempty"`
	VehicleSystems []string  `json:"vehicle_systems,omitempty"`
	MaxResults     int       `json:"max_results,omitempty"`
}

func (r *SearchRequest) toBiz() *biz.SearchRequest {
	return &biz.SearchRequest{
		Query:          r.Query,
		Mode:           model.SearchMode(r.Mode),
		Embedding:      r.Embedding,
		ContentTypes:   r.ContentTypes,
		VehicleSystems: r.VehicleSystems,
		MaxResults:     r.MaxResults,
	}
}

// Search performs a search in the requested mode (vector, graph or
// hybrid). Store failures come back inside the response's error field;
// the HTTP status stays 200 so the agent layer always gets a structured
// body to report.
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	resp, err := h.service.Search(c.Request.Context(), req.toBiz())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: resp})
}

// LexicalSearch performs a keyword-only search.
func (h *SearchHandler) LexicalSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	resp, err := h.service.LexicalSearch(c.Request.Context(), req.toBiz())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: resp})
}

// VectorSearchRequest represents a vector search request.
type VectorSearchRequest struct {
	Embedding     []float32 `json:"embedding" binding:"required"`
	ContentType   string    `json:"content_type,omitempty"`
	VehicleSystem string    `json:"vehicle_system,omitempty"`
	Limit         int       `json:"limit,omitempty"`
}

// VectorSearch performs an embedding-similarity search.
func (h *SearchHandler) VectorSearch(c *gin.Context) {
	var req VectorSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	results, err := h.service.VectorSearch(c.Request.Context(),
		req.Embedding, req.ContentType, req.VehicleSystem, req.Limit)
	if err != nil {
		if errors.Is(err, store.ErrDimensionMismatch) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: results})
}

// Stats returns document, graph and service statistics.
func (h *SearchHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// ClearCache clears the search result cache.
func (h *SearchHandler) ClearCache(c *gin.Context) {
	if err := h.service.ClearCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "cache cleared"})
}

// Health reports store connectivity.
func (h *SearchHandler) Health(c *gin.Context) {
	health := h.service.Health(c.Request.Context())
	status := http.StatusOK
	if health["status"] != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/adas-copilot/internal/copilot/biz"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
)

// DocumentHandler handles document listing HTTP requests.
type DocumentHandler struct {
	service biz.Service
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(service biz.Service) *DocumentHandler {
	return &DocumentHandler{service: service}
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, false
	}
	return parsed, true
}

// List lists ingested documents, newest first, with optional filters.
func (h *DocumentHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "limit must be a non-negative integer"})
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "offset must be a non-negative integer"})
		return
	}

	filter := &store.DocumentFilter{
		ContentType:   c.Query("content_type"),
		VehicleSystem: c.Query("vehicle_system"),
		Limit:         limit,
		Offset:        offset,
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: docs})
}

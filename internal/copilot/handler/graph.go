package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/adas-copilot/internal/copilot/biz"
)

// GraphHandler handles knowledge graph HTTP requests.
type GraphHandler struct {
	service biz.Service
}

// NewGraphHandler creates a new GraphHandler.
func NewGraphHandler(service biz.Service) *GraphHandler {
	return &GraphHandler{service: service}
}

// splitCSV 解析逗号分隔的查询参数,空串返回 nil。
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Related returns entities related to the named entity within a bounded
// number of hops. Graph failures degrade to an empty list.
func (h *GraphHandler) Related(c *gin.Context) {
	entity := c.Query("entity")
	maxDepth := 2
	if raw := c.Query("max_depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "max_depth must be an integer"})
			return
		}
		maxDepth = parsed
	}

	related, err := h.service.GraphRelated(c.Request.Context(), entity, maxDepth, splitCSV(c.Query("relationship_types")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: related})
}

// Dependencies returns the four dependency views of a component.
func (h *GraphHandler) Dependencies(c *gin.Context) {
	deps, err := h.service.GraphDependencies(c.Request.Context(), c.Query("component"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: deps})
}

// SystemComponents lists the components of a vehicle system.
func (h *GraphHandler) SystemComponents(c *gin.Context) {
	components, err := h.service.GraphSystemComponents(c.Request.Context(), c.Query("system"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: components})
}

// Entities searches graph entities by name pattern.
func (h *GraphHandler) Entities(c *gin.Context) {
	entities, err := h.service.GraphEntities(c.Request.Context(), c.Query("pattern"), splitCSV(c.Query("entity_types")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: entities})
}

// Stats returns knowledge graph statistics.
func (h *GraphHandler) Stats(c *gin.Context) {
	stats, err := h.service.GraphStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/adas-copilot/internal/copilot/biz"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := store.NewMemoryStore(3)
	docs.AddDocument(&model.Document{
		ID: "doc-camera", Filename: "camera.pdf",
		Title:       "Front Camera Calibration",
		ContentType: model.ContentTypeRepairNote, VehicleSystem: model.VehicleSystemADAS,
		CreatedAt:   time.Now(),
	}, []*model.Chunk{
		{ID: "chunk-1", DocumentID: "doc-camera", Content: "camera calibration steps",
			Embedding: []float32{1, 0, 0}},
	})

	graph := store.NewMemoryGraph()
	graph.AddEntity("Front Camera Module", "component", "", 0.9)
	graph.AddEntity("Bosch", "supplier", "", 0.99)
	graph.AddEdge("Front Camera Module", "Bosch", store.RelSuppliedBy)

	svc := biz.NewService(docs, biz.NewGraphExpander(graph, nil), nil, nil)

	engine := gin.New()
	search := NewSearchHandler(svc)
	engine.POST("/api/v1/search", search.Search)
	engine.POST("/api/v1/search/vector", search.VectorSearch)
	engine.GET("/healthz", search.Health)

	g := NewGraphHandler(svc)
	engine.GET("/api/v1/graph/related", g.Related)
	engine.GET("/api/v1/graph/dependencies", g.Dependencies)

	engine.GET("/api/v1/documents", NewDocumentHandler(svc).List)

	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
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
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestSearchEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/search", map[string]any{
		"query": "camera calibration",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)

	data := resp.Data.(map[string]any)
	results := data["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-1", results[0].(map[string]any)["chunk_id"])
}

func TestSearchEndpointValidation(t *testing.T) {
	engine := setupTestRouter(t)

	// 缺少 query 字段。
	w := doJSON(t, engine, http.MethodPost, "/api/v1/search", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 未知内容类型标签。
	w = doJSON(t, engine, http.MethodPost, "/api/v1/search", map[string]any{
		"query":         "camera",
		"content_types": []string{"blog_post"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVectorSearchEndpointDimensionMismatch(t *testing.T) {
	engine := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/search/vector", map[string]any{
		"embedding": []float32{1, 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphEndpoints(t *testing.T) {
	engine := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/graph/related?entity=Front+Camera+Module&max_depth=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	related := resp.Data.([]any)
	require.Len(t, related, 1)
	assert.Equal(t, "Bosch", related[0].(map[string]any)["name"])

	w = doJSON(t, engine, http.MethodGet, "/api/v1/graph/dependencies?component=Front+Camera+Module", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	deps := resp.Data.(map[string]any)
	assert.Equal(t, []any{"Bosch"}, deps["suppliers"])

	// 缺少实体名是验证错误。
	w = doJSON(t, engine, http.MethodGet, "/api/v1/graph/related", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentsEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	docs := resp.Data.([]any)
	require.Len(t, docs, 1)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/documents?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	engine := setupTestRouter(t)

	w := doJSON(t, engine, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ok", health["document_store"])
	assert.Equal(t, "ok", health["graph_store"])
}

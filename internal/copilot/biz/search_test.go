package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/query"
)

// failingDocStore 模拟文档存储连接失败。
type failingDocStore struct{}

func (failingDocStore) SearchChunks(context.Context, *query.Predicate, int) ([]*store.ChunkRow, error) {
	return nil, errors.New("connection refused")
}
func (failingDocStore) VectorSearch(context.Context, []float32, *store.ChunkFilter, int) ([]*store.ChunkRow, error) {
	return nil, errors.New("connection refused")
}
func (failingDocStore) ListDocuments(context.Context, *store.DocumentFilter) ([]*model.Document, error) {
	return nil, errors.New("connection refused")
}
func (failingDocStore) Stats(context.Context) (*store.DocumentStats, error) {
	return nil, errors.New("connection refused")
}
func (failingDocStore) Ping(context.Context) error { return errors.New("connection refused") }

func seedSearchStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(3)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s.AddDocument(&model.Document{
		ID: "doc-camera", Filename: "camera_calibration.pdf",
		Title:       "Front Camera Calibration Procedure",
		ContentType: model.ContentTypeRepairNote, VehicleSystem: model.VehicleSystemADAS,
		ComponentName: "Front Camera Module",
		CreatedAt:     base,
	}, []*model.Chunk{
		{ID: "chunk-camera", DocumentID: "doc-camera", ChunkIndex: 0,
			Content:   "ADAS calibration of the camera after windshield replacement.",
			Embedding: []float32{1, 0, 0}},
	})

	s.AddDocument(&model.Document{
		ID: "doc-adas", Filename: "adas_overview.pdf",
		Title:       "ADAS System Overview",
		ContentType: model.ContentTypeSystemArchitecture, VehicleSystem: model.VehicleSystemADAS,
		CreatedAt:   base.Add(48 * time.Hour),
	}, []*model.Chunk{
		{ID: "chunk-adas", DocumentID: "doc-adas", ChunkIndex: 0,
			Content:   "Camera calibration requirements for the driver assistance stack.",
			Embedding: []float32{0.8, 0.2, 0}},
	})

	s.AddDocument(&model.Document{
		ID: "doc-generic", Filename: "maintenance.pdf",
		Title:       "General Maintenance Guide",
		ContentType: model.ContentTypeRepairNote, VehicleSystem: model.VehicleSystemBraking,
		CreatedAt:   base.Add(96 * time.Hour),
	}, []*model.Chunk{
		{ID: "chunk-generic", DocumentID: "doc-generic", ChunkIndex: 0,
			Content:   "Routine adas and camera calibration notes for the workshop.",
			Embedding: []float32{0, 0, 1}},
	})

	return s
}

func newTestService(docs store.DocumentStore, graph store.GraphStore) Service {
	return NewService(docs, NewGraphExpander(graph, nil), nil, nil)
}

func TestLexicalSearchAndOfOrs(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)
	ctx := context.Background()

	resp, err := svc.LexicalSearch(ctx, &SearchRequest{Query: "ADAS camera calibration", MaxResults: 10})
	require.NoError(t, err)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Results, 3)

	// 每个存活词必须命中 content 或 title 之一。
	for _, r := range resp.Results {
		haystack := strings.ToLower(r.Content + " " + r.DocumentTitle)
		for _, term := range []string{"adas", "camera", "calibration"} {
			assert.Contains(t, haystack, term)
		}
	}
	assert.Equal(t, []string{"adas", "camera", "calibration"}, resp.Summary.SearchTerms)
	assert.Equal(t, 3, resp.Summary.TotalResults)
}

func TestLexicalSearchDomainPriorityOrdering(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	resp, err := svc.LexicalSearch(context.Background(), &SearchRequest{Query: "ADAS camera calibration", MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	// 标题含 camera 的排最前,其次标题含 adas,最后按时间。
	assert.Equal(t, "chunk-camera", resp.Results[0].ChunkID)
	assert.Equal(t, "chunk-adas", resp.Results[1].ChunkID)
	assert.Equal(t, "chunk-generic", resp.Results[2].ChunkID)
}

func TestLexicalSearchPrioritySurvivesLargeCorpus(t *testing.T) {
	s := store.NewMemoryStore(0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// camera 文档是全库最旧的一篇,其余 120 篇更新且同样命中查询。
	s.AddDocument(&model.Document{
		ID: "doc-camera", Filename: "camera.pdf",
		Title:       "Front Camera Calibration Procedure",
		ContentType: model.ContentTypeRepairNote, CreatedAt: base,
	}, []*model.Chunk{
		{ID: "chunk-camera", DocumentID: "doc-camera", ChunkIndex: 0,
			Content: "ADAS camera calibration after windshield replacement."},
	})
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		s.AddDocument(&model.Document{
			ID: id, Filename: id + ".pdf",
			Title:       "General Service Bulletin",
			ContentType: model.ContentTypeRepairNote,
			CreatedAt:   base.Add(time.Duration(i+1) * time.Hour),
		}, []*model.Chunk{
			{ID: "chunk-" + id, DocumentID: id, ChunkIndex: 0,
				Content: "ADAS camera calibration steps for routine service."},
		})
	}
	svc := newTestService(s, nil)

	resp, err := svc.LexicalSearch(context.Background(), &SearchRequest{Query: "ADAS camera calibration", MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 10)
	// 匹配集远大于候选窗口时,优先文档仍然在结果里且排第一。
	assert.Equal(t, "chunk-camera", resp.Results[0].ChunkID)
	assert.Equal(t, "chunk-doc-119", resp.Results[1].ChunkID)
}

func TestLexicalSearchFailOpen(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	// 所有词都被过滤掉:不报错,返回不带内容约束的结果。
	resp, err := svc.LexicalSearch(context.Background(), &SearchRequest{Query: "is it an a", MaxResults: 2})
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Summary.SearchTerms)
}

func TestLexicalSearchFilters(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	resp, err := svc.LexicalSearch(context.Background(), &SearchRequest{
		Query:        "calibration",
		ContentTypes: []string{"repair_note"},
		MaxResults:   10,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, model.ContentTypeRepairNote, r.ContentType)
	}
	assert.Equal(t, map[string]int{"repair_note": 2}, resp.Summary.ResultDistribution)
}

func TestSearchValidation(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)
	ctx := context.Background()

	_, err := svc.Search(ctx, &SearchRequest{Query: "q", ContentTypes: []string{"blog_post"}})
	assert.ErrorIs(t, err, ErrInvalidContentType)

	_, err = svc.Search(ctx, &SearchRequest{Query: "q", VehicleSystems: []string{"warp_drive"}})
	assert.ErrorIs(t, err, ErrInvalidVehicleSystem)

	_, err = svc.Search(ctx, &SearchRequest{Query: "q", MaxResults: -1})
	assert.ErrorIs(t, err, ErrInvalidMaxResults)

	_, err = svc.Search(ctx, &SearchRequest{Query: "q", Mode: "keyword"})
	assert.ErrorIs(t, err, ErrInvalidSearchMode)
}

func TestVectorSearchOrdering(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	results, err := svc.VectorSearch(context.Background(), []float32{1, 0, 0}, "", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 相似度按位置单调不增。
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "chunk-camera", results[0].ChunkID)
}

func TestVectorSearchDimensionMismatch(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	_, err := svc.VectorSearch(context.Background(), []float32{1, 0}, "", "", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestHybridSearchDeduplicates(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	resp, err := svc.Search(context.Background(), &SearchRequest{
		Query:     "ADAS camera calibration",
		Mode:      model.SearchModeHybrid,
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	require.Empty(t, resp.Error)

	seen := make(map[string]bool)
	for _, r := range resp.Results {
		assert.False(t, seen[r.ChunkID], "chunk %s appears twice", r.ChunkID)
		seen[r.ChunkID] = true
	}
	// 两条路径都命中的块保留较高分(词法路径为 1.0)。
	assert.Equal(t, "chunk-camera", resp.Results[0].ChunkID)
	assert.Equal(t, 1.0, resp.Results[0].Score)
}

func TestHybridSearchDegradesOnDimensionMismatch(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	// 向量维度错误时混合检索退化为词法证据,不失败。
	resp, err := svc.Search(context.Background(), &SearchRequest{
		Query:     "ADAS camera calibration",
		Mode:      model.SearchModeHybrid,
		Embedding: []float32{1, 0},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Error)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "chunk-camera", resp.Results[0].ChunkID)
}

func TestSearchStoreUnavailable(t *testing.T) {
	svc := newTestService(failingDocStore{}, nil)

	// 文档存储失败是致命的:返回带错误字段的结构化响应。
	resp, err := svc.Search(context.Background(), &SearchRequest{Query: "camera"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Summary)
}

func TestVectorModeRequiresEmbedding(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)

	resp, err := svc.Search(context.Background(), &SearchRequest{
		Query: "camera",
		Mode:  model.SearchModeVector,
	})
	require.NoError(t, err)
	assert.Equal(t, ErrMissingEmbedding.Error(), resp.Error)
	assert.Empty(t, resp.Results)
}

func TestSearchIdempotence(t *testing.T) {
	svc := newTestService(seedSearchStore(t), nil)
	ctx := context.Background()
	req := &SearchRequest{Query: "ADAS camera calibration", Mode: model.SearchModeHybrid, Embedding: []float32{1, 0, 0}}

	first, err := svc.Search(ctx, req)
	require.NoError(t, err)
	second, err := svc.Search(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchContentTruncation(t *testing.T) {
	s := store.NewMemoryStore(0)
	s.AddDocument(&model.Document{
		ID: "doc-long", Title: "Long Diagnostic Log",
		ContentType: model.ContentTypeDiagnosticLog,
		CreatedAt:   time.Now(),
	}, []*model.Chunk{
		{ID: "chunk-long", DocumentID: "doc-long",
			Content: strings.Repeat("dtc P0420 misfire detected ", 40)},
	})
	svc := newTestService(s, nil)

	resp, err := svc.LexicalSearch(context.Background(), &SearchRequest{Query: "misfire", MaxResults: 5})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	content := resp.Results[0].Content
	assert.True(t, strings.HasSuffix(content, "..."))
	assert.LessOrEqual(t, len([]rune(content)), ContentPreviewLimit+3)
}

func TestGraphModeExpandsEvidence(t *testing.T) {
	docs := store.NewMemoryStore(0)
	docs.AddDocument(&model.Document{
		ID: "doc-radar", Title: "Radar Sensor Service Notes",
		ContentType: model.ContentTypeRepairNote, VehicleSystem: model.VehicleSystemADAS,
		ComponentName: "Radar Sensor",
		CreatedAt:     time.Now(),
	}, []*model.Chunk{
		{ID: "chunk-radar", DocumentID: "doc-radar",
			Content: "Replacing the Radar Sensor requires recalibration."},
	})

	graph := store.NewMemoryGraph()
	graph.AddEntity("Front Camera Module", "component", "", 0.9)
	graph.AddEntity("Radar Sensor", "component", "", 0.9)
	graph.AddEdge("Front Camera Module", "Radar Sensor", store.RelDependsOn)

	svc := newTestService(docs, graph)

	// 查询只提到 camera,图谱扩展把依赖的 Radar Sensor 带进证据。
	resp, err := svc.Search(context.Background(), &SearchRequest{
		Query: "camera",
		Mode:  model.SearchModeGraph,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "chunk-radar", resp.Results[0].ChunkID)
	assert.Equal(t, graphEvidenceScore, resp.Results[0].Score)
}

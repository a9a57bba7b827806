package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/adas-copilot/internal/copilot/metrics"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
)

// Service 聚合诊断助手的检索、图谱与文档查询能力,
// 是 handler 层唯一依赖的业务接口。
type Service interface {
	// Search 按模式执行检索。
	Search(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error)
	// LexicalSearch 执行纯词法检索。
	LexicalSearch(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error)
	// VectorSearch 执行纯向量检索。
	VectorSearch(ctx context.Context, embedding []float32, contentType, vehicleSystem string, limit int) ([]model.SearchResult, error)

	// GraphRelated 查询相关实体。
	GraphRelated(ctx context.Context, entityName string, maxDepth int, relationshipTypes []string) ([]model.RelatedEntity, error)
	// GraphDependencies 查询组件依赖。
	GraphDependencies(ctx context.Context, componentName string) (*model.ComponentDependencies, error)
	// GraphSystemComponents 查询系统组件清单。
	GraphSystemComponents(ctx context.Context, systemName string) ([]model.SystemComponent, error)
	// GraphEntities 按名称模式搜索实体。
	GraphEntities(ctx context.Context, pattern string, entityTypes []string) ([]model.GraphEntity, error)
	// GraphStats 获取图谱统计。
	GraphStats(ctx context.Context) (*model.GraphStats, error)

	// ListDocuments 列出已摄取的文档。
	ListDocuments(ctx context.Context, filter *store.DocumentFilter) ([]*model.Document, error)
	// Stats 汇总服务统计信息。
	Stats(ctx context.Context) (map[string]any, error)
	// Health 检查各存储的连通性。
	Health(ctx context.Context) map[string]string
	// ClearCache 清除检索缓存。
	ClearCache(ctx context.Context) error
}

// copilotService 是 Service 的默认实现。
type copilotService struct {
	searcher *Searcher
	expander *GraphExpander
	docs     store.DocumentStore
	cache    *SearchCache
}

// NewService 创建业务服务。expander 与 cache 可以为 nil。
func NewService(docs store.DocumentStore, expander *GraphExpander, cache *SearchCache, config *SearcherConfig) Service {
	if expander == nil {
		expander = NewGraphExpander(nil, nil)
	}
	return &copilotService{
		searcher: NewSearcher(docs, expander, cache, config),
		expander: expander,
		docs:     docs,
		cache:    cache,
	}
}

func (s *copilotService) Search(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error) {
	return s.searcher.Search(ctx, req)
}

func (s *copilotService) LexicalSearch(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error) {
	return s.searcher.LexicalSearch(ctx, req)
}

func (s *copilotService) VectorSearch(ctx context.Context, embedding []float32, contentType, vehicleSystem string, limit int) ([]model.SearchResult, error) {
	return s.searcher.VectorSearch(ctx, embedding, contentType, vehicleSystem, limit)
}

func (s *copilotService) GraphRelated(ctx context.Context, entityName string, maxDepth int, relationshipTypes []string) ([]model.RelatedEntity, error) {
	return s.expander.Related(ctx, entityName, maxDepth, relationshipTypes)
}

func (s *copilotService) GraphDependencies(ctx context.Context, componentName string) (*model.ComponentDependencies, error) {
	return s.expander.Dependencies(ctx, componentName)
}

func (s *copilotService) GraphSystemComponents(ctx context.Context, systemName string) ([]model.SystemComponent, error) {
	return s.expander.SystemComponents(ctx, systemName)
}

func (s *copilotService) GraphEntities(ctx context.Context, pattern string, entityTypes []string) ([]model.GraphEntity, error) {
	return s.expander.SearchEntities(ctx, pattern, entityTypes)
}

func (s *copilotService) GraphStats(ctx context.Context) (*model.GraphStats, error) {
	return s.expander.Stats(ctx)
}

func (s *copilotService) ListDocuments(ctx context.Context, filter *store.DocumentFilter) ([]*model.Document, error) {
	if filter != nil {
		if filter.ContentType != "" && !model.ContentType(filter.ContentType).Valid() {
			return nil, ErrInvalidContentType
		}
		if filter.VehicleSystem != "" && !model.VehicleSystem(filter.VehicleSystem).Valid() {
			return nil, ErrInvalidVehicleSystem
		}
	}
	return s.docs.ListDocuments(ctx, filter)
}

func (s *copilotService) Stats(ctx context.Context) (map[string]any, error) {
	docStats, err := s.docs.Stats(ctx)
	if err != nil {
		return nil, err
	}
	graphStats, err := s.expander.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"documents": docStats,
		"graph":     graphStats,
		"metrics":   metrics.GetSearchMetrics().Stats(),
	}, nil
}

// Health 逐个存储检查连通性。图谱不可用不影响整体健康,
// 仅在结果中标记为 degraded。
func (s *copilotService) Health(ctx context.Context) map[string]string {
	health := map[string]string{"status": "ok"}

	if err := s.docs.Ping(ctx); err != nil {
		logger.Errorw("document store health check failed", "error", err.Error())
		health["status"] = "unhealthy"
		health["document_store"] = err.Error()
	} else {
		health["document_store"] = "ok"
	}

	if !s.expander.Available() {
		health["graph_store"] = "not configured"
	} else if err := s.expander.graph.Ping(ctx); err != nil {
		logger.Warnw("graph store health check failed", "error", err.Error())
		health["graph_store"] = "degraded: " + err.Error()
	} else {
		health["graph_store"] = "ok"
	}

	return health
}

func (s *copilotService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

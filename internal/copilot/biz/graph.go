package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/adas-copilot/internal/copilot/metrics"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
)

// DefaultGraphTimeout 为单次图谱查询的超时上限;超时按图谱证据缺失处理。
const DefaultGraphTimeout = 5 * time.Second

// GraphExpanderConfig 图谱扩展器配置。
type GraphExpanderConfig struct {
	// Timeout 单次图谱查询超时。
	Timeout time.Duration
	// DefaultMaxDepth 未指定时的遍历深度。
	DefaultMaxDepth int
}

// GraphExpander 在图谱存储上执行有界遍历,并负责软降级:
// 图谱不可用或超时时返回空集合,绝不把连接错误抛给调用方。
type GraphExpander struct {
	graph  store.GraphStore
	config *GraphExpanderConfig
}

// NewGraphExpander 创建图谱扩展器。graph 可以为 nil,表示图谱未配置,
// 所有查询返回空集合。
func NewGraphExpander(graph store.GraphStore, config *GraphExpanderConfig) *GraphExpander {
	if config == nil {
		config = &GraphExpanderConfig{}
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultGraphTimeout
	}
	if config.DefaultMaxDepth <= 0 {
		config.DefaultMaxDepth = 2
	}
	return &GraphExpander{graph: graph, config: config}
}

// Available reports whether a graph store is configured.
func (e *GraphExpander) Available() bool { return e.graph != nil }

func (e *GraphExpander) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Timeout)
}

// Related 查询相关实体。maxDepth 非法时返回验证错误;
// 图谱失败时返回空列表并记录警告。
func (e *GraphExpander) Related(ctx context.Context, entityName string, maxDepth int, relationshipTypes []string) ([]model.RelatedEntity, error) {
	if entityName == "" {
		return nil, ErrMissingEntityName
	}
	if maxDepth < 1 {
		return nil, ErrInvalidMaxDepth
	}
	if e.graph == nil {
		return []model.RelatedEntity{}, nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	related, err := e.graph.RelatedEntities(ctx, entityName, maxDepth, relationshipTypes)
	metrics.GetSearchMetrics().RecordGraphQuery(err != nil)
	if err != nil {
		logger.Warnw("graph traversal failed, degrading to empty results",
			"entity", entityName, "max_depth", maxDepth, "error", err.Error())
		return []model.RelatedEntity{}, nil
	}
	if related == nil {
		related = []model.RelatedEntity{}
	}
	return related, nil
}

// Dependencies 查询组件依赖关系,失败时返回空视图。
func (e *GraphExpander) Dependencies(ctx context.Context, componentName string) (*model.ComponentDependencies, error) {
	if componentName == "" {
		return nil, ErrMissingEntityName
	}
	empty := &model.ComponentDependencies{
		Dependencies: []string{},
		RequiredBy:   []string{},
		Systems:      []string{},
		Suppliers:    []string{},
	}
	if e.graph == nil {
		return empty, nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	deps, err := e.graph.ComponentDependencies(ctx, componentName)
	metrics.GetSearchMetrics().RecordGraphQuery(err != nil)
	if err != nil {
		logger.Warnw("dependency lookup failed, degrading to empty results",
			"component", componentName, "error", err.Error())
		return empty, nil
	}
	return deps, nil
}

// SystemComponents 查询系统的组件清单,失败时返回空列表。
func (e *GraphExpander) SystemComponents(ctx context.Context, systemName string) ([]model.SystemComponent, error) {
	if systemName == "" {
		return nil, ErrMissingEntityName
	}
	if e.graph == nil {
		return []model.SystemComponent{}, nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	components, err := e.graph.SystemComponents(ctx, systemName)
	metrics.GetSearchMetrics().RecordGraphQuery(err != nil)
	if err != nil {
		logger.Warnw("system component lookup failed, degrading to empty results",
			"system", systemName, "error", err.Error())
		return []model.SystemComponent{}, nil
	}
	if components == nil {
		components = []model.SystemComponent{}
	}
	return components, nil
}

// SearchEntities 按名称模式搜索实体,失败时返回空列表。
func (e *GraphExpander) SearchEntities(ctx context.Context, pattern string, entityTypes []string) ([]model.GraphEntity, error) {
	if pattern == "" {
		return nil, ErrMissingEntityName
	}
	if e.graph == nil {
		return []model.GraphEntity{}, nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	entities, err := e.graph.SearchEntities(ctx, pattern, entityTypes)
	metrics.GetSearchMetrics().RecordGraphQuery(err != nil)
	if err != nil {
		logger.Warnw("entity pattern search failed, degrading to empty results",
			"pattern", pattern, "error", err.Error())
		return []model.GraphEntity{}, nil
	}
	if entities == nil {
		entities = []model.GraphEntity{}
	}
	return entities, nil
}

// Stats 获取图谱统计,失败时返回零值统计。
func (e *GraphExpander) Stats(ctx context.Context) (*model.GraphStats, error) {
	empty := &model.GraphStats{EntityTypes: []string{}}
	if e.graph == nil {
		return empty, nil
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	stats, err := e.graph.Stats(ctx)
	metrics.GetSearchMetrics().RecordGraphQuery(err != nil)
	if err != nil {
		logger.Warnw("graph statistics query failed, degrading to empty stats", "error", err.Error())
		return empty, nil
	}
	return stats, nil
}

package biz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/adas-copilot/internal/copilot/metrics"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/query"
)

const (
	// DefaultMaxResults 未指定时返回的结果数。
	DefaultMaxResults = 10
	// candidateFloor 为词法候选行数下限,给融合去重留出余量。
	// 存储层已在全量匹配集上完成优先级排序,窗口大小只影响
	// 可参与融合的行数,不影响优先文档的入选。
	candidateFloor = 100
	// graphEntityCap 为参与图谱扩展的实体数上限。
	graphEntityCap = 3
	// graphNameCap 为图谱扩展贡献的名称总数上限。
	graphNameCap = 8
	// graphEvidenceScore 为仅由图谱扩展命中的块的相关性分。
	graphEvidenceScore = 0.5
)

// SearchRequest 为一次检索调用的全部输入。
type SearchRequest struct {
	// Query 自由文本查询。
	Query string `json:"query"`
	// Mode 检索模式,空值按 hybrid 处理。
	Mode model.SearchMode `json:"mode,omitempty"`
	// Embedding 查询向量,由外部嵌入服务生成;缺省时混合模式
	// 退化为词法证据。
	Embedding []float32 `json:"embedding,omitempty"`
	// ContentTypes 内容类型过滤。
	ContentTypes []string `json:"content_types,omitempty"`
	// VehicleSystems 车辆系统过滤。
	VehicleSystems []string `json:"vehicle_systems,omitempty"`
	// MaxResults 返回结果数上限,零值按 DefaultMaxResults 处理。
	MaxResults int `json:"max_results,omitempty"`
}

// SearcherConfig 检索器配置。
type SearcherConfig struct {
	// DefaultMaxResults 未指定时的结果数。
	DefaultMaxResults int
}

// Searcher 是混合检索的编排核心:构建词法谓词、并发执行词法与
// 向量两条检索路径、可选地做图谱关系扩展,最后融合排序去重。
// 对两个存储均为只读。
type Searcher struct {
	docs     store.DocumentStore
	lexical  *LexicalBuilder
	expander *GraphExpander
	cache    *SearchCache
	config   *SearcherConfig
}

// NewSearcher 创建检索器。cache 可以为 nil。
func NewSearcher(docs store.DocumentStore, expander *GraphExpander, cache *SearchCache, config *SearcherConfig) *Searcher {
	if config == nil {
		config = &SearcherConfig{}
	}
	if config.DefaultMaxResults <= 0 {
		config.DefaultMaxResults = DefaultMaxResults
	}
	return &Searcher{
		docs:     docs,
		lexical:  NewLexicalBuilder(),
		expander: expander,
		cache:    cache,
		config:   config,
	}
}

// validate 在任何存储往返之前检查过滤条件。
func (s *Searcher) validate(req *SearchRequest) error {
	if req.Mode != "" && !req.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSearchMode, req.Mode)
	}
	if req.MaxResults < 0 {
		return ErrInvalidMaxResults
	}
	for _, ct := range req.ContentTypes {
		if !model.ContentType(ct).Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidContentType, ct)
		}
	}
	for _, vs := range req.VehicleSystems {
		if !model.VehicleSystem(vs).Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidVehicleSystem, vs)
		}
	}
	return nil
}

// Search 按请求的模式执行检索并返回结构化响应。
// 验证错误通过 error 返回;存储失败写入响应的 Error 字段,
// 调用方总能拿到一个结构完整的响应对象。
func (s *Searcher) Search(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = model.SearchModeHybrid
	}
	if req.MaxResults == 0 {
		req.MaxResults = s.config.DefaultMaxResults
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, req); err == nil && cached != nil {
			return cached, nil
		}
	}

	start := time.Now()
	resp := s.dispatch(ctx, mode, req)
	var searchErr error
	if resp.Error != "" {
		searchErr = errors.New(resp.Error)
	}
	metrics.GetSearchMetrics().RecordSearch(string(mode), time.Since(start), searchErr)

	if s.cache != nil {
		_ = s.cache.Set(ctx, req, resp)
	}
	return resp, nil
}

// LexicalSearch 执行纯词法检索,是混合模式的基础路径。
func (s *Searcher) LexicalSearch(ctx context.Context, req *SearchRequest) (*model.SearchResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.MaxResults == 0 {
		req.MaxResults = s.config.DefaultMaxResults
	}

	start := time.Now()
	resp := s.fuse(ctx, req, false, false)
	var searchErr error
	if resp.Error != "" {
		searchErr = errors.New(resp.Error)
	}
	metrics.GetSearchMetrics().RecordSearch("lexical", time.Since(start), searchErr)
	return resp, nil
}

// VectorSearch 执行纯向量检索并返回结果列表。
// 维度不匹配与存储失败都通过 error 返回,由调用方决定降级策略。
func (s *Searcher) VectorSearch(ctx context.Context, embedding []float32, contentType, vehicleSystem string, limit int) ([]model.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, ErrMissingEmbedding
	}
	if limit < 0 {
		return nil, ErrInvalidMaxResults
	}
	if limit == 0 {
		limit = s.config.DefaultMaxResults
	}
	if contentType != "" && !model.ContentType(contentType).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentType, contentType)
	}
	if vehicleSystem != "" && !model.VehicleSystem(vehicleSystem).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVehicleSystem, vehicleSystem)
	}

	var filter *store.ChunkFilter
	if contentType != "" || vehicleSystem != "" {
		filter = &store.ChunkFilter{ContentType: contentType, VehicleSystem: vehicleSystem}
	}

	start := time.Now()
	rows, err := s.docs.VectorSearch(ctx, embedding, filter, limit)
	metrics.GetSearchMetrics().RecordSearch("vector", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return formatRows(rows), nil
}

func (s *Searcher) dispatch(ctx context.Context, mode model.SearchMode, req *SearchRequest) *model.SearchResponse {
	switch mode {
	case model.SearchModeVector:
		return s.vectorOnly(ctx, req)
	case model.SearchModeGraph:
		return s.fuse(ctx, req, false, true)
	default:
		return s.fuse(ctx, req, len(req.Embedding) > 0, s.expander != nil && s.expander.Available())
	}
}

// vectorOnly 执行纯向量检索。维度不匹配对该模式是致命的。
func (s *Searcher) vectorOnly(ctx context.Context, req *SearchRequest) *model.SearchResponse {
	if len(req.Embedding) == 0 {
		return errorResponse(ErrMissingEmbedding.Error())
	}

	rows, err := s.docs.VectorSearch(ctx, req.Embedding, chunkFilter(req), req.MaxResults)
	if err != nil {
		logger.Errorw("vector search failed", "error", err.Error())
		return errorResponse(err.Error())
	}

	results := formatRows(rows)
	return &model.SearchResponse{
		Results: results,
		Summary: buildSummary(results, nil, req),
	}
}

// fuse 是混合模式的主路径:词法证据必选,向量与图谱证据按需并入。
// 文档存储失败对整个调用是致命的;向量路径的维度不匹配降级为
// 仅词法证据;图谱路径始终软降级。
func (s *Searcher) fuse(ctx context.Context, req *SearchRequest, withVector, withGraph bool) *model.SearchResponse {
	terms := s.lexical.Terms(req.Query)
	pred := s.lexical.Predicate(terms, req.ContentTypes, req.VehicleSystems)
	candidateLimit := req.MaxResults * 10
	if candidateLimit < candidateFloor {
		candidateLimit = candidateFloor
	}

	var (
		lexicalRows []*store.ChunkRow
		vectorRows  []*store.ChunkRow
	)

	// 词法与向量两条路径均为纯读,无顺序依赖,并发执行以收敛延迟。
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.docs.SearchChunks(gctx, pred, candidateLimit)
		if err != nil {
			return fmt.Errorf("document store query failed: %w", err)
		}
		lexicalRows = rows
		return nil
	})
	if withVector {
		g.Go(func() error {
			rows, err := s.docs.VectorSearch(gctx, req.Embedding, chunkFilter(req), req.MaxResults)
			if err != nil {
				if errors.Is(err, store.ErrDimensionMismatch) {
					logger.Warnw("embedding dimension mismatch, continuing with lexical evidence only",
						"error", err.Error())
					return nil
				}
				return fmt.Errorf("vector search failed: %w", err)
			}
			vectorRows = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Errorw("hybrid search failed", "query", req.Query, "error", err.Error())
		return errorResponse(err.Error())
	}

	sortByDomainPriority(lexicalRows)
	results := formatRows(lexicalRows)
	if len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}

	results = mergeResults(results, formatRows(vectorRows))

	if withGraph {
		graphRows := s.expandWithGraph(ctx, req, terms)
		results = mergeResults(results, formatRows(graphRows))
	}

	if len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}

	return &model.SearchResponse{
		Results: results,
		Summary: buildSummary(results, terms, req),
	}
}

// expandWithGraph 把查询词映射到图谱实体,对每个实体做一跳遍历,
// 再用发现的实体名称补充一次词法取证。图谱失败时返回空证据。
func (s *Searcher) expandWithGraph(ctx context.Context, req *SearchRequest, terms []string) []*store.ChunkRow {
	if s.expander == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	addName := func(name string) {
		lower := strings.ToLower(name)
		if name == "" || len(names) >= graphNameCap {
			return
		}
		if _, dup := seen[lower]; dup {
			return
		}
		seen[lower] = struct{}{}
		names = append(names, name)
	}

	for _, term := range terms {
		entities, err := s.expander.SearchEntities(ctx, term, nil)
		if err != nil || len(entities) == 0 {
			continue
		}
		for i, ent := range entities {
			if i >= graphEntityCap {
				break
			}
			addName(ent.Name)
			related, err := s.expander.Related(ctx, ent.Name, 1, nil)
			if err != nil {
				continue
			}
			for _, rel := range related {
				addName(rel.Name)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}

	// 所有发现的名称构成一个析取组:任一名称命中即可。
	conds := make([]query.Cond, 0, len(names)*2)
	for _, name := range names {
		conds = append(conds,
			query.Contains("content", name),
			query.Contains("title", name),
		)
	}
	pred := &query.Predicate{}
	pred.And(conds...)

	rows, err := s.docs.SearchChunks(ctx, pred, req.MaxResults)
	if err != nil {
		// 图谱扩展是辅助证据,取证失败不影响主路径。
		logger.Warnw("graph evidence lookup failed", "error", err.Error())
		return nil
	}
	for _, row := range rows {
		row.Score = graphEvidenceScore
	}
	return rows
}

// mergeResults 将附加证据并入主结果列表,按块标识去重;
// 两条路径都命中的块保留较高的分数。
func mergeResults(primary, extra []model.SearchResult) []model.SearchResult {
	index := make(map[string]int, len(primary))
	for i, r := range primary {
		index[r.ChunkID] = i
	}
	for _, r := range extra {
		if i, ok := index[r.ChunkID]; ok {
			if r.Score > primary[i].Score {
				primary[i].Score = r.Score
			}
			continue
		}
		index[r.ChunkID] = len(primary)
		primary = append(primary, r)
	}
	return primary
}

// sortByDomainPriority re-asserts the content-aware ordering over the
// lexical candidates: titles mentioning a camera first, then ADAS, then
// document recency. Stores already rank their full matching set this way;
// repeating the stable sort here keeps the contract independent of the
// DocumentStore implementation.
func sortByDomainPriority(rows []*store.ChunkRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti := strings.ToLower(rows[i].DocumentTitle)
		tj := strings.ToLower(rows[j].DocumentTitle)

		ci := strings.Contains(ti, "camera")
		cj := strings.Contains(tj, "camera")
		if ci != cj {
			return ci
		}
		ai := strings.Contains(ti, "adas")
		aj := strings.Contains(tj, "adas")
		if ai != aj {
			return ai
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

// chunkFilter 将请求过滤条件映射为向量检索的单值过滤。
// 向量路径只支持单值等值过滤,多值过滤仅约束词法路径。
func chunkFilter(req *SearchRequest) *store.ChunkFilter {
	f := &store.ChunkFilter{}
	if len(req.ContentTypes) == 1 {
		f.ContentType = req.ContentTypes[0]
	}
	if len(req.VehicleSystems) == 1 {
		f.VehicleSystem = req.VehicleSystems[0]
	}
	if f.ContentType == "" && f.VehicleSystem == "" {
		return nil
	}
	return f
}

func errorResponse(msg string) *model.SearchResponse {
	return &model.SearchResponse{
		Results: []model.SearchResult{},
		Summary: &model.SearchSummary{
			SearchTerms:        []string{},
			ResultDistribution: map[string]int{},
		},
		Error: msg,
	}
}

// buildSummary 汇总结果分布与检索条件。
func buildSummary(results []model.SearchResult, terms []string, req *SearchRequest) *model.SearchSummary {
	if terms == nil {
		terms = []string{}
	}
	distribution := make(map[string]int)
	for _, r := range results {
		if r.ContentType != "" {
			distribution[string(r.ContentType)]++
		}
	}
	return &model.SearchSummary{
		TotalResults:       len(results),
		SearchTerms:        terms,
		ContentTypes:       req.ContentTypes,
		VehicleSystems:     req.VehicleSystems,
		ResultDistribution: distribution,
	}
}

// Package store defines the storage interfaces of the copilot and their
// Postgres, Neo4j and in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/query"
)

// Result caps enforced by every GraphStore implementation.
const (
	// RelatedEntityLimit caps bounded-depth traversal results.
	RelatedEntityLimit = 100
	// PatternSearchLimit caps entity pattern search results.
	PatternSearchLimit = 50
)

// ChunkRow is the raw chunk-to-document joined row returned by search
// queries, before it is mapped to the canonical result shape.
type ChunkRow struct {
	ChunkID       string
	DocumentID    string
	ChunkIndex    int
	Content       string
	Score         float64
	DocumentTitle string
	Filename      string
	ContentType   string
	VehicleSystem string
	ComponentName string
	CreatedAt     time.Time
}

// ChunkFilter restricts vector search candidates by document metadata.
// Empty fields do not filter.
type ChunkFilter struct {
	ContentType   string
	VehicleSystem string
}

// DocumentFilter restricts document listing.
type DocumentFilter struct {
	ContentType   string
	VehicleSystem string
	Limit         int
	Offset        int
}

// DocumentStats summarizes the document store contents.
type DocumentStats struct {
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
	Embedded  int64 `json:"embedded_chunks"`
}

// DocumentStore 定义文档存储接口。
type DocumentStore interface {
	// SearchChunks 按谓词检索文档块，最多返回 limit 行。排序在全量
	// 匹配集上进行：标题含 camera 的文档优先，其次 adas，再按创建
	// 时间倒序，块 ID 兜底。空谓词表示无条件匹配（fail-open）。
	SearchChunks(ctx context.Context, pred *query.Predicate, limit int) ([]*ChunkRow, error)

	// VectorSearch 向量相似度搜索，仅匹配有嵌入向量的块，
	// 相似度 = 1 - 余弦距离，降序返回最多 limit 行。
	// 维度不匹配返回 ErrDimensionMismatch。
	VectorSearch(ctx context.Context, embedding []float32, filter *ChunkFilter, limit int) ([]*ChunkRow, error)

	// ListDocuments 按过滤条件列出文档。
	ListDocuments(ctx context.Context, filter *DocumentFilter) ([]*model.Document, error)

	// Stats 获取文档与块的统计信息。
	Stats(ctx context.Context) (*DocumentStats, error)

	// Ping 检查连接。
	Ping(ctx context.Context) error
}

// GraphStore 定义知识图谱存储接口。
// 所有查询为只读；实现不做软降级，由业务层负责。
type GraphStore interface {
	// RelatedEntities 有界深度的无向关系遍历。
	// distance 为最短跳数（BFS 语义），结果按 (distance, name) 排序，
	// 去重且不包含起点，最多 RelatedEntityLimit 条。
	RelatedEntities(ctx context.Context, entityName string, maxDepth int, relationshipTypes []string) ([]model.RelatedEntity, error)

	// ComponentDependencies 查询组件的四组依赖关系。
	ComponentDependencies(ctx context.Context, componentName string) (*model.ComponentDependencies, error)

	// SystemComponents 查询属于某系统的所有组件及其供应商。
	SystemComponents(ctx context.Context, systemName string) ([]model.SystemComponent, error)

	// SearchEntities 按名称模式（大小写不敏感子串）搜索实体，
	// 按置信度降序、名称升序排列，最多 PatternSearchLimit 条。
	SearchEntities(ctx context.Context, pattern string, entityTypes []string) ([]model.GraphEntity, error)

	// Stats 获取图谱统计信息。
	Stats(ctx context.Context) (*model.GraphStats, error)

	// Ping 检查连接。
	Ping(ctx context.Context) error
}

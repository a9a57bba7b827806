package biz

import "errors"

// Validation errors are raised before any store round-trip and map to a
// 400 at the handler layer. Store failures are reported through the
// Error field of the structured response instead.
var (
	// ErrInvalidContentType 表示过滤条件包含未知的内容类型标签。
	ErrInvalidContentType = errors.New("invalid content type filter")
	// ErrInvalidVehicleSystem 表示过滤条件包含未知的车辆系统标签。
	ErrInvalidVehicleSystem = errors.New("invalid vehicle system filter")
	// ErrInvalidMaxResults 表示请求的结果数不是正整数。
	ErrInvalidMaxResults = errors.New("max_results must be positive")
	// ErrInvalidSearchMode 表示不支持的检索模式。
	ErrInvalidSearchMode = errors.New("invalid search mode")
	// ErrMissingEmbedding 表示向量检索缺少查询向量。
	ErrMissingEmbedding = errors.New("query embedding is required")
	// ErrInvalidMaxDepth 表示图谱遍历深度不是正整数。
	ErrInvalidMaxDepth = errors.New("max_depth must be at least 1")
	// ErrMissingEntityName 表示图谱查询缺少实体名称。
	ErrMissingEntityName = errors.New("entity name is required")
)

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/query"
)

// chunkColumns maps logical predicate fields to joined query columns.
func chunkColumns(field string) string {
	switch field {
	case "content":
		return "c.content"
	case "title":
		return "d.title"
	case "content_type":
		return "d.content_type"
	case "vehicle_system":
		return "d.vehicle_system"
	}
	return field
}

const chunkSelect = `SELECT
	c.id AS chunk_id,
	c.document_id,
	c.chunk_index,
	c.content,
	%s AS score,
	d.title AS document_title,
	d.filename,
	d.content_type,
	d.vehicle_system,
	d.component_name,
	d.created_at
FROM chunks c
JOIN documents d ON c.document_id = d.id`

// PostgresStore implements DocumentStore backed by PostgreSQL with the
// pgvector extension for embedding similarity.
type PostgresStore struct {
	db           *gorm.DB
	embeddingDim int
}

// NewPostgresStore creates a Postgres-backed document store.
// embeddingDim is the expected dimensionality of stored embeddings;
// zero disables the dimension check.
func NewPostgresStore(db *gorm.DB, embeddingDim int) *PostgresStore {
	return &PostgresStore{db: db, embeddingDim: embeddingDim}
}

// SearchChunks executes the predicate against the chunk/document join.
// The content-aware ordering is applied here, over the full matching set:
// camera-titled documents first, then ADAS, then newest document, with
// chunk ID as the final tie-break. Ranking before LIMIT means a priority
// document can never be cut off by the candidate window, no matter how
// old it is.
func (s *PostgresStore) SearchChunks(ctx context.Context, pred *query.Predicate, limit int) ([]*ChunkRow, error) {
	sql := fmt.Sprintf(chunkSelect, "1.0")

	var args []any
	if pred != nil {
		if where, whereArgs := pred.SQL(chunkColumns); where != "" {
			sql += " WHERE " + where
			args = whereArgs
		}
	}
	sql += ` ORDER BY
	CASE WHEN LOWER(d.title) LIKE '%camera%' THEN 0 ELSE 1 END,
	CASE WHEN LOWER(d.title) LIKE '%adas%' THEN 0 ELSE 1 END,
	d.created_at DESC, c.id LIMIT ?`
	args = append(args, limit)

	var rows []*ChunkRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to search chunks: %w", ErrUnavailable, err)
	}
	return rows, nil
}

// VectorSearch ranks chunks by cosine similarity to the query embedding
// using the pgvector `<=>` distance operator. Only chunks with a stored
// embedding participate. Ties are broken by chunk ID for stable ordering.
func (s *PostgresStore) VectorSearch(ctx context.Context, embedding []float32, filter *ChunkFilter, limit int) ([]*ChunkRow, error) {
	if s.embeddingDim > 0 && len(embedding) != s.embeddingDim {
		return nil, fmt.Errorf("query embedding has %d dimensions, store expects %d: %w",
			len(embedding), s.embeddingDim, ErrDimensionMismatch)
	}

	sql := fmt.Sprintf(chunkSelect, "1 - (c.embedding <=> ?::vector)")
	vec := vectorLiteral(embedding)
	args := []any{vec}

	sql += " WHERE c.embedding IS NOT NULL"
	if filter != nil {
		if filter.ContentType != "" {
			sql += " AND d.content_type = ?"
			args = append(args, filter.ContentType)
		}
		if filter.VehicleSystem != "" {
			sql += " AND d.vehicle_system = ?"
			args = append(args, filter.VehicleSystem)
		}
	}
	sql += " ORDER BY c.embedding <=> ?::vector, c.id LIMIT ?"
	args = append(args, vec, limit)

	var rows []*ChunkRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to run vector search: %w", ErrUnavailable, err)
	}
	return rows, nil
}

// ListDocuments lists documents with optional filters, newest first.
func (s *PostgresStore) ListDocuments(ctx context.Context, filter *DocumentFilter) ([]*model.Document, error) {
	db := s.db.WithContext(ctx).Model(&model.Document{})
	if filter != nil {
		if filter.ContentType != "" {
			db = db.Where("content_type = ?", filter.ContentType)
		}
		if filter.VehicleSystem != "" {
			db = db.Where("vehicle_system = ?", filter.VehicleSystem)
		}
		if filter.Limit > 0 {
			db = db.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			db = db.Offset(filter.Offset)
		}
	}

	var docs []*model.Document
	if err := db.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list documents: %w", ErrUnavailable, err)
	}
	return docs, nil
}

// Stats returns document and chunk counts.
func (s *PostgresStore) Stats(ctx context.Context) (*DocumentStats, error) {
	stats := &DocumentStats{}

	if err := s.db.WithContext(ctx).Model(&model.Document{}).Count(&stats.Documents).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to count documents: %w", ErrUnavailable, err)
	}
	if err := s.db.WithContext(ctx).Model(&model.Chunk{}).Count(&stats.Chunks).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to count chunks: %w", ErrUnavailable, err)
	}
	if err := s.db.WithContext(ctx).Raw(
		"SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL",
	).Scan(&stats.Embedded).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to count embedded chunks: %w", ErrUnavailable, err)
	}
	return stats, nil
}

// Ping verifies database connectivity. Failures wrap ErrUnavailable so
// callers can classify them with errors.Is.
func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: failed to get sql.DB: %w", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// vectorLiteral renders an embedding in pgvector input syntax.
func vectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// 确保 PostgresStore 实现了 DocumentStore 接口。
var _ DocumentStore = (*PostgresStore)(nil)

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/query"
	"github.com/kart-io/adas-copilot/internal/pkg/textutil"
)

// memoryChunk 为内存存储的块记录,内嵌归属文档的元数据快照。
type memoryChunk struct {
	chunk *model.Chunk
	doc   *model.Document
}

// MemoryStore 是 DocumentStore 的内存实现,用于开发模式和测试。
// 向量检索在 Go 侧计算余弦相似度,语义与 Postgres 实现保持一致。
type MemoryStore struct {
	mu           sync.RWMutex
	docs         map[string]*model.Document
	chunks       []*memoryChunk
	embeddingDim int
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore(embeddingDim int) *MemoryStore {
	return &MemoryStore{
		docs:         make(map[string]*model.Document),
		embeddingDim: embeddingDim,
	}
}

// AddDocument registers a document and its chunks.
func (s *MemoryStore) AddDocument(doc *model.Document, chunks []*model.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[doc.ID] = doc
	for _, c := range chunks {
		s.chunks = append(s.chunks, &memoryChunk{chunk: c, doc: doc})
	}
	doc.ChunkCount = len(chunks)
}

func (s *MemoryStore) row(mc *memoryChunk, score float64) *ChunkRow {
	return &ChunkRow{
		ChunkID:       mc.chunk.ID,
		DocumentID:    mc.doc.ID,
		ChunkIndex:    mc.chunk.ChunkIndex,
		Content:       mc.chunk.Content,
		Score:         score,
		DocumentTitle: mc.doc.Title,
		Filename:      mc.doc.Filename,
		ContentType:   string(mc.doc.ContentType),
		VehicleSystem: string(mc.doc.VehicleSystem),
		ComponentName: mc.doc.ComponentName,
		CreatedAt:     mc.doc.CreatedAt,
	}
}

// SearchChunks evaluates the predicate against each chunk in memory.
// A nil or empty predicate matches everything.
func (s *MemoryStore) SearchChunks(_ context.Context, pred *query.Predicate, limit int) ([]*ChunkRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []*ChunkRow
	for _, mc := range s.chunks {
		lookup := func(field string) string {
			switch field {
			case "content":
				return mc.chunk.Content
			case "title":
				return mc.doc.Title
			case "content_type":
				return string(mc.doc.ContentType)
			case "vehicle_system":
				return string(mc.doc.VehicleSystem)
			}
			return ""
		}
		if pred != nil && !pred.Match(lookup) {
			continue
		}
		rows = append(rows, s.row(mc, 1.0))
	}

	// 与 SQL 实现保持一致:先按标题优先级,再按文档创建时间倒序,
	// 块 ID 兜底。排序在截断之前,优先文档不会被候选窗口挤掉。
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := titleRank(rows[i].DocumentTitle), titleRank(rows[j].DocumentTitle)
		if ri != rj {
			return ri < rj
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ChunkID < rows[j].ChunkID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// VectorSearch ranks chunks by cosine similarity, highest first, with
// chunk ID as a deterministic tie-break.
func (s *MemoryStore) VectorSearch(_ context.Context, embedding []float32, filter *ChunkFilter, limit int) ([]*ChunkRow, error) {
	if s.embeddingDim > 0 && len(embedding) != s.embeddingDim {
		return nil, fmt.Errorf("query embedding has %d dimensions, store expects %d: %w",
			len(embedding), s.embeddingDim, ErrDimensionMismatch)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []*ChunkRow
	for _, mc := range s.chunks {
		if len(mc.chunk.Embedding) == 0 {
			continue
		}
		if filter != nil {
			if filter.ContentType != "" && string(mc.doc.ContentType) != filter.ContentType {
				continue
			}
			if filter.VehicleSystem != "" && string(mc.doc.VehicleSystem) != filter.VehicleSystem {
				continue
			}
		}
		score := textutil.CosineSimilarity(embedding, mc.chunk.Embedding)
		rows = append(rows, s.row(mc, score))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ChunkID < rows[j].ChunkID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// ListDocuments lists documents newest first.
func (s *MemoryStore) ListDocuments(_ context.Context, filter *DocumentFilter) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*model.Document
	for _, d := range s.docs {
		if filter != nil {
			if filter.ContentType != "" && string(d.ContentType) != filter.ContentType {
				continue
			}
			if filter.VehicleSystem != "" && string(d.VehicleSystem) != filter.VehicleSystem {
				continue
			}
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(docs) {
				return nil, nil
			}
			docs = docs[filter.Offset:]
		}
		if filter.Limit > 0 && len(docs) > filter.Limit {
			docs = docs[:filter.Limit]
		}
	}
	return docs, nil
}

// Stats returns document and chunk counts.
func (s *MemoryStore) Stats(_ context.Context) (*DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &DocumentStats{
		Documents: int64(len(s.docs)),
		Chunks:    int64(len(s.chunks)),
	}
	for _, mc := range s.chunks {
		if len(mc.chunk.Embedding) > 0 {
			stats.Embedded++
		}
	}
	return stats, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// titleRank mirrors the SQL ordering keys: camera-titled documents rank
// ahead of ADAS-titled ones, which rank ahead of everything else.
func titleRank(title string) int {
	t := strings.ToLower(title)
	rank := 0
	if !strings.Contains(t, "camera") {
		rank += 2
	}
	if !strings.Contains(t, "adas") {
		rank++
	}
	return rank
}

// matchesPattern reports whether name contains pattern, case-insensitive.
func matchesPattern(name, pattern string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

var _ DocumentStore = (*MemoryStore)(nil)

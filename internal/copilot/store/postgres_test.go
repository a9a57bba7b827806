package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/query"
)

// setupSQLStore 使用内存 SQLite 验证 SQL 路径的词法检索语义。
// 向量检索依赖 pgvector 扩展,由 MemoryStore 测试覆盖同一契约。
func setupSQLStore(t *testing.T) *PostgresStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.Chunk{}))
	// Postgres 中 embedding 为 pgvector 列,SQLite 下用文本列占位。
	require.NoError(t, db.Exec("ALTER TABLE chunks ADD COLUMN embedding TEXT").Error)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	docs := []*model.Document{
		{
			ID: "doc-camera", Filename: "fcm_calibration.pdf",
			Title:       "Front Camera Module Calibration Guide",
			ContentType: model.ContentTypeRepairNote, VehicleSystem: model.VehicleSystemADAS,
			ComponentName: "Front Camera Module", FilePath: "/docs/fcm_calibration.pdf",
			CreatedAt: base.Add(48 * time.Hour),
		},
		{
			ID: "doc-brake", Filename: "brake_ecu_spec.pdf",
			Title:       "Brake Control Unit Hardware Specification",
			ContentType: model.ContentTypeHardwareSpec, VehicleSystem: model.VehicleSystemBraking,
			ComponentName: "Brake Control Unit", FilePath: "/docs/brake_ecu_spec.pdf",
			CreatedAt: base.Add(24 * time.Hour),
		},
	}
	chunks := []*model.Chunk{
		{ID: "chunk-cam-1", DocumentID: "doc-camera", ChunkIndex: 0,
			Content: "Calibrate the FRONT CAMERA after windshield replacement."},
		{ID: "chunk-cam-2", DocumentID: "doc-camera", ChunkIndex: 1,
			Content: "Static calibration requires the target board at 1.5m."},
		{ID: "chunk-brk-1", DocumentID: "doc-brake", ChunkIndex: 0,
			Content: "The brake control unit supervises hydraulic pressure."},
	}
	require.NoError(t, db.Create(docs).Error)
	require.NoError(t, db.Create(chunks).Error)

	return NewPostgresStore(db, 0)
}

func TestPostgresStoreSearchChunks(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	t.Run("LIKE 匹配大小写不敏感", func(t *testing.T) {
		pred := &query.Predicate{}
		pred.And(query.Contains("content", "front camera"), query.Contains("title", "front camera"))

		rows, err := s.SearchChunks(ctx, pred, 10)
		require.NoError(t, err)
		// 标题命中使整篇文档的块都参与。
		require.Len(t, rows, 2)
		assert.Equal(t, "chunk-cam-1", rows[0].ChunkID)
		assert.Equal(t, "Front Camera Module Calibration Guide", rows[0].DocumentTitle)
		assert.Equal(t, "repair_note", rows[0].ContentType)
	})

	t.Run("多组条件按 AND 收窄", func(t *testing.T) {
		pred := &query.Predicate{}
		pred.And(query.Contains("content", "calibrat"), query.Contains("title", "calibrat"))
		pred.And(query.Contains("content", "hydraulic"), query.Contains("title", "hydraulic"))

		rows, err := s.SearchChunks(ctx, pred, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("空谓词返回全部并按时间倒序", func(t *testing.T) {
		rows, err := s.SearchChunks(ctx, &query.Predicate{}, 10)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "doc-camera", rows[0].DocumentID)
		assert.Equal(t, "doc-brake", rows[2].DocumentID)
	})

	t.Run("等值条件", func(t *testing.T) {
		pred := &query.Predicate{}
		pred.And(query.Eq("content_type", "hardware_spec"))

		rows, err := s.SearchChunks(ctx, pred, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "chunk-brk-1", rows[0].ChunkID)
	})
}

func TestPostgresStoreSearchChunksPriorityOrdering(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.Chunk{}))
	require.NoError(t, db.Exec("ALTER TABLE chunks ADD COLUMN embedding TEXT").Error)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*model.Document{
		{ID: "doc-camera", Filename: "camera.pdf", FilePath: "/docs/camera.pdf",
			Title:       "Front Camera Alignment Procedure",
			ContentType: model.ContentTypeRepairNote, CreatedAt: base},
	}
	chunks := []*model.Chunk{
		{ID: "chunk-camera", DocumentID: "doc-camera", ChunkIndex: 0,
			Content: "camera calibration for the front sensor"},
	}
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("doc-%02d", i)
		docs = append(docs, &model.Document{
			ID: id, Filename: id + ".pdf", FilePath: "/docs/" + id + ".pdf",
			Title:       "General Service Bulletin",
			ContentType: model.ContentTypeRepairNote,
			CreatedAt:   base.Add(time.Duration(i+1) * time.Hour),
		})
		chunks = append(chunks, &model.Chunk{
			ID: "chunk-" + id, DocumentID: id, ChunkIndex: 0,
			Content: "camera calibration steps for routine service",
		})
	}
	require.NoError(t, db.Create(docs).Error)
	require.NoError(t, db.Create(chunks).Error)

	s := NewPostgresStore(db, 0)
	pred := &query.Predicate{}
	pred.And(query.Contains("content", "camera"), query.Contains("title", "camera"))

	rows, err := s.SearchChunks(context.Background(), pred, 10)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	// ORDER BY 中的优先级键先于时间键,最旧的 camera 文档照样排第一。
	assert.Equal(t, "chunk-camera", rows[0].ChunkID)
	assert.Equal(t, "chunk-doc-29", rows[1].ChunkID)
}

func TestPostgresStoreUnavailable(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = s.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = s.SearchChunks(ctx, &query.Predicate{}, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPostgresStoreVectorSearchDimensionCheck(t *testing.T) {
	s := NewPostgresStore(nil, 768)

	_, err := s.VectorSearch(context.Background(), make([]float32, 3), nil, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestPostgresStoreListDocuments(t *testing.T) {
	s := setupSQLStore(t)
	ctx := context.Background()

	docs, err := s.ListDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-camera", docs[0].ID)

	docs, err = s.ListDocuments(ctx, &DocumentFilter{ContentType: "hardware_spec"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-brake", docs[0].ID)

	docs, err = s.ListDocuments(ctx, &DocumentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-brake", docs[0].ID)
}

func TestPostgresStoreStats(t *testing.T) {
	s := setupSQLStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Documents)
	assert.Equal(t, int64(3), stats.Chunks)
	assert.Equal(t, int64(0), stats.Embedded)
}

package biz

import (
	"github.com/kart-io/logger"

	"github.com/kart-io/adas-copilot/internal/copilot/metrics"
	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
	"github.com/kart-io/adas-copilot/internal/pkg/textutil"
)

// ContentPreviewLimit 为结果内容摘录的最大字符数。
const ContentPreviewLimit = 500

// formatRows 将存储行映射为规范的检索结果。
// 缺少必要字段的行记录警告后跳过,不会中断整批结果。
func formatRows(rows []*store.ChunkRow) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(rows))
	for _, row := range rows {
		if row == nil || row.ChunkID == "" || row.DocumentID == "" {
			logger.Warnw("skipping malformed search row",
				"chunk_id", rowField(row, func(r *store.ChunkRow) string { return r.ChunkID }),
				"document_id", rowField(row, func(r *store.ChunkRow) string { return r.DocumentID }),
			)
			metrics.GetSearchMetrics().RecordSkippedRow()
			continue
		}

		content := row.Content
		if len([]rune(content)) > ContentPreviewLimit {
			content = textutil.TruncateString(content, ContentPreviewLimit) + "..."
		}

		results = append(results, model.SearchResult{
			ChunkID:       row.ChunkID,
			DocumentID:    row.DocumentID,
			Content:       content,
			Score:         row.Score,
			DocumentTitle: row.DocumentTitle,
			Filename:      row.Filename,
			ContentType:   model.ContentType(row.ContentType),
			VehicleSystem: model.VehicleSystem(row.VehicleSystem),
			ComponentName: row.ComponentName,
		})
	}
	return results
}

func rowField(row *store.ChunkRow, get func(*store.ChunkRow) string) string {
	if row == nil {
		return ""
	}
	return get(row)
}

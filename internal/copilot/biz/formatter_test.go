package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/adas-copilot/internal/copilot/store"
	"github.com/kart-io/adas-copilot/internal/model"
)

func TestFormatRowsSkipsMalformed(t *testing.T) {
	rows := []*store.ChunkRow{
		{ChunkID: "chunk-1", DocumentID: "doc-1", Content: "ok", Score: 1.0},
		nil,
		{ChunkID: "", DocumentID: "doc-2", Content: "missing chunk id"},
		{ChunkID: "chunk-3", DocumentID: "", Content: "missing document id"},
		{ChunkID: "chunk-4", DocumentID: "doc-4", Content: "also ok", Score: 0.7},
	}

	results := formatRows(rows)
	require.Len(t, results, 2)
	assert.Equal(t, "chunk-1", results[0].ChunkID)
	assert.Equal(t, "chunk-4", results[1].ChunkID)
}

func TestFormatRowsTruncation(t *testing.T) {
	long := strings.Repeat("x", ContentPreviewLimit+200)
	rows := []*store.ChunkRow{
		{ChunkID: "chunk-1", DocumentID: "doc-1", Content: long, Score: 1.0},
		{ChunkID: "chunk-2", DocumentID: "doc-1", Content: "short", Score: 1.0},
	}

	results := formatRows(rows)
	require.Len(t, results, 2)
	assert.Equal(t, ContentPreviewLimit+3, len([]rune(results[0].Content)))
	assert.True(t, strings.HasSuffix(results[0].Content, "..."))
	assert.Equal(t, "short", results[1].Content)
}

func TestFormatRowsMetadataPassthrough(t *testing.T) {
	rows := []*store.ChunkRow{
		{
			ChunkID: "chunk-1", DocumentID: "doc-1", Content: "c", Score: 0.42,
			DocumentTitle: "Title", Filename: "f.pdf",
			ContentType: "hardware_spec", VehicleSystem: "braking",
			ComponentName: "Brake Control Unit",
		},
	}

	results := formatRows(rows)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, 0.42, r.Score)
	assert.Equal(t, "Title", r.DocumentTitle)
	assert.Equal(t, model.ContentTypeHardwareSpec, r.ContentType)
	assert.Equal(t, model.VehicleSystemBraking, r.VehicleSystem)
	assert.Equal(t, "Brake Control Unit", r.ComponentName)
}

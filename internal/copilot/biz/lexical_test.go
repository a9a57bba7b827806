package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalBuilderTerms(t *testing.T) {
	b := NewLexicalBuilder()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "停用词被过滤",
			query: "what is the camera calibration procedure",
			// "what" 超过 3 个字符按规则保留。
			want: []string{"what", "camera", "calibration", "procedure"},
		},
		{
			name:  "领域重要词总是保留",
			query: "the unit and part of it",
			want:  []string{"unit", "part"},
		},
		{
			name:  "尾部标点被剥离",
			query: "calibrate camera, sensor!",
			want:  []string{"calibrate", "camera", "sensor"},
		},
		{
			name:  "单字符词不保留",
			query: "a x camera",
			want:  []string{"camera"},
		},
		{
			name:  "全部过滤后返回空",
			query: "is it an a",
			want:  nil,
		},
		{
			name:  "大小写归一化",
			query: "ADAS Camera",
			want:  []string{"adas", "camera"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Terms(tt.query))
		})
	}
}

func TestLexicalBuilderPredicate(t *testing.T) {
	b := NewLexicalBuilder()

	t.Run("每个词一个析取组", func(t *testing.T) {
		pred := b.Predicate([]string{"camera", "adas"}, nil, nil)
		require.Len(t, pred.All, 2)
		assert.Len(t, pred.All[0].Any, 2)

		// 词命中 content 或 title 任一字段即可。
		assert.True(t, pred.Match(func(field string) string {
			if field == "content" {
				return "the camera and adas stack"
			}
			return ""
		}))
		// 两个词都必须命中。
		assert.False(t, pred.Match(func(field string) string {
			if field == "content" {
				return "only camera here"
			}
			return ""
		}))
	})

	t.Run("过滤条件追加等值组", func(t *testing.T) {
		pred := b.Predicate(nil, []string{"repair_note", "hardware_spec"}, []string{"ADAS"})
		require.Len(t, pred.All, 2)

		lookup := func(ct, vs string) func(string) string {
			return func(field string) string {
				switch field {
				case "content_type":
					return ct
				case "vehicle_system":
					return vs
				}
				return ""
			}
		}
		assert.True(t, pred.Match(lookup("repair_note", "ADAS")))
		assert.True(t, pred.Match(lookup("hardware_spec", "ADAS")))
		assert.False(t, pred.Match(lookup("ota_update", "ADAS")))
		assert.False(t, pred.Match(lookup("repair_note", "braking")))
	})

	t.Run("无词无过滤时谓词为空", func(t *testing.T) {
		pred := b.Predicate(nil, nil, nil)
		assert.True(t, pred.Empty())
	})
}

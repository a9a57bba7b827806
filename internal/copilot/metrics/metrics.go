// Package metrics 提供检索服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SearchMetrics 检索服务业务指标。
type SearchMetrics struct {
	// 检索指标
	lexicalSearches uint64 // 词法检索次数
	vectorSearches  uint64 // 向量检索次数
	hybridSearches  uint64 // 混合检索次数
	searchErrors    uint64 // 检索错误次数
	searchDuration  float64

	// 缓存指标
	cacheHits   uint64 // 缓存命中次数
	cacheMisses uint64 // 缓存未命中次数

	// 图谱指标
	graphQueries  uint64 // 图谱查询次数
	graphFailures uint64 // 图谱软降级次数

	// 格式化指标
	rowsSkipped uint64 // 跳过的畸形行数

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalSearchMetrics *SearchMetrics
	searchMetricsOnce   sync.Once
)

// GetSearchMetrics 获取全局检索指标实例。
func GetSearchMetrics() *SearchMetrics {
	searchMetricsOnce.Do(func() {
		globalSearchMetrics = &SearchMetrics{startTime: time.Now()}
	})
	return globalSearchMetrics
}

// RecordSearch 记录一次检索调用。
func (m *SearchMetrics) RecordSearch(mode string, duration time.Duration, err error) {
	switch mode {
	case "vector":
		atomic.AddUint64(&m.vectorSearches, 1)
	case "hybrid":
		atomic.AddUint64(&m.hybridSearches, 1)
	default:
		atomic.AddUint64(&m.lexicalSearches, 1)
	}
	if err != nil {
		atomic.AddUint64(&m.searchErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.searchDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordCache 记录缓存命中情况。
func (m *SearchMetrics) RecordCache(hit bool) {
	if hit {
		atomic.AddUint64(&m.cacheHits, 1)
	} else {
		atomic.AddUint64(&m.cacheMisses, 1)
	}
}

// RecordGraphQuery 记录图谱查询;failed 表示发生软降级。
func (m *SearchMetrics) RecordGraphQuery(failed bool) {
	atomic.AddUint64(&m.graphQueries, 1)
	if failed {
		atomic.AddUint64(&m.graphFailures, 1)
	}
}

// RecordSkippedRow 记录一条无法映射的存储行。
func (m *SearchMetrics) RecordSkippedRow() {
	atomic.AddUint64(&m.rowsSkipped, 1)
}

// Stats 返回指标快照。
func (m *SearchMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	duration := m.searchDuration
	m.durationMu.Unlock()

	return map[string]any{
		"searches": map[string]any{
			"lexical":          atomic.LoadUint64(&m.lexicalSearches),
			"vector":           atomic.LoadUint64(&m.vectorSearches),
			"hybrid":           atomic.LoadUint64(&m.hybridSearches),
			"errors":           atomic.LoadUint64(&m.searchErrors),
			"duration_seconds": duration,
		},
		"cache": map[string]any{
			"hits":   atomic.LoadUint64(&m.cacheHits),
			"misses": atomic.LoadUint64(&m.cacheMisses),
		},
		"graph": map[string]any{
			"queries":  atomic.LoadUint64(&m.graphQueries),
			"failures": atomic.LoadUint64(&m.graphFailures),
		},
		"formatter": map[string]any{
			"rows_skipped": atomic.LoadUint64(&m.rowsSkipped),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Export 导出 Prometheus 文本格式指标。
func (m *SearchMetrics) Export(namespace string) string {
	var sb strings.Builder
	counter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", namespace, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", namespace, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", namespace, name, value))
	}

	counter("lexical_searches_total", "Total number of lexical searches.", atomic.LoadUint64(&m.lexicalSearches))
	counter("vector_searches_total", "Total number of vector searches.", atomic.LoadUint64(&m.vectorSearches))
	counter("hybrid_searches_total", "Total number of hybrid searches.", atomic.LoadUint64(&m.hybridSearches))
	counter("search_errors_total", "Number of failed searches.", atomic.LoadUint64(&m.searchErrors))
	counter("cache_hits_total", "Number of query cache hits.", atomic.LoadUint64(&m.cacheHits))
	counter("cache_misses_total", "Number of query cache misses.", atomic.LoadUint64(&m.cacheMisses))
	counter("graph_queries_total", "Total number of graph queries.", atomic.LoadUint64(&m.graphQueries))
	counter("graph_failures_total", "Number of graph queries degraded to empty results.", atomic.LoadUint64(&m.graphFailures))
	counter("formatter_rows_skipped_total", "Number of malformed rows skipped during formatting.", atomic.LoadUint64(&m.rowsSkipped))

	m.durationMu.Lock()
	duration := m.searchDuration
	m.durationMu.Unlock()
	sb.WriteString(fmt.Sprintf("# HELP %s_search_duration_seconds_total Total search duration.\n", namespace))
	sb.WriteString(fmt.Sprintf("# TYPE %s_search_duration_seconds_total counter\n", namespace))
	sb.WriteString(fmt.Sprintf("%s_search_duration_seconds_total %.6f\n", namespace, duration))

	return sb.String()
}

// Reset 重置全局指标实例,仅用于测试。
func (m *SearchMetrics) Reset() {
	searchMetricsOnce = sync.Once{}
	globalSearchMetrics = nil
}

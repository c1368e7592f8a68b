package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects in-process counters for tagging runs.
type Metrics struct {
	mu sync.Mutex

	documentsTotal  atomic.Int64
	documentsFailed atomic.Int64
	annotations     atomic.Int64
	skippedSpans    atomic.Int64

	// Per-strategy metrics, keyed by strategy selector.
	strategyMetrics map[string]*StrategyMetrics

	durations    []time.Duration
	maxDurations int
}

// StrategyMetrics represents metrics for one reference date strategy.
type StrategyMetrics struct {
	documentCount atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		strategyMetrics: make(map[string]*StrategyMetrics),
		durations:       make([]time.Duration, 0, maxDurations),
		maxDurations:    maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordDocument records a document entering the pipeline.
func (m *Metrics) RecordDocument(strategy string) {
	m.documentsTotal.Add(1)
	m.getStrategyMetrics(strategy).documentCount.Add(1)
}

// RecordFailure records a document whose tagging failed.
func (m *Metrics) RecordFailure(strategy string) {
	m.documentsFailed.Add(1)
	m.getStrategyMetrics(strategy).errorCount.Add(1)
}

// RecordAnnotations records written annotations and skipped spans of one document.
func (m *Metrics) RecordAnnotations(written, skipped int) {
	m.annotations.Add(int64(written))
	m.skippedSpans.Add(int64(skipped))
}

// RecordDuration records a document duration.
func (m *Metrics) RecordDuration(strategy string, duration time.Duration) {
	m.getStrategyMetrics(strategy).totalDuration.Add(duration.Milliseconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
}

// GetDocumentsTotal returns the number of documents processed.
func (m *Metrics) GetDocumentsTotal() int64 {
	return m.documentsTotal.Load()
}

// GetDocumentsFailed returns the number of failed documents.
func (m *Metrics) GetDocumentsFailed() int64 {
	return m.documentsFailed.Load()
}

// GetAnnotations returns the number of annotations written.
func (m *Metrics) GetAnnotations() int64 {
	return m.annotations.Load()
}

func (m *Metrics) getStrategyMetrics(strategy string) *StrategyMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.strategyMetrics[strategy]
	if !ok {
		sm = &StrategyMetrics{}
		m.strategyMetrics[strategy] = sm
	}
	return sm
}

// GetAverageDuration returns the average duration in milliseconds for a strategy.
func (m *Metrics) GetAverageDuration(strategy string) int64 {
	sm := m.getStrategyMetrics(strategy)
	count := sm.documentCount.Load()
	if count == 0 {
		return 0
	}
	return sm.totalDuration.Load() / count
}

// GetAllStrategies returns the strategies that have been recorded, sorted.
func (m *Metrics) GetAllStrategies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	strategies := make([]string, 0, len(m.strategyMetrics))
	for strategy := range m.strategyMetrics {
		strategies = append(strategies, strategy)
	}
	sort.Strings(strategies)
	return strategies
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.documentsTotal.Store(0)
	m.documentsFailed.Store(0)
	m.annotations.Store(0)
	m.skippedSpans.Store(0)

	m.mu.Lock()
	m.strategyMetrics = make(map[string]*StrategyMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	strategies := make(map[string]*StrategyMetricsSnapshot, len(m.strategyMetrics))
	for strategy, sm := range m.strategyMetrics {
		snapshot := &StrategyMetricsSnapshot{
			DocumentCount: sm.documentCount.Load(),
			TotalDuration: sm.totalDuration.Load(),
			ErrorCount:    sm.errorCount.Load(),
		}
		if snapshot.DocumentCount > 0 {
			snapshot.AverageDuration = snapshot.TotalDuration / snapshot.DocumentCount
		}
		strategies[strategy] = snapshot
	}

	var p95 time.Duration
	if n := len(m.durations); n > 0 {
		sorted := append([]time.Duration(nil), m.durations...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		p95 = sorted[(n*95-1)/100]
	}

	return &MetricsSnapshot{
		DocumentsTotal:  m.documentsTotal.Load(),
		DocumentsFailed: m.documentsFailed.Load(),
		Annotations:     m.annotations.Load(),
		SkippedSpans:    m.skippedSpans.Load(),
		Strategies:      strategies,
		DurationCount:   len(m.durations),
		P95DurationMs:   p95.Milliseconds(),
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	DocumentsTotal  int64                               `json:"documentsTotal"`
	DocumentsFailed int64                               `json:"documentsFailed"`
	Annotations     int64                               `json:"annotations"`
	SkippedSpans    int64                               `json:"skippedSpans"`
	Strategies      map[string]*StrategyMetricsSnapshot `json:"strategies"`
	DurationCount   int                                 `json:"durationCount"`
	P95DurationMs   int64                               `json:"p95DurationMs"`
}

// StrategyMetricsSnapshot represents metrics for one strategy.
type StrategyMetricsSnapshot struct {
	DocumentCount   int64 `json:"documentCount"`
	TotalDuration   int64 `json:"totalDurationMs"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.DocumentsTotal == 0 {
		return 100.0
	}
	return float64(s.DocumentsTotal-s.DocumentsFailed) / float64(s.DocumentsTotal) * 100.0
}

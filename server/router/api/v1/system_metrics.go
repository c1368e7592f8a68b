package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/timextag/internal/version"
)

// MetricsResponse represents the tagging metrics of this process.
type MetricsResponse struct {
	Version         string  `json:"version"`
	DocumentsTotal  int64   `json:"documents_total"`
	DocumentsFailed int64   `json:"documents_failed"`
	SuccessRate     float64 `json:"success_rate"`
	Annotations     int64   `json:"annotations"`
	SkippedSpans    int64   `json:"skipped_spans"`
	P95LatencyMs    int64   `json:"p95_latency_ms"`
	Strategies      any     `json:"strategies"`
}

// GetMetrics returns the in-process tagging metrics.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsResponse{
		Version:         version.GetCurrentVersion(s.Profile.Mode),
		DocumentsTotal:  snapshot.DocumentsTotal,
		DocumentsFailed: snapshot.DocumentsFailed,
		SuccessRate:     snapshot.SuccessRate(),
		Annotations:     snapshot.Annotations,
		SkippedSpans:    snapshot.SkippedSpans,
		P95LatencyMs:    snapshot.P95DurationMs,
		Strategies:      snapshot.Strategies,
	})
}

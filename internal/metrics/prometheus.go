// Package metrics provides Prometheus metrics for the commentary pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chalkboard"

var (
	// CacheOperationsTotal tracks cache operations.
	// Labels:
	//   - operation: get, set, delete, sweep
	//   - status: hit, miss, success, error
	//   - cache_type: memory, redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// PipelineStageTotal counts fallback chain stage outcomes.
	// Labels:
	//   - pipeline: analyze
	//   - stage: vision, captions, audio, stub
	//   - outcome: success, error, timeout, empty
	PipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Total number of analysis stage attempts",
		},
		[]string{"pipeline", "stage", "outcome"},
	)

	// PipelineStageDuration observes how long each stage ran.
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of analysis stage attempts",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"pipeline", "stage"},
	)

	// ProviderRequestsTotal tracks hosted model calls.
	// Labels:
	//   - provider: gemini, openai, azure, grok, whisper
	//   - operation: text, vision, audio
	//   - status: success, error, rate_limited
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of model provider requests",
		},
		[]string{"provider", "operation", "status"},
	)

	// DedupDecisionsTotal tracks live commentary deduplication.
	// Labels:
	//   - decision: accepted, suppressed
	DedupDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_decisions_total",
			Help:      "Total number of live commentary deduplication decisions",
		},
		[]string{"decision"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - group: analyze, captions
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"group", "result"},
	)

	// HTTPRequestsTotal tracks served HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
	CacheOpSweep  = "sweep"
)

// Cache type constants.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// Stage result constants.
const (
	StageSuccess = "success"
	StageError   = "error"
	StageTimeout = "timeout"
	StageEmpty   = "empty"
)

// Provider status constants.
const (
	ProviderSuccess     = "success"
	ProviderError       = "error"
	ProviderRateLimited = "rate_limited"
)

// Dedup decision constants.
const (
	DedupAccepted   = "accepted"
	DedupSuppressed = "suppressed"
)

// Singleflight constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"

	GroupAnalyze  = "analyze"
	GroupCaptions = "captions"
)

// ObserveStage records one stage attempt.
func ObserveStage(pipeline, stage, outcome string, elapsed time.Duration) {
	PipelineStageTotal.WithLabelValues(pipeline, stage, outcome).Inc()
	PipelineStageDuration.WithLabelValues(pipeline, stage).Observe(elapsed.Seconds())
}

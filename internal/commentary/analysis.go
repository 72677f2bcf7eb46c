package commentary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/chalkboard/internal/cache"
	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/metrics"
)

// PipelineAnalyze labels the analysis chain in metrics.
const PipelineAnalyze = "analyze"

// DefaultAnalyzeTTL is how long an analysis stays cached.
const DefaultAnalyzeTTL = 600 * time.Second

// Analogizer rewrites commentary as an NFL analogy. It never fails.
type Analogizer interface {
	Generate(ctx context.Context, commentary string) string
}

// AnalysisService answers "what is happening at t" requests, caching the
// result per video second.
type AnalysisService struct {
	chain   *Chain
	analogy Analogizer
	cache   cache.Cache[domain.Analysis]
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewAnalysisService creates an analysis service. ttl <= 0 uses
// DefaultAnalyzeTTL.
func NewAnalysisService(chain *Chain, analogy Analogizer, c cache.Cache[domain.Analysis], ttl time.Duration, logger *slog.Logger) *AnalysisService {
	if ttl <= 0 {
		ttl = DefaultAnalyzeTTL
	}
	return &AnalysisService{
		chain:   chain,
		analogy: analogy,
		cache:   c,
		ttl:     ttl,
		logger:  logger.With("component", "analysis"),
	}
}

// Analyze returns the commentary and analogy for videoID at timestamp. A hit
// on the exact second or up to two seconds either side is returned with
// cached set and the request's timestamp. Concurrent misses on the same
// second share one pipeline run.
func (s *AnalysisService) Analyze(ctx context.Context, videoID string, timestamp float64) (domain.Analysis, bool, error) {
	if videoID == "" {
		return domain.Analysis{}, false, fmt.Errorf("%w: videoId is required", domain.ErrInvalidRequest)
	}
	if timestamp < 0 {
		return domain.Analysis{}, false, fmt.Errorf("%w: timestamp must not be negative", domain.ErrInvalidRequest)
	}

	if hit, key, ok := cache.Lookup(ctx, s.cache, videoID, timestamp); ok {
		s.logger.Debug("analysis cache hit", "video_id", videoID, "timestamp", timestamp, "key", key)
		hit.Timestamp = timestamp
		return hit, true, nil
	}

	key := domain.CacheKey(videoID, timestamp)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.GroupAnalyze, metrics.SingleflightInitiated).Inc()
		return s.run(context.WithoutCancel(ctx), key, videoID, timestamp)
	})

	select {
	case <-ctx.Done():
		return domain.Analysis{}, false, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightRequestsTotal.WithLabelValues(metrics.GroupAnalyze, metrics.SingleflightShared).Inc()
		}
		if res.Err != nil {
			return domain.Analysis{}, false, res.Err
		}
		a := res.Val.(domain.Analysis)
		a.Timestamp = timestamp
		return a, false, nil
	}
}

func (s *AnalysisService) run(ctx context.Context, key, videoID string, timestamp float64) (domain.Analysis, error) {
	outcome, err := s.chain.Run(ctx, Request{VideoID: videoID, Timestamp: timestamp})
	if err != nil {
		return domain.Analysis{}, domain.NewStageError(PipelineAnalyze, err)
	}

	a := domain.Analysis{
		OriginalCommentary: outcome.Text,
		NFLAnalogy:         s.analogy.Generate(ctx, outcome.Text),
		Timestamp:          timestamp,
		Source:             outcome.Stage,
	}

	if err := s.cache.Set(ctx, key, a, s.ttl); err != nil {
		s.logger.Warn("failed to cache analysis", "key", key, "error", err)
	}

	s.logger.Info("analysis complete",
		"video_id", videoID,
		"timestamp", timestamp,
		"source", outcome.Stage,
		"attempts", len(outcome.Attempts),
	)
	return a, nil
}

// ClearExpired sweeps the analysis cache.
func (s *AnalysisService) ClearExpired() int {
	return s.cache.ClearExpired()
}

// Ping checks the cache backend.
func (s *AnalysisService) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

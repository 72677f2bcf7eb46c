package commentary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iconidentify/chalkboard/internal/dedup"
	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/metrics"
)

const (
	// DefaultWindowSeconds is how far back a live request looks for frames.
	DefaultWindowSeconds = 5.0
	// DefaultLiveTimeout bounds one live commentary request.
	DefaultLiveTimeout = 10 * time.Second
)

const noFramesMessage = "No frames extracted"

// LiveService describes the seconds leading up to the playhead and drops
// lines that repeat recent commentary for the same video.
type LiveService struct {
	frames    FrameWindower
	describer Describer
	registry  *dedup.Registry
	timeout   time.Duration
	logger    *slog.Logger
}

// NewLiveService creates a live commentary service. timeout <= 0 uses
// DefaultLiveTimeout.
func NewLiveService(frames FrameWindower, describer Describer, registry *dedup.Registry, timeout time.Duration, logger *slog.Logger) *LiveService {
	if timeout <= 0 {
		timeout = DefaultLiveTimeout
	}
	return &LiveService{
		frames:    frames,
		describer: describer,
		registry:  registry,
		timeout:   timeout,
		logger:    logger.With("component", "live"),
	}
}

// Generate produces commentary for ref at ts from a window of frames. It
// never returns an error; failures are reported in the result.
func (s *LiveService) Generate(ctx context.Context, ref string, ts, window float64) domain.CommentaryResult {
	if window <= 0 {
		window = DefaultWindowSeconds
	}
	videoID := domain.VideoIDFromURL(ref)
	logger := s.logger.With("video_id", videoID, "timestamp", ts)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.describer == nil || !s.describer.Available() {
		return domain.Failed(domain.ErrProviderUnavailable, ts)
	}

	frames := s.frames.Window(ctx, ref, ts, window)
	if err := s.timedOut(ctx); err != nil {
		logger.Warn("live commentary timed out", "step", "frames")
		return domain.Failed(err, ts)
	}
	if len(frames) == 0 {
		logger.Warn("no frames extracted")
		return domain.CommentaryResult{Timestamp: ts, Error: noFramesMessage}
	}

	text, err := s.describer.Describe(ctx, frames)
	if err != nil {
		if terr := s.timedOut(ctx); terr != nil {
			err = terr
		}
		logger.Warn("live description failed", "frames", len(frames), "error", err)
		return domain.Failed(err, ts)
	}

	d := s.registry.For(videoID)
	if d.ShouldSkip(text) {
		metrics.DedupDecisionsTotal.WithLabelValues(metrics.DedupSuppressed).Inc()
		logger.Info("commentary suppressed as a repeat")
		return domain.Suppressed(text, ts)
	}
	d.Record(text, ts)
	metrics.DedupDecisionsTotal.WithLabelValues(metrics.DedupAccepted).Inc()
	logger.Info("commentary accepted", "frames", len(frames))
	return domain.Accepted(text, ts)
}

func (s *LiveService) timedOut(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("live commentary timed out after %s", s.timeout)
	}
	return ctx.Err()
}

// ClearHistory forgets the deduplication history of ref, or of every video
// when ref is empty.
func (s *LiveService) ClearHistory(ref string) {
	if ref == "" {
		s.registry.ClearAll()
		s.logger.Info("cleared all commentary history")
		return
	}
	videoID := domain.VideoIDFromURL(ref)
	s.registry.Clear(videoID)
	s.logger.Info("cleared commentary history", "video_id", videoID)
}

// Package frames extracts downscaled JPEG stills from remote videos.
package frames

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// Defaults for a Source.
const (
	DefaultConcurrency  = 3
	DefaultFrameTimeout = 8 * time.Second
)

// StreamResolver turns a video reference into a seekable media URL.
type StreamResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Grabber decodes a single still from a media URL at an offset in seconds.
type Grabber interface {
	ExtractFrame(ctx context.Context, input string, seconds float64) ([]byte, error)
}

// Options tunes frame extraction.
type Options struct {
	MaxEdge         int
	JPEGQuality     int
	Concurrency     int
	FrameTimeout    time.Duration
	MaxFrames       int
	SimilarDistance int
}

func (o Options) withDefaults() Options {
	if o.MaxEdge <= 0 {
		o.MaxEdge = DefaultMaxEdge
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.FrameTimeout <= 0 {
		o.FrameTimeout = DefaultFrameTimeout
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = DefaultWindowFrames
	}
	if o.SimilarDistance < 0 {
		o.SimilarDistance = 0
	}
	return o
}

// Source pulls frames out of remote videos.
type Source struct {
	resolver StreamResolver
	grabber  Grabber
	opts     Options
	logger   *slog.Logger
}

// NewSource creates a frame source.
func NewSource(resolver StreamResolver, grabber Grabber, opts Options, logger *slog.Logger) *Source {
	return &Source{
		resolver: resolver,
		grabber:  grabber,
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "frames"),
	}
}

// ExtractFrame grabs one frame of ref at t seconds.
func (s *Source) ExtractFrame(ctx context.Context, ref string, t float64) (*domain.Frame, error) {
	url, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.grab(ctx, url, t)
}

// ExtractRange grabs frames between t0 and t1 every interval seconds, plus
// the midpoint. Individual failures are dropped; frames come back sorted by
// timestamp. The stream is resolved once for the whole range.
func (s *Source) ExtractRange(ctx context.Context, ref string, t0, t1, interval float64) []domain.Frame {
	times := SampleTimes(t0, t1, interval)
	if len(times) == 0 {
		return nil
	}

	url, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		s.logger.Warn("stream resolution failed", "ref", ref, "error", err)
		return nil
	}

	var (
		mu     sync.Mutex
		frames = make([]domain.Frame, 0, len(times))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, ts := range times {
		g.Go(func() error {
			frame, err := s.grab(gctx, url, ts)
			if err != nil {
				s.logger.Debug("frame extraction failed", "timestamp", ts, "error", err)
				return nil
			}
			mu.Lock()
			frames = append(frames, *frame)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Timestamp < frames[j].Timestamp
	})

	s.logger.Debug("extracted frame range", "ref", ref, "start", t0, "end", t1, "requested", len(times), "frames", len(frames))
	return frames
}

func (s *Source) grab(ctx context.Context, url string, t float64) (*domain.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FrameTimeout)
	defer cancel()

	raw, err := s.grabber.ExtractFrame(ctx, url, t)
	if err != nil {
		return nil, fmt.Errorf("grab frame at %.2fs: %w", t, err)
	}

	jpeg, err := Encode(raw, s.opts.MaxEdge, s.opts.JPEGQuality)
	if err != nil {
		return nil, err
	}
	return &domain.Frame{Timestamp: t, JPEG: jpeg}, nil
}

// SampleTimes returns t0, t0+interval, ... up to t1, plus the midpoint of
// [t0, t1] when it is not already present, in ascending order.
func SampleTimes(t0, t1, interval float64) []float64 {
	if t1 < t0 {
		return nil
	}
	if interval <= 0 {
		interval = t1 - t0
	}

	var times []float64
	if interval <= 0 {
		times = []float64{t0}
	} else {
		for i := 0; ; i++ {
			ts := t0 + float64(i)*interval
			if ts > t1+1e-9 {
				break
			}
			times = append(times, round3(ts))
		}
	}

	mid := round3((t0 + t1) / 2)
	if !containsTime(times, mid) {
		times = append(times, mid)
		sort.Float64s(times)
	}
	return times
}

func containsTime(times []float64, t float64) bool {
	for _, v := range times {
		if math.Abs(v-t) < 1e-6 {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package frames

import (
	"bytes"
	"context"
	"math"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"github.com/iconidentify/chalkboard/internal/domain"
)

// Frame window defaults.
const (
	DefaultWindowSeconds = 5.0
	DefaultWindowFrames  = 4
	MaxWindowFrames      = 8

	minWindowInterval = 1.5
)

// Window returns frames from the window seconds leading up to t. The
// sampling interval is stretched so that about MaxFrames frames cover the
// window. When the range yields nothing a single frame at t is tried.
// Near-duplicate frames are dropped when a similarity distance is set.
func (s *Source) Window(ctx context.Context, ref string, t, window float64) []domain.Frame {
	if window <= 0 {
		window = DefaultWindowSeconds
	}

	start := math.Max(0, t-window)
	interval := WindowInterval(window, s.opts.MaxFrames)

	frames := s.ExtractRange(ctx, ref, start, t, interval)
	if len(frames) == 0 {
		s.logger.Info("no frames in window, trying single frame", "ref", ref, "timestamp", t)
		frame, err := s.ExtractFrame(ctx, ref, t)
		if err != nil {
			s.logger.Warn("single frame extraction failed", "ref", ref, "timestamp", t, "error", err)
			return nil
		}
		return []domain.Frame{*frame}
	}

	kept := FilterSimilar(frames, s.opts.SimilarDistance)
	if dropped := len(frames) - len(kept); dropped > 0 {
		s.logger.Debug("dropped similar frames", "ref", ref, "dropped", dropped)
	}
	return kept
}

// WindowInterval returns the sampling interval for a window holding at most
// maxFrames frames (clamped to 1..8).
func WindowInterval(window float64, maxFrames int) float64 {
	maxFrames = max(1, min(maxFrames, MaxWindowFrames))
	if maxFrames == 1 {
		return window
	}
	return math.Max(minWindowInterval, window/float64(maxFrames-1))
}

// FilterSimilar drops frames whose perceptual hash is within distance of the
// previously kept frame. The last frame is always kept. A distance of 0
// disables filtering, as does any frame that cannot be hashed.
func FilterSimilar(frames []domain.Frame, distance int) []domain.Frame {
	if distance <= 0 || len(frames) < 2 {
		return frames
	}

	kept := make([]domain.Frame, 0, len(frames))
	var last *goimagehash.ImageHash

	for i, f := range frames {
		hash, err := hashFrame(f.JPEG)
		if err != nil {
			return frames
		}

		isLast := i == len(frames)-1
		if last != nil && !isLast {
			if d, err := last.Distance(hash); err == nil && d <= distance {
				continue
			}
		}

		kept = append(kept, f)
		last = hash
	}
	return kept
}

func hashFrame(data []byte) (*goimagehash.ImageHash, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return goimagehash.PerceptionHash(img)
}

package frames

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iconidentify/chalkboard/internal/cache"
	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/pkg/ytdlp"
)

// Format selectors passed to yt-dlp.
const (
	VideoFormat = "best[ext=mp4][height<=720]/best[ext=webm][height<=720]/best[height<=720]/worst"
	AudioFormat = "worstaudio/worst"
)

// DefaultStreamURLTTL is how long a resolved media URL is reused.
const DefaultStreamURLTTL = 120 * time.Second

const maxProgressiveHeight = 720

// InfoFetcher dumps video metadata for a selected format.
type InfoFetcher interface {
	DumpJSON(ctx context.Context, url, format string) (*ytdlp.Info, error)
}

// Resolver turns a video reference into a direct media URL that ffmpeg can
// seek in. Results are cached per normalized reference.
type Resolver struct {
	info         InfoFetcher
	format       string
	requireVideo bool
	ttl          time.Duration
	cache        *cache.Memory[string]
	logger       *slog.Logger
}

// NewVideoResolver resolves seekable video streams (720p or lower).
func NewVideoResolver(info InfoFetcher, ttl time.Duration, logger *slog.Logger) *Resolver {
	return newResolver(info, VideoFormat, true, ttl, logger)
}

// NewAudioResolver resolves the smallest stream that carries audio.
func NewAudioResolver(info InfoFetcher, ttl time.Duration, logger *slog.Logger) *Resolver {
	return newResolver(info, AudioFormat, false, ttl, logger)
}

func newResolver(info InfoFetcher, format string, requireVideo bool, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultStreamURLTTL
	}
	return &Resolver{
		info:         info,
		format:       format,
		requireVideo: requireVideo,
		ttl:          ttl,
		cache:        cache.NewMemory[string](ttl),
		logger:       logger.With("component", "stream_resolver", "format", format),
	}
}

// Resolve returns a media URL for ref. Failures wrap domain.ErrNoStreamURL.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	key := domain.NormalizeVideoURL(ref)

	if url, ok, _ := r.cache.Get(ctx, key); ok {
		return url, nil
	}

	info, err := r.info.DumpJSON(ctx, key, r.format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrNoStreamURL, err)
	}

	url := r.pick(info)
	if url == "" {
		return "", domain.ErrNoStreamURL
	}

	_ = r.cache.Set(ctx, key, url, r.ttl)
	return url, nil
}

// ClearExpired drops stale cached URLs.
func (r *Resolver) ClearExpired() int {
	return r.cache.ClearExpired()
}

func (r *Resolver) pick(info *ytdlp.Info) string {
	url := info.URL
	if url == "" && len(info.RequestedFormats) > 0 {
		url = info.RequestedFormats[0].URL
	}

	if url == "" || isManifest(url) {
		if alt, ok := bestProgressive(info.Formats, r.requireVideo); ok {
			r.logger.Debug("using progressive format", "format_id", alt.FormatID, "height", alt.Height)
			return alt.URL
		}
	}
	return url
}

func isManifest(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, ".m3u8") || strings.Contains(lower, "manifest")
}

// bestProgressive picks the tallest plain-HTTP format at or under 720p,
// falling back to the tallest of any height.
func bestProgressive(formats []ytdlp.Format, requireVideo bool) (ytdlp.Format, bool) {
	var best, tallest ytdlp.Format
	var haveBest, haveTallest bool

	for _, f := range formats {
		if f.URL == "" || isManifest(f.URL) {
			continue
		}
		if requireVideo && !f.HasVideo() {
			continue
		}
		if f.Protocol != "http" && f.Protocol != "https" {
			continue
		}

		if !haveTallest || f.Height > tallest.Height {
			tallest, haveTallest = f, true
		}
		if f.Height <= maxProgressiveHeight && (!haveBest || f.Height > best.Height) {
			best, haveBest = f, true
		}
	}

	if haveBest {
		return best, true
	}
	return tallest, haveTallest
}

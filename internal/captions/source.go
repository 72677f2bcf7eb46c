// Package captions fetches and queries timed caption tracks.
package captions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/metrics"
	"github.com/iconidentify/chalkboard/pkg/ytdlp"
)

const (
	// DefaultFetchTimeout bounds one metadata dump plus track download.
	DefaultFetchTimeout = 15 * time.Second

	// Grace period after a caption ends during which it still counts as current.
	lingerSeconds = 3.0
	// Maximum distance to the nearest caption start for the fallback lookup.
	nearestSeconds = 5.0

	maxTrackBytes = 10 << 20
)

// InfoFetcher dumps video metadata, including caption track listings.
type InfoFetcher interface {
	DumpJSON(ctx context.Context, url, format string) (*ytdlp.Info, error)
}

// Source fetches caption tracks and answers timestamp queries against them.
// Tracks are cached per normalized video reference for the process lifetime.
type Source struct {
	info       InfoFetcher
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string][]domain.CaptionRecord

	group singleflight.Group
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient replaces the client used to download tracks.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.httpClient = c
	}
}

// WithFetchTimeout sets the deadline for a single shared fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSource creates a caption source.
func NewSource(info InfoFetcher, logger *slog.Logger, opts ...Option) *Source {
	s := &Source{
		info:       info,
		httpClient: &http.Client{},
		timeout:    DefaultFetchTimeout,
		logger:     logger.With("component", "captions"),
		cache:      make(map[string][]domain.CaptionRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the caption records for ref. It never fails: errors are
// logged and reported as an empty result.
//
// Concurrent calls for the same reference share one fetch. The shared fetch
// runs under its own deadline, so a caller whose context ends early stops
// waiting without cancelling the work other callers depend on.
func (s *Source) Fetch(ctx context.Context, ref string) []domain.CaptionRecord {
	key := domain.NormalizeVideoURL(ref)

	s.mu.RLock()
	records, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return records
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		records, err := s.load(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			s.mu.Lock()
			s.cache[key] = records
			s.mu.Unlock()
		}
		return records, nil
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("caption wait abandoned", "url", key, "error", ctx.Err())
		return nil
	case res := <-ch:
		result := metrics.SingleflightInitiated
		if res.Shared {
			result = metrics.SingleflightShared
		}
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.GroupCaptions, result).Inc()

		if res.Err != nil {
			s.logger.Warn("caption fetch failed", "url", key, "error", res.Err)
			return nil
		}
		records, _ := res.Val.([]domain.CaptionRecord)
		return records
	}
}

// AtTimestamp returns the caption text shown at t, if any.
func (s *Source) AtTimestamp(ctx context.Context, ref string, t float64) (string, bool) {
	return At(s.Fetch(ctx, ref), t)
}

// InRange returns the captions overlapping [t0, t1].
func (s *Source) InRange(ctx context.Context, ref string, t0, t1 float64) []domain.CaptionRecord {
	return InRange(s.Fetch(ctx, ref), t0, t1)
}

func (s *Source) load(ctx context.Context, url string) ([]domain.CaptionRecord, error) {
	info, err := s.info.DumpJSON(ctx, url, "")
	if err != nil {
		return nil, fmt.Errorf("dump info: %w", err)
	}

	track, ok := SelectTrack(info.Subtitles, info.AutomaticCaptions)
	if !ok {
		s.logger.Info("no caption track", "url", url)
		return nil, nil
	}

	content, err := s.download(ctx, track.URL)
	if err != nil {
		return nil, fmt.Errorf("download %s track: %w", track.Ext, err)
	}

	records := Parse(content)
	s.logger.Info("captions loaded", "url", url, "format", track.Ext, "records", len(records))
	return records, nil
}

func (s *Source) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// SelectTrack picks the caption track to download: manual English, then
// automatic English, then the first automatic language, then the first
// manual language (languages in lexical order). Within a language, a vtt or
// srv3 track is preferred over the first track with a URL.
func SelectTrack(subtitles, automatic map[string][]ytdlp.Track) (ytdlp.Track, bool) {
	var candidates [][]ytdlp.Track
	if tracks := subtitles["en"]; len(tracks) > 0 {
		candidates = append(candidates, tracks)
	}
	if tracks := automatic["en"]; len(tracks) > 0 {
		candidates = append(candidates, tracks)
	}
	if lang, ok := firstLanguage(automatic); ok {
		candidates = append(candidates, automatic[lang])
	}
	if lang, ok := firstLanguage(subtitles); ok {
		candidates = append(candidates, subtitles[lang])
	}

	for _, tracks := range candidates {
		if track, ok := pickTrack(tracks); ok {
			return track, true
		}
	}
	return ytdlp.Track{}, false
}

func firstLanguage(tracks map[string][]ytdlp.Track) (string, bool) {
	langs := make([]string, 0, len(tracks))
	for lang, list := range tracks {
		if len(list) > 0 {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return "", false
	}
	sort.Strings(langs)
	return langs[0], true
}

func pickTrack(tracks []ytdlp.Track) (ytdlp.Track, bool) {
	for _, t := range tracks {
		if t.URL != "" && (strings.EqualFold(t.Ext, "vtt") || strings.EqualFold(t.Ext, "srv3")) {
			return t, true
		}
	}
	for _, t := range tracks {
		if t.URL != "" {
			return t, true
		}
	}
	return ytdlp.Track{}, false
}

// At returns the text of the first record displayed at t (allowing a short
// linger after it ends), else the record starting nearest to t when that is
// under five seconds away.
func At(records []domain.CaptionRecord, t float64) (string, bool) {
	for _, r := range records {
		if r.Start <= t && t <= r.End()+lingerSeconds {
			return strings.TrimSpace(r.Text), true
		}
	}

	best := -1
	bestDist := math.Inf(1)
	for i, r := range records {
		if d := math.Abs(t - r.Start); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && bestDist < nearestSeconds {
		return strings.TrimSpace(records[best].Text), true
	}
	return "", false
}

// InRange returns the records overlapping [t0, t1], in order.
func InRange(records []domain.CaptionRecord, t0, t1 float64) []domain.CaptionRecord {
	var out []domain.CaptionRecord
	for _, r := range records {
		if r.End() < t0 || r.Start > t1 {
			continue
		}
		out = append(out, r)
	}
	return out
}

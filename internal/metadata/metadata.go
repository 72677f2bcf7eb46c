// Package metadata fetches and caches video metadata via yt-dlp.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/pkg/ytdlp"
)

// DefaultTimeout bounds one yt-dlp metadata dump.
const DefaultTimeout = 10 * time.Second

const (
	maxDescriptionRunes = 500
	unknown             = "Unknown"
)

// InfoFetcher dumps video information.
type InfoFetcher interface {
	DumpJSON(ctx context.Context, url, format string) (*ytdlp.Info, error)
}

// Service returns metadata for video references. Successful lookups are
// kept for the life of the process.
type Service struct {
	info    InfoFetcher
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]*domain.VideoMetadata
	group singleflight.Group
}

// NewService creates a metadata service. timeout <= 0 uses DefaultTimeout.
func NewService(info InfoFetcher, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		info:    info,
		timeout: timeout,
		logger:  logger.With("component", "metadata"),
		cache:   make(map[string]*domain.VideoMetadata),
	}
}

// Get returns metadata for ref (a bare video ID or URL). Any extraction
// failure is reported as domain.ErrMetadataNotFound.
func (s *Service) Get(ctx context.Context, ref string) (*domain.VideoMetadata, error) {
	url := domain.NormalizeVideoURL(ref)

	s.mu.RLock()
	md, ok := s.cache[url]
	s.mu.RUnlock()
	if ok {
		return md, nil
	}

	v, err, _ := s.group.Do(url, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		info, err := s.info.DumpJSON(fetchCtx, url, "")
		if err != nil {
			return nil, err
		}
		md := FromInfo(info, url)

		s.mu.Lock()
		s.cache[url] = md
		s.mu.Unlock()
		return md, nil
	})
	if err != nil {
		s.logger.Warn("metadata extraction failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrMetadataNotFound, err)
	}

	md = v.(*domain.VideoMetadata)
	s.logger.Debug("extracted metadata", "url", url, "title", md.Title)
	return md, nil
}

// FromInfo maps a yt-dlp dump to VideoMetadata.
func FromInfo(info *ytdlp.Info, url string) *domain.VideoMetadata {
	md := &domain.VideoMetadata{
		Title:       info.Title,
		Description: truncateRunes(info.Description, maxDescriptionRunes),
		Uploader:    info.Uploader,
		Duration:    info.Duration,
		ViewCount:   info.ViewCount,
		UploadDate:  info.UploadDate,
		VideoID:     info.ID,
		URL:         url,
	}
	if md.Title == "" {
		md.Title = unknown
	}
	if md.Uploader == "" {
		md.Uploader = unknown
	}
	return md
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package domain

import (
	"fmt"
	"strings"
)

const youtubeWatchPrefix = "https://www.youtube.com/watch?v="

// VideoMetadata describes a video as reported by the extraction tool.
type VideoMetadata struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`
	ViewCount   int64   `json:"view_count"`
	UploadDate  string  `json:"upload_date"`
	VideoID     string  `json:"video_id"`
	URL         string  `json:"url"`
}

// NormalizeVideoURL turns a bare video ID into a watch URL.
// Anything that already looks like an http(s) URL is returned unchanged.
func NormalizeVideoURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return youtubeWatchPrefix + ref
}

// VideoIDFromURL extracts the YouTube video ID from watch or short URLs.
// Other references are returned as-is.
func VideoIDFromURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if _, after, ok := strings.Cut(ref, "youtube.com/watch?v="); ok {
		return cutAny(after, "&?")
	}
	if _, after, ok := strings.Cut(ref, "youtu.be/"); ok {
		return cutAny(after, "?&")
	}
	return ref
}

func cutAny(s, seps string) string {
	if i := strings.IndexAny(s, seps); i >= 0 {
		return s[:i]
	}
	return s
}

// CacheKey returns the analysis cache key for a video at a timestamp.
// The timestamp is truncated to whole seconds.
func CacheKey(videoID string, timestamp float64) string {
	return fmt.Sprintf("%s:%d", videoID, int(timestamp))
}

// NeighborKeys returns the cache keys probed for a lookup: the exact second
// first, then one and two seconds either side.
func NeighborKeys(videoID string, timestamp float64) []string {
	base := int(timestamp)
	offsets := []int{0, -1, 1, -2, 2}
	keys := make([]string, 0, len(offsets))
	for _, off := range offsets {
		keys = append(keys, fmt.Sprintf("%s:%d", videoID, base+off))
	}
	return keys
}

// FormatClock renders seconds as M:SS.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

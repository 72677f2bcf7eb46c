// Package ytdlp wraps the yt-dlp command line tool.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Client runs yt-dlp as a subprocess.
type Client struct {
	path string
}

// New creates a client for the yt-dlp binary at path ("yt-dlp" if empty).
func New(path string) *Client {
	if path == "" {
		path = "yt-dlp"
	}
	return &Client{path: path}
}

// Info is the subset of `yt-dlp --dump-json` output this service reads.
type Info struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Uploader          string             `json:"uploader"`
	Channel           string             `json:"channel"`
	Duration          float64            `json:"duration"`
	ViewCount         int64              `json:"view_count"`
	UploadDate        string             `json:"upload_date"`
	WebpageURL        string             `json:"webpage_url"`
	URL               string             `json:"url"`
	Ext               string             `json:"ext"`
	Protocol          string             `json:"protocol"`
	Height            int                `json:"height"`
	Formats           []Format           `json:"formats"`
	RequestedFormats  []Format           `json:"requested_formats"`
	Subtitles         map[string][]Track `json:"subtitles"`
	AutomaticCaptions map[string][]Track `json:"automatic_captions"`
}

// Format is one downloadable rendition.
type Format struct {
	FormatID string `json:"format_id"`
	URL      string `json:"url"`
	Ext      string `json:"ext"`
	Protocol string `json:"protocol"`
	VCodec   string `json:"vcodec"`
	ACodec   string `json:"acodec"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
}

// HasVideo reports whether the format carries a video stream.
func (f Format) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the format carries an audio stream.
func (f Format) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// Track is one caption file for a language.
type Track struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Args builds the argument list for a metadata dump. format may be empty.
func Args(url, format string) []string {
	args := []string{
		"--dump-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
	}
	if format != "" {
		args = append(args, "-f", format)
	}
	return append(args, url)
}

// DumpJSON runs `yt-dlp --dump-json` for url. When format is set the
// top-level URL field holds the selected rendition.
func (c *Client) DumpJSON(ctx context.Context, url, format string) (*Info, error) {
	cmd := exec.CommandContext(ctx, c.path, Args(url, format)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("yt-dlp: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("yt-dlp failed: %s", msg)
	}

	return ParseInfo(stdout.Bytes())
}

// ParseInfo decodes yt-dlp JSON output. Only the first line is used when
// yt-dlp prints several objects.
func ParseInfo(data []byte) (*Info, error) {
	data = bytes.TrimSpace(data)
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("yt-dlp returned no output")
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return &info, nil
}

// IsAvailable checks if the yt-dlp binary can be found.
func (c *Client) IsAvailable() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

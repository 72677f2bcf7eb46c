// Package ffmpeg wraps the ffmpeg binary for single-frame grabs and audio cuts.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Processor runs ffmpeg against local files or remote stream URLs.
type Processor struct {
	ffmpegPath string
}

// NewProcessor creates a processor for the ffmpeg binary at path
// ("ffmpeg" if empty). The binary is resolved lazily so a missing ffmpeg
// only fails the calls that need it.
func NewProcessor(path string) *Processor {
	if path == "" {
		path = "ffmpeg"
	}
	return &Processor{ffmpegPath: path}
}

// FrameArgs builds the arguments to grab one PNG frame at seconds onto stdout.
// Input seeking (-ss before -i) keeps remote seeks cheap.
func FrameArgs(input string, seconds float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(seconds),
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}
}

// ExtractFrame grabs a single frame at seconds and returns it PNG-encoded.
func (p *Processor) ExtractFrame(ctx context.Context, input string, seconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.ffmpegPath, FrameArgs(input, seconds)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extract frame: %w", ctx.Err())
		}
		return nil, fmt.Errorf("extract frame at %s: %s", formatSeconds(seconds), errorText(&stderr, err))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("extract frame at %s: empty output", formatSeconds(seconds))
	}
	return stdout.Bytes(), nil
}

// ExtractAudioConfig configures an audio segment cut.
type ExtractAudioConfig struct {
	OutputPath string  // Path for output audio file
	Start      float64 // Segment start in seconds
	Duration   float64 // Segment length in seconds
	SampleRate int     // Sample rate in Hz (default: 16000 for speech)
	Channels   int     // Number of channels, 1=mono (default: 1)
}

// AudioSegmentArgs builds the arguments for a WAV cut of [start, start+duration].
func AudioSegmentArgs(input string, cfg ExtractAudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(cfg.Start),
		"-i", input,
		"-t", formatSeconds(cfg.Duration),
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", strconv.Itoa(cfg.Channels),
		"-y",
		cfg.OutputPath,
	}
}

// ExtractAudioSegment writes a 16-bit PCM WAV of the requested segment.
func (p *Processor) ExtractAudioSegment(ctx context.Context, input string, cfg ExtractAudioConfig) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("extract audio: duration must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath, AudioSegmentArgs(input, cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extract audio: %w", ctx.Err())
		}
		return fmt.Errorf("extract audio: %s", errorText(&stderr, err))
	}

	stat, err := os.Stat(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("stat audio: %w", err)
	}
	if stat.Size() == 0 {
		return fmt.Errorf("extract audio: empty output")
	}
	return nil
}

// IsAvailable checks if the ffmpeg binary can be found.
func (p *Processor) IsAvailable() bool {
	_, err := exec.LookPath(p.ffmpegPath)
	return err == nil
}

// CleanupTempFiles removes temporary files created during processing.
func CleanupTempFiles(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func errorText(stderr *bytes.Buffer, err error) string {
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return msg
	}
	return err.Error()
}

// Package chat answers viewer questions about a moment in a video.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/llm"
	"github.com/iconidentify/chalkboard/internal/retry"
)

// Replies used when no moment can be determined.
const (
	PlayFirstMessage        = "Please play the video first, then ask 'what's happening now' or 'what happened now' while the video is playing."
	SpecifyTimestampMessage = "Please specify a timestamp (e.g., 'what happened at 23 seconds' or 'explain 1:27') or play the video and ask 'what's happening now'."
)

const (
	// DefaultTimeout bounds a whole reply including retries.
	DefaultTimeout = 30 * time.Second

	captionWindow = 5.0
	temperature   = 0.7
	maxTokens     = 200
	rateLimitPad  = time.Second
)

// PlayContext is what the client already knows about the current moment.
type PlayContext struct {
	Commentary string `json:"commentary,omitempty"`
	NFLAnalogy string `json:"nflAnalogy,omitempty"`
	Caption    string `json:"caption,omitempty"`
}

func (p *PlayContext) empty() bool {
	return p == nil || (p.Commentary == "" && p.NFLAnalogy == "" && p.Caption == "")
}

// Request is one chat turn.
type Request struct {
	VideoID     string
	CurrentTime float64
	Message     string
	Context     *PlayContext
	Metadata    *domain.VideoMetadata
}

// CaptionRanger returns the captions overlapping a time range.
type CaptionRanger interface {
	InRange(ctx context.Context, ref string, t0, t1 float64) []domain.CaptionRecord
}

// Service answers chat questions with a text model, grounded on captions.
type Service struct {
	model    llm.TextModel
	captions CaptionRanger
	policy   retry.Config
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p retry.Config) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// DefaultRetryPolicy is three attempts, doubling from two seconds.
func DefaultRetryPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:   3,
		InitialDelay:  2 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2,
	}
}

// NewService creates a chat service. model and captions may be nil.
func NewService(model llm.TextModel, captions CaptionRanger, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		model:    model,
		captions: captions,
		policy:   DefaultRetryPolicy(),
		timeout:  DefaultTimeout,
		logger:   logger.With("component", "chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a chat model is configured.
func (s *Service) Available() bool {
	return s.model != nil
}

// Reply answers one question. It always returns text: when the model is
// missing or keeps failing the answer comes from keyword stubs.
func (s *Service) Reply(ctx context.Context, req Request) string {
	logger := s.logger.With("turn_id", uuid.NewString(), "video_id", req.VideoID)

	asked, named := ParseTimestamp(req.Message)
	now := asksAboutNow(req.Message)

	var target float64
	switch {
	case named:
		target = asked
	case req.CurrentTime > 0:
		target = req.CurrentTime
	case now:
		return PlayFirstMessage
	default:
		return SpecifyTimestampMessage
	}
	logger.Debug("chat target resolved", "target", target, "named", named, "now", now)

	if s.model == nil {
		return StubReply(req.Message, target, req.Context)
	}

	low, high := max(0, target-captionWindow), target+captionWindow
	var captions []domain.CaptionRecord
	if s.captions != nil && req.VideoID != "" {
		captions = s.captions.InRange(ctx, req.VideoID, low, high)
	}

	prompt := buildPrompt(promptInput{
		req:       req,
		target:    target,
		specific:  named || now,
		captions:  captions,
		windowLow: low,
		windowHi:  high,
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := retry.Do(callCtx, s.policy, func() (string, error) {
		out, err := s.model.Generate(callCtx, llm.TextRequest{
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
		if err == nil && strings.TrimSpace(out) == "" {
			return "", errEmptyReply
		}
		return out, err
	}, retryDelay)
	if err != nil {
		logger.Warn("chat model failed, using stub", "provider", s.model.Name(), "error", err)
		return StubReply(req.Message, target, req.Context)
	}

	logger.Info("chat reply generated", "provider", s.model.Name(), "captions", len(captions))
	return strings.TrimSpace(out)
}

var errEmptyReply = errors.New("empty chat reply")

// retryDelay waits out rate limits (hint plus a second, else backoff),
// retries transport failures, and gives up on any other provider status.
func retryDelay(err error) (time.Duration, bool) {
	if llm.IsRateLimited(err) {
		if d, ok := llm.RetryDelay(err, rateLimitPad); ok {
			return d, true
		}
		return 0, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var se *llm.StatusError
	if errors.As(err, &se) || errors.Is(err, errEmptyReply) {
		return 0, false
	}
	return 0, true
}

// StubReply answers from keywords, prefixed with the moment's clock time.
func StubReply(msg string, at float64, play *PlayContext) string {
	clock := domain.FormatClock(at)
	lower := strings.ToLower(msg)

	switch {
	case containsAny(lower, "what", "happening", "going on"):
		if play != nil && play.Commentary != "" {
			return fmt.Sprintf("At %s, %s This is a placeholder response - configure a chat provider to get real answers!", clock, play.Commentary)
		}
		return fmt.Sprintf("At %s, players are engaged in active play. This is a placeholder response - configure a chat provider to get real answers!", clock)
	case containsAny(lower, "why", "reason", "explain"):
		if play != nil && play.NFLAnalogy != "" {
			return fmt.Sprintf("At %s, %s This is a placeholder response - configure a chat provider for detailed explanations!", clock, play.NFLAnalogy)
		}
		return fmt.Sprintf("At %s, this play demonstrates tactical movement. This is a placeholder response - configure a chat provider to get real explanations!", clock)
	case containsAny(lower, "tactic", "strategy", "formation"):
		return fmt.Sprintf("At %s, the teams are executing their tactical plans. This is a placeholder response - configure a chat provider for tactical analysis!", clock)
	}
	return fmt.Sprintf("At %s, I understand you're asking: '%s'. This is a placeholder response - configure a chat provider to get intelligent answers about the play!", clock, msg)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package llm

import (
	"context"
	"time"

	"github.com/iconidentify/chalkboard/internal/retry"
)

// delayFor retries transient failures, honouring provider hints capped at
// the policy's maximum delay.
func delayFor(policy retry.Config) retry.DelayFunc {
	return func(err error) (time.Duration, bool) {
		if !IsRetryable(err) {
			return 0, false
		}
		if d, ok := RetryDelay(err, 0); ok {
			if policy.MaxDelay > 0 && d > policy.MaxDelay {
				d = policy.MaxDelay
			}
			return d, true
		}
		return 0, true
	}
}

type retryingText struct {
	TextModel
	policy retry.Config
}

// WithRetry wraps a text model so transient failures (408, 429, 5xx,
// transport errors) are retried with backoff. The last error is returned
// once attempts run out. A nil model stays nil.
func WithRetry(m TextModel, policy retry.Config) TextModel {
	if m == nil {
		return nil
	}
	return &retryingText{TextModel: m, policy: policy}
}

func (r *retryingText) Generate(ctx context.Context, req TextRequest) (string, error) {
	return retry.Do(ctx, r.policy, func() (string, error) {
		return r.TextModel.Generate(ctx, req)
	}, delayFor(r.policy))
}

type retryingVision struct {
	VisionModel
	policy retry.Config
}

// WithVisionRetry is WithRetry for vision models.
func WithVisionRetry(m VisionModel, policy retry.Config) VisionModel {
	if m == nil {
		return nil
	}
	return &retryingVision{VisionModel: m, policy: policy}
}

func (r *retryingVision) Describe(ctx context.Context, req VisionRequest) (string, error) {
	return retry.Do(ctx, r.policy, func() (string, error) {
		return r.VisionModel.Describe(ctx, req)
	}, delayFor(r.policy))
}

type retryingAudio struct {
	AudioModel
	policy retry.Config
}

// WithAudioRetry is WithRetry for transcription models.
func WithAudioRetry(m AudioModel, policy retry.Config) AudioModel {
	if m == nil {
		return nil
	}
	return &retryingAudio{AudioModel: m, policy: policy}
}

func (r *retryingAudio) Transcribe(ctx context.Context, req AudioRequest) (string, error) {
	return retry.Do(ctx, r.policy, func() (string, error) {
		return r.AudioModel.Transcribe(ctx, req)
	}, delayFor(r.policy))
}

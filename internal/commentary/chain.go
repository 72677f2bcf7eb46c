// Package commentary runs the analysis fallback chain and the live
// commentary flow.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iconidentify/chalkboard/internal/metrics"
)

// ErrExhausted is returned when every stage failed.
var ErrExhausted = errors.New("all stages failed")

// Request identifies the moment to describe.
type Request struct {
	VideoID   string
	Timestamp float64
}

// Stage is one source of commentary. Run should honour ctx; a stage that
// outlives its Timeout is abandoned.
type Stage struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, req Request) (string, error)
}

// Attempt records how one stage went.
type Attempt struct {
	Stage   string
	Outcome string // metrics.Stage* constant
	Err     error
	Elapsed time.Duration
}

// Outcome is the result of a chain run.
type Outcome struct {
	Text     string
	Stage    string
	Attempts []Attempt
}

// Chain tries stages in order and returns the first non-empty text.
type Chain struct {
	pipeline string
	stages   []Stage
	logger   *slog.Logger
}

// NewChain creates a chain. pipeline labels metrics and logs.
func NewChain(pipeline string, stages []Stage, logger *slog.Logger) *Chain {
	return &Chain{
		pipeline: pipeline,
		stages:   stages,
		logger:   logger.With("component", "chain", "pipeline", pipeline),
	}
}

// Stages returns the stage names in order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes the stages in order. A stage advances the chain on error,
// timeout or empty output.
func (c *Chain) Run(ctx context.Context, req Request) (Outcome, error) {
	var out Outcome

	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		start := time.Now()
		text, err := c.runStage(ctx, stage, req)
		attempt := Attempt{Stage: stage.Name, Err: err, Elapsed: time.Since(start)}

		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			attempt.Outcome = metrics.StageTimeout
		case err != nil:
			attempt.Outcome = metrics.StageError
		case strings.TrimSpace(text) == "":
			attempt.Outcome = metrics.StageEmpty
		default:
			attempt.Outcome = metrics.StageSuccess
		}
		out.Attempts = append(out.Attempts, attempt)
		metrics.ObserveStage(c.pipeline, stage.Name, attempt.Outcome, attempt.Elapsed)

		if attempt.Outcome == metrics.StageSuccess {
			out.Text = strings.TrimSpace(text)
			out.Stage = stage.Name
			c.logger.Debug("stage succeeded",
				"video_id", req.VideoID,
				"timestamp", req.Timestamp,
				"stage", stage.Name,
				"elapsed", attempt.Elapsed,
			)
			return out, nil
		}

		c.logger.Info("stage failed, falling back",
			"video_id", req.VideoID,
			"timestamp", req.Timestamp,
			"stage", stage.Name,
			"outcome", attempt.Outcome,
			"error", err,
		)
	}

	return out, ErrExhausted
}

type stageResult struct {
	text string
	err  error
}

// runStage runs one stage under its timeout. The stage goroutine is not
// awaited once the timeout fires; its result lands in a buffered channel.
func (c *Chain) runStage(ctx context.Context, stage Stage, req Request) (string, error) {
	stageCtx, cancel := ctx, context.CancelFunc(func() {})
	if stage.Timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
	}
	defer cancel()

	done := make(chan stageResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stageResult{err: fmt.Errorf("stage %s panicked: %v", stage.Name, r)}
			}
		}()
		text, err := stage.Run(stageCtx, req)
		done <- stageResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-stageCtx.Done():
		return "", stageCtx.Err()
	}
}

// Package worker runs background maintenance for the service.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iconidentify/chalkboard/internal/metrics"
)

// ErrShutdownTimeout is returned when the janitor doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("janitor shutdown timed out")

// DefaultSweepInterval is used when Config.Interval is not positive.
const DefaultSweepInterval = time.Minute

// Sweeper drops its expired entries and reports how many it removed.
type Sweeper interface {
	ClearExpired() int
}

// Config holds janitor configuration.
type Config struct {
	Interval time.Duration
}

// Janitor periodically sweeps expired entries out of in-process caches.
type Janitor struct {
	interval time.Duration
	sweepers map[string]Sweeper
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJanitor creates a janitor for the named sweepers.
func NewJanitor(cfg Config, sweepers map[string]Sweeper, logger *slog.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Janitor{
		interval: cfg.Interval,
		sweepers: sweepers,
		logger:   logger.With("component", "janitor"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the sweep loop.
func (j *Janitor) Start() {
	j.logger.Info("starting cache janitor", "interval", j.interval, "sweepers", len(j.sweepers))

	j.wg.Add(1)
	go j.run()
}

// Stop gracefully stops the sweep loop.
func (j *Janitor) Stop(timeout time.Duration) error {
	j.logger.Info("stopping cache janitor")
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("cache janitor stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce sweeps every registered cache and returns the total removed.
func (j *Janitor) SweepOnce() int {
	total := 0
	for name, s := range j.sweepers {
		n := s.ClearExpired()
		total += n
		if n > 0 {
			j.logger.Debug("swept expired entries", "cache", name, "removed", n)
		}
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSweep, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return total
}

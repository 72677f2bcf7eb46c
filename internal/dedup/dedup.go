// Package dedup suppresses live commentary that repeats recent lines.
package dedup

import (
	"strings"
	"sync"
)

// Defaults for a Deduplicator.
const (
	DefaultThreshold  = 0.85
	DefaultMaxHistory = 10
)

type record struct {
	text      string
	timestamp float64
}

// Deduplicator keeps a bounded FIFO of recent commentary and reports whether
// new text is too similar to any of it. It is safe for concurrent use.
type Deduplicator struct {
	mu         sync.Mutex
	history    []record
	threshold  float64
	maxHistory int
}

// New creates a Deduplicator. Non-positive arguments use the defaults.
func New(threshold float64, maxHistory int) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Deduplicator{
		threshold:  threshold,
		maxHistory: maxHistory,
	}
}

// ShouldSkip reports whether text should be suppressed. Blank text is always
// skipped; with an empty history nothing else is.
func (d *Deduplicator) ShouldSkip(text string) bool {
	norm := normalize(text)
	if norm == "" {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range d.history {
		if Ratio(norm, normalize(r.text)) >= d.threshold {
			return true
		}
	}
	return false
}

// Record appends text to the history, evicting the oldest entries beyond
// the bound. Blank text is ignored.
func (d *Deduplicator) Record(text string, timestamp float64) {
	if normalize(text) == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = append(d.history, record{text: text, timestamp: timestamp})
	if over := len(d.history) - d.maxHistory; over > 0 {
		d.history = append(d.history[:0], d.history[over:]...)
	}
}

// Clear empties the history.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = nil
}

// Len returns the number of remembered lines.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.history)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

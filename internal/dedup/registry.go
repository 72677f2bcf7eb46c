package dedup

import "sync"

// Registry holds one Deduplicator per video so that histories of different
// videos never suppress each other.
type Registry struct {
	mu         sync.Mutex
	byVideo    map[string]*Deduplicator
	threshold  float64
	maxHistory int
}

// NewRegistry creates a Registry whose deduplicators use the given settings.
func NewRegistry(threshold float64, maxHistory int) *Registry {
	return &Registry{
		byVideo:    make(map[string]*Deduplicator),
		threshold:  threshold,
		maxHistory: maxHistory,
	}
}

// For returns the Deduplicator for videoID, creating it on first use.
func (r *Registry) For(videoID string) *Deduplicator {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byVideo[videoID]
	if !ok {
		d = New(r.threshold, r.maxHistory)
		r.byVideo[videoID] = d
	}
	return d
}

// Clear forgets the history of one video.
func (r *Registry) Clear(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byVideo, videoID)
}

// ClearAll forgets every history.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byVideo = make(map[string]*Deduplicator)
}

// Videos returns how many videos currently have a history.
func (r *Registry) Videos() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byVideo)
}

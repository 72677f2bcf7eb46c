package commentary

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iconidentify/chalkboard/internal/analogy"
	"github.com/iconidentify/chalkboard/internal/cache"
	"github.com/iconidentify/chalkboard/internal/domain"
	"github.com/iconidentify/chalkboard/internal/llm"
)

// stubOnlyService mirrors a deployment with no credentials: captions are
// tried and come back empty, then the stub answers.
func stubOnlyService(c cache.Cache[domain.Analysis]) *AnalysisService {
	stages := AnalysisStages(Sources{Captions: &fakeCaptions{}}, Timeouts{}, 0)
	chain := NewChain(PipelineAnalyze, stages, testLogger())
	return NewAnalysisService(chain, analogy.NewGenerator(nil, testLogger()), c, 0, testLogger())
}

func TestAnalyze_NoCredentialsThenCached(t *testing.T) {
	store := cache.NewMemory[domain.Analysis](cache.DefaultTTL)
	svc := stubOnlyService(store)
	ctx := context.Background()

	first, cached, err := svc.Analyze(ctx, "abc123", 42.0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if cached {
		t.Error("first request should not be cached")
	}
	if !slices.Contains(StubPool, first.OriginalCommentary) {
		t.Errorf("commentary %q not from the stub pool", first.OriginalCommentary)
	}
	if first.NFLAnalogy != analogy.StubAnalogy(first.OriginalCommentary) {
		t.Errorf("analogy %q is not the keyword stub", first.NFLAnalogy)
	}
	if first.Timestamp != 42.0 || first.Source != StageStub {
		t.Errorf("Analysis = %+v", first)
	}

	second, cached, err := svc.Analyze(ctx, "abc123", 42.0)
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}
	if !cached || second.OriginalCommentary != first.OriginalCommentary {
		t.Errorf("second = %+v, cached = %v, want cached copy of first", second, cached)
	}

	if _, ok, _ := store.Get(ctx, "abc123:42"); !ok {
		t.Error("analysis should be stored under the primary key")
	}
}

func TestAnalyze_NeighbourHitKeepsRequestTimestamp(t *testing.T) {
	svc := stubOnlyService(cache.NewMemory[domain.Analysis](cache.DefaultTTL))
	ctx := context.Background()

	first, _, err := svc.Analyze(ctx, "abc123", 42.0)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	got, cached, err := svc.Analyze(ctx, "abc123", 43.6)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !cached || got.Timestamp != 43.6 || got.OriginalCommentary != first.OriginalCommentary {
		t.Errorf("Analyze(43.6) = %+v, cached = %v", got, cached)
	}

	if _, cached, _ := svc.Analyze(ctx, "abc123", 45.0); cached {
		t.Error("three seconds away should miss")
	}
}

func TestAnalyze_TTL(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := cache.NewMemory[domain.Analysis](cache.DefaultTTL, cache.WithClock[domain.Analysis](clock))
	svc := stubOnlyService(store)
	ctx := context.Background()

	if _, _, err := svc.Analyze(ctx, "abc123", 42); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	mu.Lock()
	now = now.Add(599 * time.Second)
	mu.Unlock()
	if _, cached, _ := svc.Analyze(ctx, "abc123", 42); !cached {
		t.Error("entry should live for 600s")
	}

	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()
	if _, cached, _ := svc.Analyze(ctx, "abc123", 42); cached {
		t.Error("entry should expire after 600s")
	}
}

func TestAnalyze_InvalidRequest(t *testing.T) {
	svc := stubOnlyService(cache.NewMemory[domain.Analysis](cache.DefaultTTL))

	for _, tc := range []struct {
		id string
		ts float64
	}{{"", 1}, {"abc", -1}} {
		if _, _, err := svc.Analyze(context.Background(), tc.id, tc.ts); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Analyze(%q, %v) err = %v, want ErrInvalidRequest", tc.id, tc.ts, err)
		}
	}
}

type countingCaptions struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingCaptions) AtTimestamp(ctx context.Context, _ string, _ float64) (string, bool) {
	c.calls.Add(1)
	select {
	case <-c.release:
	case <-ctx.Done():
		return "", false
	}
	return "Long ball over the top.", true
}

func TestAnalyze_ConcurrentMissesShareOneRun(t *testing.T) {
	captions := &countingCaptions{release: make(chan struct{})}
	stages := AnalysisStages(Sources{Captions: captions}, Timeouts{Captions: 5 * time.Second}, 0)
	svc := NewAnalysisService(NewChain(PipelineAnalyze, stages, testLogger()),
		analogy.NewGenerator(nil, testLogger()),
		cache.NewMemory[domain.Analysis](cache.DefaultTTL), 0, testLogger())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]domain.Analysis, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = svc.Analyze(context.Background(), "abc", 7.2)
		}(i)
	}

	// let every caller reach the singleflight group before releasing
	time.Sleep(50 * time.Millisecond)
	close(captions.release)
	wg.Wait()

	if n := captions.calls.Load(); n != 1 {
		t.Errorf("caption lookups = %d, want 1", n)
	}
	for i := range results {
		if errs[i] != nil || results[i].OriginalCommentary != "Long ball over the top." {
			t.Errorf("caller %d got %+v, %v", i, results[i], errs[i])
		}
	}
}

type failingCache struct {
	cache.Cache[domain.Analysis]
}

func (failingCache) Get(context.Context, string) (domain.Analysis, bool, error) {
	return domain.Analysis{}, false, errors.New("redis down")
}

func (failingCache) Set(context.Context, string, domain.Analysis, time.Duration) error {
	return errors.New("redis down")
}

func TestAnalyze_CacheFailureDegrades(t *testing.T) {
	svc := stubOnlyService(failingCache{})

	a, cached, err := svc.Analyze(context.Background(), "abc", 3)
	if err != nil || cached || a.OriginalCommentary == "" {
		t.Errorf("Analyze() = %+v, %v, %v", a, cached, err)
	}
}

// stalledText never answers until its context ends.
type stalledText struct{}

func (stalledText) Name() string { return "stalled" }

func (stalledText) Generate(ctx context.Context, _ llm.TextRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAnalyze_StalledAnalogyFallsBackToStub(t *testing.T) {
	captions := &countingCaptions{release: make(chan struct{})}
	close(captions.release)
	stages := AnalysisStages(Sources{Captions: captions}, Timeouts{Captions: time.Second}, 0)
	store := cache.NewMemory[domain.Analysis](cache.DefaultTTL)
	svc := NewAnalysisService(NewChain(PipelineAnalyze, stages, testLogger()),
		analogy.NewGenerator(stalledText{}, testLogger(), analogy.WithTimeout(100*time.Millisecond)),
		store, 0, testLogger())

	// The first caller gives up early; the shared run keeps going.
	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := svc.Analyze(short, "abc", 12); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("impatient caller err = %v, want deadline exceeded", err)
	}

	ctx, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	a, _, err := svc.Analyze(ctx, "abc", 12)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.OriginalCommentary != "Long ball over the top." {
		t.Errorf("commentary = %q", a.OriginalCommentary)
	}
	if a.NFLAnalogy != analogy.StubAnalogy(a.OriginalCommentary) {
		t.Errorf("analogy = %q, want keyword stub", a.NFLAnalogy)
	}
	if _, ok, _ := store.Get(context.Background(), "abc:12"); !ok {
		t.Error("analysis should be cached once the stalled model times out")
	}
}

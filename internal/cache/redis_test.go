package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iconidentify/chalkboard/internal/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return mr, client, cleanup
}

func TestRedis_Get_CacheHit(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[domain.Analysis](client, "analysis", time.Minute)
	ctx := context.Background()

	want := domain.Analysis{
		OriginalCommentary: "A quick counter down the left.",
		NFLAnalogy:         "Like a pick-six.",
		Timestamp:          42,
	}

	if err := c.Set(ctx, "vid:42", want, 5*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "vid:42")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestRedis_Get_CacheMiss(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[domain.Analysis](client, "analysis", time.Minute)

	_, ok, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get should not error on miss: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestRedis_KeyPrefixAndTTL(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[string](client, "analysis", time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "vid:1", "x", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if !mr.Exists("chalkboard:analysis:vid:1") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("chalkboard:analysis:vid:1"); ttl != time.Minute {
		t.Errorf("TTL = %v, want default %v", ttl, time.Minute)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, _ := c.Get(ctx, "vid:1"); ok {
		t.Error("entry should expire in redis")
	}
}

func TestRedis_Delete(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[int](client, "", time.Minute)
	ctx := context.Background()

	_ = c.Set(ctx, "k", 7, 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("deleted key should miss")
	}
}

func TestRedis_InvalidJSON(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[domain.Analysis](client, "analysis", time.Minute)
	if err := mr.Set("chalkboard:analysis:bad", "{not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, _, err := c.Get(context.Background(), "bad"); err == nil {
		t.Error("expected a deserialization error")
	}
}

func TestRedis_PingAndClosedServer(t *testing.T) {
	mr, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[int](client, "", time.Minute)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if c.ClearExpired() != 0 {
		t.Error("ClearExpired should be a no-op for redis")
	}

	mr.Close()

	if err := c.Ping(ctx); err == nil {
		t.Error("Ping should fail once the server is gone")
	}
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Error("Get should surface connection errors")
	}
}

func TestLookup_Redis(t *testing.T) {
	_, client, cleanup := setupTestRedis(t)
	defer cleanup()

	c := NewRedis[string](client, "analysis", time.Minute)
	ctx := context.Background()
	_ = c.Set(ctx, "vid:12", "plus two", 0)

	got, key, ok := Lookup[string](ctx, c, "vid", 10)
	if !ok || key != "vid:12" || got != "plus two" {
		t.Errorf("Lookup = (%q, %q, %v), want plus-two hit", got, key, ok)
	}
}

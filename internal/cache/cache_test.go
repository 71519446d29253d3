package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCacheContract(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, v, ok := c.Get(ctx, "races", "all:ro")
	if ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set(ctx, "races", "all:ro", v, []byte(`[1]`))

	_, fv, _ := c.Get(ctx, "faqs", "ro")
	c.Set(ctx, "faqs", "ro", fv, []byte(`[2]`))

	if got, _, ok := c.Get(ctx, "races", "all:ro"); !ok || string(got) != `[1]` {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	if err := c.Invalidate(ctx, "races"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, _, ok := c.Get(ctx, "races", "all:ro"); ok {
		t.Error("races entry survived invalidation")
	}
	if got, _, ok := c.Get(ctx, "faqs", "ro"); !ok || string(got) != `[2]` {
		t.Errorf("faqs entry lost by races invalidation: %q, %v", got, ok)
	}
}

// testStaleLoadDropped covers a reader that misses, loads, and stores
// after an admin write has invalidated the namespace in between.
func testStaleLoadDropped(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, before, ok := c.Get(ctx, "sponsors", "ro")
	if ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Invalidate(ctx, "sponsors"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	c.Set(ctx, "sponsors", "ro", before, []byte(`["old"]`))

	_, after, ok := c.Get(ctx, "sponsors", "ro")
	if ok {
		t.Fatal("value loaded before the invalidation was served")
	}
	c.Set(ctx, "sponsors", "ro", after, []byte(`["new"]`))
	if got, _, ok := c.Get(ctx, "sponsors", "ro"); !ok || string(got) != `["new"]` {
		t.Errorf("Get = %q, %v, want the reloaded value", got, ok)
	}
}

func TestMemory(t *testing.T) {
	testCacheContract(t, NewMemory())
	testStaleLoadDropped(t, NewMemory())
}

func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	rdb, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rdb.Close()

	c := NewRedis(rdb, time.Minute, discardLogger())
	c.prefix = "trailrace-test-" + time.Now().Format("150405.000000")
	testCacheContract(t, c)
	testStaleLoadDropped(t, c)
}

func TestRedisDownIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer rdb.Close()

	c := NewRedis(rdb, time.Minute, discardLogger())
	ctx := context.Background()

	_, v, ok := c.Get(ctx, "races", "k")
	if ok || v != noVersion {
		t.Errorf("Get = %v, %v, want a miss with no version", v, ok)
	}
	c.Set(ctx, "races", "k", v, []byte("v"))
	if _, _, ok := c.Get(ctx, "races", "k"); ok {
		t.Error("expected miss with redis unreachable")
	}
	if err := c.Invalidate(ctx, "races"); err == nil {
		t.Error("expected Invalidate to report the outage")
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	c.Set(context.Background(), "races", "k", 0, []byte("v"))
	if _, _, ok := c.Get(context.Background(), "races", "k"); ok {
		t.Error("Nop returned a hit")
	}
}

// Package cache stores rendered JSON responses for the public content
// endpoints. A cache failure is never a request failure: errors are
// logged and treated as misses.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	// Get returns the entry for key and the namespace version it looked
	// in. A miss still reports the version to hand back to Set.
	Get(ctx context.Context, namespace, key string) ([]byte, Version, bool)
	// Set stores val under version v. If the namespace was invalidated
	// since the Get that returned v, the value is never served.
	Set(ctx context.Context, namespace, key string, v Version, val []byte)
	// Invalidate drops every entry in namespace.
	Invalidate(ctx context.Context, namespace string) error
}

// Version is the generation of a namespace as observed by Get.
type Version int64

// noVersion makes Set a no-op. Get returns it when the generation is unknown.
const noVersion Version = -1

// Redis versions each namespace with a generation counter. Invalidate
// bumps the counter so old keys are never read again and expire on
// their own TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	return &Redis{client: client, prefix: "trailrace", ttl: ttl, logger: logger}
}

// Open parses a redis:// URL and pings the server.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) genKey(namespace string) string {
	return r.prefix + ":gen:" + namespace
}

func (r *Redis) generation(ctx context.Context, namespace string) (Version, error) {
	gen, err := r.client.Get(ctx, r.genKey(namespace)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return Version(gen), err
}

func (r *Redis) dataKey(namespace string, v Version, key string) string {
	return fmt.Sprintf("%s:%s:%d:%s", r.prefix, namespace, v, key)
}

func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, Version, bool) {
	v, err := r.generation(ctx, namespace)
	if err != nil {
		r.logger.Warn("cache generation lookup failed", "namespace", namespace, "error", err)
		return nil, noVersion, false
	}
	val, err := r.client.Get(ctx, r.dataKey(namespace, v, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, v, false
	}
	if err != nil {
		r.logger.Warn("cache get failed", "namespace", namespace, "key", key, "error", err)
		return nil, noVersion, false
	}
	return val, v, true
}

// Set writes under the generation Get saw. After an Invalidate that key
// belongs to a dead generation and only waits out its TTL.
func (r *Redis) Set(ctx context.Context, namespace, key string, v Version, val []byte) {
	if v < 0 {
		return
	}
	if err := r.client.Set(ctx, r.dataKey(namespace, v, key), val, r.ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", "namespace", namespace, "key", key, "error", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, namespace string) error {
	if err := r.client.Incr(ctx, r.genKey(namespace)).Err(); err != nil {
		return fmt.Errorf("invalidating %s: %w", namespace, err)
	}
	return nil
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string, string) ([]byte, Version, bool) { return nil, noVersion, false }
func (Nop) Set(context.Context, string, string, Version, []byte)        {}
func (Nop) Invalidate(context.Context, string) error                    { return nil }

// Memory is a process-local cache without expiry, used in tests.
type Memory struct {
	mu         sync.Mutex
	namespaces map[string]*memNamespace
}

type memNamespace struct {
	version Version
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]*memNamespace)}
}

func (m *Memory) namespace(name string) *memNamespace {
	ns, ok := m.namespaces[name]
	if !ok {
		ns = &memNamespace{entries: make(map[string][]byte)}
		m.namespaces[name] = ns
	}
	return ns
}

func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, Version, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespace(namespace)
	v, ok := ns.entries[key]
	return v, ns.version, ok
}

func (m *Memory) Set(_ context.Context, namespace, key string, v Version, val []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespace(namespace)
	if v != ns.version {
		return
	}
	ns.entries[key] = append([]byte(nil), val...)
}

func (m *Memory) Invalidate(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespace(namespace)
	ns.version++
	clear(ns.entries)
	return nil
}

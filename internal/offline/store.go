package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Store.Get when the cache holds no entry for a key.
var ErrMiss = errors.New("offline: entrada no encontrada")

// Entry is one cached response.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Store keeps cached responses grouped in named caches. Keys are full
// request URLs.
type Store interface {
	Get(ctx context.Context, cache, key string) (*Entry, error)
	Put(ctx context.Context, cache, key string, e *Entry) error
	Caches(ctx context.Context) ([]string, error)
	DeleteCache(ctx context.Context, cache string) error
}

// ── Memory ────────────────────────────────────────────────────────────────────

type MemoryStore struct {
	mu     sync.RWMutex
	caches map[string]map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{caches: make(map[string]map[string]*Entry)}
}

func (s *MemoryStore) Get(_ context.Context, cache, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.caches[cache][key]
	if !ok {
		return nil, ErrMiss
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) Put(_ context.Context, cache, key string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[cache]
	if !ok {
		c = make(map[string]*Entry)
		s.caches[cache] = c
	}
	cp := *e
	c[key] = &cp
	return nil
}

func (s *MemoryStore) Caches(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	return names, nil
}

func (s *MemoryStore) DeleteCache(_ context.Context, cache string) error {
	s.mu.Lock()
	delete(s.caches, cache)
	s.mu.Unlock()
	return nil
}

// ── Redis ─────────────────────────────────────────────────────────────────────
// One hash per cache at "<ns>:<cache>", one field per URL, JSON-encoded.

type RedisStore struct {
	rdb *redis.Client
	ns  string
}

func NewRedisStore(rdb *redis.Client, ns string) *RedisStore {
	if ns == "" {
		ns = "offline"
	}
	return &RedisStore{rdb: rdb, ns: ns}
}

func (s *RedisStore) hash(cache string) string { return s.ns + ":" + cache }

func (s *RedisStore) Get(ctx context.Context, cache, key string) (*Entry, error) {
	raw, err := s.rdb.HGet(ctx, s.hash(cache), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("offline: redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("offline: decode entry: %w", err)
	}
	return &e, nil
}

func (s *RedisStore) Put(ctx context.Context, cache, key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("offline: encode entry: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.hash(cache), key, raw).Err(); err != nil {
		return fmt.Errorf("offline: redis put: %w", err)
	}
	return nil
}

func (s *RedisStore) Caches(ctx context.Context) ([]string, error) {
	var names []string
	prefix := s.ns + ":"
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("offline: redis scan: %w", err)
	}
	return names, nil
}

func (s *RedisStore) DeleteCache(ctx context.Context, cache string) error {
	if err := s.rdb.Del(ctx, s.hash(cache)).Err(); err != nil {
		return fmt.Errorf("offline: redis delete: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tasting_bot/pkg"
)

// ErrContextExpired is returned for unknown, evicted or expired search tokens
var ErrContextExpired = errors.New("search context expired")

const (
	DefaultContextTTL     = 30 * time.Minute
	DefaultContextEntries = 1024
)

// ContextStore remembers search queries behind short tokens used in "more" buttons
type ContextStore interface {
	Put(ctx context.Context, q pkg.Query) (string, error)
	Get(ctx context.Context, token string) (pkg.Query, error)
}

// newToken returns a compact random token; callback payloads are size-limited.
func newToken() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:6])
}

type contextEntry struct {
	query   pkg.Query
	expires time.Time
}

// MemoryContextStore is a bounded, expiring token cache
type MemoryContextStore struct {
	mu      sync.Mutex
	entries map[string]contextEntry
	order   []string
	max     int
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryContextStore creates a cache holding at most maxEntries queries for ttl each
func NewMemoryContextStore(maxEntries int, ttl time.Duration) *MemoryContextStore {
	if maxEntries <= 0 {
		maxEntries = DefaultContextEntries
	}
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &MemoryContextStore{
		entries: make(map[string]contextEntry),
		max:     maxEntries,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores q and evicts the oldest entries beyond the bound
func (m *MemoryContextStore) Put(ctx context.Context, q pkg.Query) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for len(m.order) > 0 {
		e, ok := m.entries[m.order[0]]
		if ok && !now.After(e.expires) {
			break
		}
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}

	token := newToken()
	for _, taken := m.entries[token]; taken; _, taken = m.entries[token] {
		token = newToken()
	}
	m.entries[token] = contextEntry{query: q, expires: now.Add(m.ttl)}
	m.order = append(m.order, token)

	for len(m.entries) > m.max && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
	return token, nil
}

// Get returns ErrContextExpired when the token is gone
func (m *MemoryContextStore) Get(ctx context.Context, token string) (pkg.Query, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[token]
	if !ok {
		return pkg.Query{}, ErrContextExpired
	}
	if m.now().After(e.expires) {
		delete(m.entries, token)
		return pkg.Query{}, ErrContextExpired
	}
	return e.query, nil
}

// RedisContextStore keeps tokens as keys with a TTL
type RedisContextStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisContextStore(client redis.Cmdable, ttl time.Duration) *RedisContextStore {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &RedisContextStore{client: client, ttl: ttl}
}

func (r *RedisContextStore) Put(ctx context.Context, q pkg.Query) (string, error) {
	raw, err := sonic.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("failed to marshal query: %w", err)
	}
	token := newToken()
	if err := r.client.Set(ctx, "search:"+token, raw, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store search context: %w", err)
	}
	return token, nil
}

func (r *RedisContextStore) Get(ctx context.Context, token string) (pkg.Query, error) {
	raw, err := r.client.Get(ctx, "search:"+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pkg.Query{}, ErrContextExpired
		}
		return pkg.Query{}, fmt.Errorf("failed to load search context: %w", err)
	}
	var q pkg.Query
	if err := sonic.Unmarshal(raw, &q); err != nil {
		return pkg.Query{}, fmt.Errorf("failed to unmarshal search context: %w", err)
	}
	return q, nil
}

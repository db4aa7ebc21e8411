package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"tasting_bot/internal/core"
)

// NewRedisClient parses a redis URL and checks the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

type redisSession struct {
	Step      core.Step  `json:"step"`
	Draft     core.Draft `json:"draft"`
	UpdatedAt int64      `json:"updated_at"`
}

// RedisSessionStore keeps one JSON document per session with a TTL refreshed on every write
type RedisSessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore creates a redis-backed session store
func NewRedisSessionStore(client redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl, prefix: "session:"}
}

func (r *RedisSessionStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisSessionStore) load(ctx context.Context, sessionID string) (*redisSession, error) {
	raw, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session data: %w", err)
	}

	var s redisSession
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if s.Draft == nil {
		s.Draft = core.Draft{}
	}
	return &s, nil
}

func (r *RedisSessionStore) save(ctx context.Context, sessionID string, s *redisSession) error {
	s.UpdatedAt = time.Now().Unix()
	raw, err := sonic.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session data: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) loadOrNew(ctx context.Context, sessionID string) (*redisSession, error) {
	s, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &redisSession{Draft: core.Draft{}}
	}
	return s, nil
}

// GetStep returns StepNone for missing or expired sessions
func (r *RedisSessionStore) GetStep(ctx context.Context, sessionID string) (core.Step, error) {
	s, err := r.load(ctx, sessionID)
	if err != nil || s == nil {
		return core.StepNone, err
	}
	return s.Step, nil
}

func (r *RedisSessionStore) GetDraft(ctx context.Context, sessionID string) (core.Draft, error) {
	s, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return core.Draft{}, nil
	}
	return s.Draft, nil
}

// UpdateDraft is a read-modify-write; callers serialize events per session.
func (r *RedisSessionStore) UpdateDraft(ctx context.Context, sessionID string, partial core.Draft) error {
	s, err := r.loadOrNew(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Draft.Merge(partial)
	return r.save(ctx, sessionID, s)
}

func (r *RedisSessionStore) SetStep(ctx context.Context, sessionID string, step core.Step) error {
	s, err := r.loadOrNew(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Step = step
	return r.save(ctx, sessionID, s)
}

func (r *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

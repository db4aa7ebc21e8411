package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisTranscript stores one JSON history per session with a TTL refreshed on write
type RedisTranscript struct {
	client   redis.Cmdable
	ttl      time.Duration
	maxTurns int
}

func NewRedisTranscript(client redis.Cmdable, maxTurns int, ttl time.Duration) *RedisTranscript {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &RedisTranscript{client: client, ttl: ttl, maxTurns: maxTurns}
}

func key(sessionID string) string {
	return "conversation:" + sessionID
}

func (r *RedisTranscript) loadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error) {
	data, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &ConversationHistory{Messages: []*schema.Message{}}, nil
		}
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var history ConversationHistory
	if err := sonic.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return &history, nil
}

func (r *RedisTranscript) Append(ctx context.Context, sessionID string, message *schema.Message) error {
	history, err := r.loadHistory(ctx, sessionID)
	if err != nil {
		return err
	}
	history.Messages = trimTail(append(history.Messages, message), r.maxTurns)
	history.UpdatedAt = time.Now().Unix()

	data, err := sonic.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return r.client.Set(ctx, key(sessionID), data, r.ttl).Err()
}

func (r *RedisTranscript) Load(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	history, err := r.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return history.Messages, nil
}

func (r *RedisTranscript) Clear(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, key(sessionID)).Err()
}

package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
)

// DefaultMaxTurns bounds each transcript
const DefaultMaxTurns = 100

// Transcript records the dialogue of an active flow, one message per inbound event or outbound prompt
type Transcript interface {
	Append(ctx context.Context, sessionID string, message *schema.Message) error
	Load(ctx context.Context, sessionID string) ([]*schema.Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// ConversationHistory is the stored form of a transcript
type ConversationHistory struct {
	Messages  []*schema.Message `json:"messages"`
	UpdatedAt int64             `json:"updated_at"`
}

// Format renders messages for logs
func Format(messages []*schema.Message) string {
	var b strings.Builder
	b.WriteString("<conversation>\n")
	for _, msg := range messages {
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation>")
	return b.String()
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		return messages
	}
	return messages[len(messages)-maxTurns:]
}

// MemoryTranscript keeps transcripts in process memory
type MemoryTranscript struct {
	mu       sync.Mutex
	history  map[string]*ConversationHistory
	maxTurns int
	ttl      time.Duration
}

func NewMemoryTranscript(maxTurns int, ttl time.Duration) *MemoryTranscript {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MemoryTranscript{
		history:  make(map[string]*ConversationHistory),
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

func (m *MemoryTranscript) Append(ctx context.Context, sessionID string, message *schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.history[sessionID]
	if !ok || m.expired(h) {
		h = &ConversationHistory{}
		m.history[sessionID] = h
	}
	h.Messages = trimTail(append(h.Messages, message), m.maxTurns)
	h.UpdatedAt = time.Now().Unix()
	return nil
}

func (m *MemoryTranscript) Load(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.history[sessionID]
	if !ok {
		return nil, nil
	}
	if m.expired(h) {
		delete(m.history, sessionID)
		return nil, nil
	}
	return append([]*schema.Message(nil), h.Messages...), nil
}

func (m *MemoryTranscript) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, sessionID)
	return nil
}

func (m *MemoryTranscript) expired(h *ConversationHistory) bool {
	return m.ttl > 0 && time.Since(time.Unix(h.UpdatedAt, 0)) > m.ttl
}

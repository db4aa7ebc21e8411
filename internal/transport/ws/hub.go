package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tasting_bot/internal/bot"
	"tasting_bot/internal/logger"
)

// ErrCannotEdit is returned when the target message is unknown to the connection
var ErrCannotEdit = bot.ErrCannotEdit

// Frame is one outbound websocket message
type Frame struct {
	Action    string       `json:"action"` // connected | send | edit
	MessageID int64        `json:"message_id,omitempty"`
	Session   string       `json:"session,omitempty"`
	Text      string       `json:"text,omitempty"`
	Buttons   []bot.Button `json:"buttons,omitempty"`
	Photos    []string     `json:"photos,omitempty"`
}

// client is one connected chat
type client struct {
	id     string
	userID int64
	conn   *websocket.Conn

	mu     sync.Mutex
	nextID int64
	sent   map[int64]struct{}
}

func newClient(userID int64, conn *websocket.Conn) *client {
	return &client{id: uuid.NewString(), userID: userID, conn: conn, sent: make(map[int64]struct{})}
}

func (c *client) write(f Frame) error {
	raw, err := sonic.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		logger.Warn().Err(err).Str("conn", c.id).Msg("failed to write websocket frame")
		return err
	}
	return nil
}

// Hub tracks connections by chat id and implements bot.Transport
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]*client)}
}

// register replaces any previous connection of the same chat
func (h *Hub) register(c *client) {
	h.mu.Lock()
	old := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()

	if old != nil {
		old.conn.Close()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) lookup(chatID int64) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[chatID]
}

// Connected counts open connections
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send delivers r as a new message and returns its id
func (h *Hub) Send(ctx context.Context, chatID int64, r bot.Reply) (int64, error) {
	c := h.lookup(chatID)
	if c == nil {
		return 0, fmt.Errorf("chat %d is not connected", chatID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	if err := c.write(Frame{Action: "send", MessageID: id, Text: r.Text, Buttons: r.Buttons, Photos: r.Photos}); err != nil {
		return 0, err
	}
	c.sent[id] = struct{}{}
	return id, nil
}

// Edit replaces a message sent earlier on the same connection
func (h *Hub) Edit(ctx context.Context, chatID, messageID int64, r bot.Reply) error {
	c := h.lookup(chatID)
	if c == nil {
		return ErrCannotEdit
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sent[messageID]; !ok {
		return ErrCannotEdit
	}
	return c.write(Frame{Action: "edit", MessageID: messageID, Text: r.Text, Buttons: r.Buttons, Photos: r.Photos})
}

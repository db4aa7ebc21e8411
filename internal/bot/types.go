package bot

import (
	"context"
	"errors"
	"strconv"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

// ErrCannotEdit is returned by transports when a message cannot be edited in place
var ErrCannotEdit = errors.New("message cannot be edited")

// Update is one inbound chat event. Exactly one of Text, Callback or FileID is set.
type Update struct {
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id,omitempty"`
	Text   string `json:"text,omitempty"`
	// Callback is a "namespace:payload" token from a pressed button.
	Callback string `json:"callback,omitempty"`
	// MessageID is the message that carried the pressed button.
	MessageID int64  `json:"message_id,omitempty"`
	FileID    string `json:"file_id,omitempty"`
}

func (u Update) chat() int64 {
	if u.ChatID != 0 {
		return u.ChatID
	}
	return u.UserID
}

func (u Update) session() string {
	return strconv.FormatInt(u.UserID, 10)
}

// Button is one inline button
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is one outbound message
type Reply struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
	// Photos are file handles to show alongside the text.
	Photos []string `json:"photos,omitempty"`
}

// Transport delivers replies to a chat
type Transport interface {
	Send(ctx context.Context, chatID int64, r Reply) (int64, error)
	Edit(ctx context.Context, chatID, messageID int64, r Reply) error
}

// Flows is the dialogue engine, implemented by core.Controller
type Flows interface {
	Start(ctx context.Context, sessionID string, flow core.Flow, seed core.Draft) (*core.Output, error)
	StartAt(ctx context.Context, sessionID string, step core.Step, seed core.Draft) (*core.Output, error)
	Advance(ctx context.Context, sessionID string, ev core.Event) (*core.Output, error)
	Cancel(ctx context.Context, sessionID string) (bool, error)
}

// Users reads and stores per-user settings
type Users interface {
	GetOrCreateUser(ctx context.Context, id int64) (pkg.User, error)
	SetUserTZ(ctx context.Context, id int64, offsetMin int) error
}

// Repository is the tasting storage used outside of flows
type Repository interface {
	Users
	Get(ctx context.Context, ownerID, id int64) (pkg.Tasting, error)
	Find(ctx context.Context, q pkg.Query, cursor int64, limit int) (pkg.Page, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

// Observer receives dispatcher counters, e.g. metrics.Metrics
type Observer interface {
	EventReceived(kind string)
	ReplySent(mode string)
}

type nopObserver struct{}

func (nopObserver) EventReceived(string) {}
func (nopObserver) ReplySent(string)     {}

// Seed returns the initial draft for a session: owner id and timezone offset
func Seed(users Users) core.SeedFunc {
	return func(ctx context.Context, sessionID string) (core.Draft, error) {
		owner, err := strconv.ParseInt(sessionID, 10, 64)
		if err != nil {
			return nil, err
		}
		return seedFor(ctx, users, owner)
	}
}

func seedFor(ctx context.Context, users Users, owner int64) (core.Draft, error) {
	u, err := users.GetOrCreateUser(ctx, owner)
	if err != nil {
		return nil, err
	}
	return core.Draft{core.KeyOwner: owner, core.KeyTZOffset: u.TZOffsetMin}, nil
}

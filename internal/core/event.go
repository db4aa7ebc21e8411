package core

import (
	"fmt"
	"strconv"
	"strings"
)

// EventKind tags an inbound event after it has been decoded at the transport boundary
type EventKind string

const (
	EventText       EventKind = "text"
	EventSelect     EventKind = "select"
	EventSkip       EventKind = "skip"
	EventBack       EventKind = "back"
	EventDone       EventKind = "done"
	EventOther      EventKind = "other"
	EventContinue   EventKind = "more"
	EventNow        EventKind = "now"
	EventAttachment EventKind = "attachment"
)

// Event is one decoded user action. Only the field matching Kind is meaningful.
type Event struct {
	Kind EventKind `json:"kind"`
	// Namespace is the step namespace a button was issued for. Empty for typed text and attachments.
	Namespace string `json:"ns,omitempty"`
	Text      string `json:"text,omitempty"`
	Index     int    `json:"index,omitempty"`
	FileID    string `json:"file_id,omitempty"`
}

// TextEvent wraps a typed message
func TextEvent(text string) Event {
	return Event{Kind: EventText, Text: text}
}

// AttachmentEvent wraps an uploaded file handle
func AttachmentEvent(fileID string) Event {
	return Event{Kind: EventAttachment, FileID: fileID}
}

// Token builds a callback token "<namespace>:<payload>"
func Token(namespace string, payload any) string {
	return fmt.Sprintf("%s:%v", namespace, payload)
}

// SplitToken separates a callback token at its first colon
func SplitToken(token string) (namespace, payload string, ok bool) {
	namespace, payload, ok = strings.Cut(token, ":")
	if !ok || namespace == "" {
		return "", "", false
	}
	return namespace, payload, true
}

// DecodeCallback turns a step callback token into an Event.
// Tokens whose payload is neither a keyword nor a non-negative integer are rejected.
func DecodeCallback(token string) (Event, error) {
	ns, payload, ok := SplitToken(token)
	if !ok {
		return Event{}, fmt.Errorf("malformed callback token %q", token)
	}

	ev := Event{Namespace: ns}
	switch payload {
	case "skip":
		ev.Kind = EventSkip
	case "back":
		ev.Kind = EventBack
	case "done":
		ev.Kind = EventDone
	case "other":
		ev.Kind = EventOther
	case "more":
		ev.Kind = EventContinue
	case "now":
		ev.Kind = EventNow
	default:
		idx, err := strconv.Atoi(payload)
		if err != nil || idx < 0 {
			return Event{}, fmt.Errorf("unknown callback payload %q", payload)
		}
		ev.Kind = EventSelect
		ev.Index = idx
	}
	return ev, nil
}

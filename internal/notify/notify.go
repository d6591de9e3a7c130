// Package notify delivers best-effort notices to users after request
// lifecycle changes. Delivery never affects the outcome of a transition.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Event types.
const (
	EventRequestSubmitted = "request.submitted"
	EventRequestAccepted  = "request.accepted"
	EventRequestConfirmed = "request.confirmed"
	EventRequestRejected  = "request.rejected"
	EventRequestFinalized = "request.finalized"
	EventChatConfirmed    = "chat.confirmed"
	EventChatMessage      = "chat.message"
)

// Payload describes what happened to which request.
type Payload struct {
	RequestID string `json:"requestId,omitempty"`
	ChatID    string `json:"chatId,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Status    string `json:"status,omitempty"`
	ItemTitle string `json:"itemTitle,omitempty"`
	ActorID   int64  `json:"actorId,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Notifier delivers a single event to a single user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, eventType string, p Payload) error
}

// Fanout delivers to every notifier in order and joins their errors.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, userID int64, eventType string, p Payload) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, userID, eventType, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit delivers an event and logs any failure. It never returns an error.
func Emit(ctx context.Context, n Notifier, userID int64, eventType string, p Payload) {
	if n == nil || userID <= 0 {
		return
	}
	if err := n.Notify(ctx, userID, eventType, p); err != nil {
		slog.Warn("notification failed",
			"user_id", userID, "event", eventType, "request_id", p.RequestID, "error", err)
	}
}

// Title returns the human readable headline for an event type.
func Title(eventType string) string {
	switch eventType {
	case EventRequestSubmitted:
		return "New request for your item"
	case EventRequestAccepted:
		return "Request accepted"
	case EventRequestConfirmed:
		return "Both parties accepted"
	case EventRequestRejected:
		return "Request rejected"
	case EventRequestFinalized:
		return "Handoff completed"
	case EventChatConfirmed:
		return "Handoff confirmed by the other party"
	case EventChatMessage:
		return "New message"
	}
	return eventType
}

// UnreadResetter is implemented by notifiers that keep their own unread
// counter.
type UnreadResetter interface {
	ResetUnread(ctx context.Context, userID int64) error
}

// ResetUnread resets the counters of every member that keeps one.
func (f Fanout) ResetUnread(ctx context.Context, userID int64) error {
	var errs []error
	for _, n := range f {
		if r, ok := n.(UnreadResetter); ok {
			if err := r.ResetUnread(ctx, userID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the user ID to form the NATS subject.
const SubjectPrefix = "sharecycle.notify."

// Subject returns the NATS subject events for userID are published on.
func Subject(userID int64) string {
	return fmt.Sprintf("%s%d", SubjectPrefix, userID)
}

// Message is the JSON document published on the bus.
type Message struct {
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Payload   Payload   `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher is the part of *nats.Conn used by NATS.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes events on a NATS bus, one subject per user.
type NATS struct {
	Conn Publisher
}

// ConnectNATS dials a NATS server with reconnect handling.
func ConnectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("sharecycle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return conn, nil
}

// Notify implements Notifier.
func (n *NATS) Notify(_ context.Context, userID int64, eventType string, p Payload) error {
	data, err := json.Marshal(Message{
		UserID:    userID,
		Type:      eventType,
		Title:     Title(eventType),
		Payload:   p,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := n.Conn.Publish(Subject(userID), data); err != nil {
		return fmt.Errorf("publishing to nats: %w", err)
	}
	return nil
}

package model

import "time"

// Chat is the negotiation channel linked 1:1 to a request. It carries the
// handoff confirmation state.
type Chat struct {
	ID                   string     `json:"id"`
	RequestID            string     `json:"requestId"`
	OwnerID              int64      `json:"ownerId"`
	RequesterID          int64      `json:"requesterId"`
	QRPayload            string     `json:"qrPayload,omitempty"`
	OwnerConfirmed       bool       `json:"ownerConfirmed"`
	RequesterConfirmed   bool       `json:"requesterConfirmed"`
	OwnerConfirmedAt     *time.Time `json:"ownerConfirmedAt,omitempty"`
	RequesterConfirmedAt *time.Time `json:"requesterConfirmedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`

	// Joined fields (not always populated).
	RequestKind   RequestKind   `json:"requestKind,omitempty"`
	RequestStatus RequestStatus `json:"requestStatus,omitempty"`
	ItemTitle     string        `json:"itemTitle,omitempty"`
}

// Participant reports whether userID is one of the two parties.
func (c *Chat) Participant(userID int64) bool {
	return userID == c.OwnerID || userID == c.RequesterID
}

// BothConfirmed reports whether the handoff has been acknowledged by both sides.
func (c *Chat) BothConfirmed() bool {
	return c.OwnerConfirmed && c.RequesterConfirmed
}

// Message is a single chat message. IDs increase in posting order.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  int64     `json:"senderId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

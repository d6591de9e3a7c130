package model

import "time"

// Notification is an in-app notice delivered to a single user.
type Notification struct {
	ID        string     `json:"id"`
	UserID    int64      `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Reference string     `json:"reference,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

package model

import "time"

// RequestKind distinguishes exchange requests from donation requests.
// Both share one lifecycle.
type RequestKind string

const (
	KindExchange RequestKind = "exchange"
	KindDonation RequestKind = "donation"
)

// RequestStatus is a state of the request lifecycle.
type RequestStatus string

const (
	StatusPending             RequestStatus = "pending"
	StatusAcceptedByOwner     RequestStatus = "accepted_by_owner"
	StatusAcceptedByRequester RequestStatus = "accepted_by_requester"
	StatusConfirmed           RequestStatus = "confirmed"
	StatusRejected            RequestStatus = "rejected"
	StatusFinalized           RequestStatus = "finalized"
)

// Terminal reports whether no further transitions are accepted.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusFinalized
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAcceptedByOwner, StatusAcceptedByRequester,
		StatusConfirmed, StatusRejected, StatusFinalized:
		return true
	}
	return false
}

// Request is an exchange or donation request linking a requester to the
// owner of an item.
type Request struct {
	ID               string        `json:"id"`
	Kind             RequestKind   `json:"kind"`
	ItemID           int64         `json:"itemId"`
	OfferedItemID    *int64        `json:"offeredItemId,omitempty"`
	RequesterID      int64         `json:"requesterId"`
	OwnerID          int64         `json:"ownerId"`
	Status           RequestStatus `json:"status"`
	RecipientName    string        `json:"recipientName,omitempty"`
	RecipientContact string        `json:"recipientContact,omitempty"`
	Message          string        `json:"message,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`

	// Joined fields (not always populated).
	ChatID    string `json:"chatId,omitempty"`
	ItemTitle string `json:"itemTitle,omitempty"`
}

// Party returns the role userID plays in the request, or "" if none.
func (r *Request) Party(userID int64) Party {
	switch userID {
	case r.OwnerID:
		return PartyOwner
	case r.RequesterID:
		return PartyRequester
	}
	return ""
}

// Party is the role an actor plays in a request.
type Party string

const (
	PartyOwner     Party = "owner"
	PartyRequester Party = "requester"
)

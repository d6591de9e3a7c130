package model

import "time"

// Item is a listing offered for exchange or donation by its owner.
type Item struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	ListingType string     `json:"listingType"`
	Status      string     `json:"status"`
	ImageMime   string     `json:"imageMime,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`

	// Joined fields (not always populated).
	OwnerName string `json:"ownerName,omitempty"`
}

// Listing types. A listing type is also the kind of request it accepts.
const (
	ListingExchange = "exchange"
	ListingDonation = "donation"
)

// Item statuses.
const (
	ItemStatusAvailable = "available"
	ItemStatusExchanged = "exchanged"
	ItemStatusDonated   = "donated"
	ItemStatusRemoved   = "removed"
)

// ValidListingType reports whether t is a known listing type.
func ValidListingType(t string) bool {
	return t == ListingExchange || t == ListingDonation
}

// Available reports whether the item can still receive requests.
func (i *Item) Available() bool {
	return i.DeletedAt == nil && i.Status == ItemStatusAvailable
}

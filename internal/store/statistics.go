package store

import (
	"context"
	"fmt"
)

// Statistics are the public platform counters.
type Statistics struct {
	Users              int `json:"users"`
	AvailableItems     int `json:"availableItems"`
	CompletedExchanges int `json:"completedExchanges"`
	CompletedDonations int `json:"completedDonations"`
	ActiveRequests     int `json:"activeRequests"`
}

// GetStatistics computes the platform counters in a single query.
func GetStatistics(ctx context.Context, q Querier) (*Statistics, error) {
	var s Statistics
	err := q.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users WHERE deleted_at IS NULL),
		(SELECT COUNT(*) FROM items WHERE deleted_at IS NULL AND status = 'available'),
		(SELECT COUNT(*) FROM requests WHERE kind = 'exchange' AND status = 'finalized'),
		(SELECT COUNT(*) FROM requests WHERE kind = 'donation' AND status = 'finalized'),
		(SELECT COUNT(*) FROM requests WHERE status IN `+activeStatuses+`)`,
	).Scan(&s.Users, &s.AvailableItems, &s.CompletedExchanges, &s.CompletedDonations, &s.ActiveRequests)
	if err != nil {
		return nil, fmt.Errorf("computing statistics: %w", err)
	}
	return &s, nil
}

// DonationStatistics are the public donation counters.
type DonationStatistics struct {
	CompletedDonations int `json:"completedDonations"`
	AvailableDonations int `json:"availableDonations"`
	ActiveRequests     int `json:"activeRequests"`
	Donors             int `json:"donors"`
	Recipients         int `json:"recipients"`
}

// GetDonationStatistics computes the donation counters in a single query.
func GetDonationStatistics(ctx context.Context, q Querier) (*DonationStatistics, error) {
	var s DonationStatistics
	err := q.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM requests WHERE kind = 'donation' AND status = 'finalized'),
		(SELECT COUNT(*) FROM items WHERE deleted_at IS NULL AND status = 'available' AND listing_type = 'donation'),
		(SELECT COUNT(*) FROM requests WHERE kind = 'donation' AND status IN `+activeStatuses+`),
		(SELECT COUNT(DISTINCT owner_id) FROM requests WHERE kind = 'donation' AND status = 'finalized'),
		(SELECT COUNT(DISTINCT requester_id) FROM requests WHERE kind = 'donation' AND status = 'finalized')`,
	).Scan(&s.CompletedDonations, &s.AvailableDonations, &s.ActiveRequests, &s.Donors, &s.Recipients)
	if err != nil {
		return nil, fmt.Errorf("computing donation statistics: %w", err)
	}
	return &s, nil
}

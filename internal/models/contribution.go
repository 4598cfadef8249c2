package models

import "time"

// Contribution is a mirror row for one (campaign, principal) pair. Amount is
// the sum of all accepted pledges by that account; repeat pledges accumulate
// into this row rather than creating new ones. Rows are never deleted.
type Contribution struct {
	CampaignID int64  `json:"campaign_id"`
	Principal  string `json:"principal"`
	Amount     uint64 `json:"amount"`
	IsRefunded bool   `json:"is_refunded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

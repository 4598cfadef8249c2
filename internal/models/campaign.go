package models

import "time"

// Campaign is a mirror row: a cached, mutable copy of ledger-observed
// campaign state kept for fast reads. It is never authoritative; the ledger
// owns id, totals, collection state, the expiration checkpoint, and the data
// hash. The mirror additionally owns the presentation-only pending fields,
// which have no ledger counterpart.
type Campaign struct {
	// Mirror identity
	ID int64 `json:"id"`

	// Pending-submission state. SubmissionRef identifies the open-campaign
	// call on the ledger until its outcome is known. ChainID is assigned only
	// once the submission is confirmed.
	SubmissionRef string  `json:"submission_ref"`
	IsPending     bool    `json:"is_pending"`
	ChainID       *uint64 `json:"chain_id,omitempty"`

	// User-facing fields, covered by the integrity hash
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Image       string `json:"image,omitempty"`

	// Ledger-owned copies
	ExpirationCheckpoint uint64 `json:"expiration_checkpoint"`
	FundingGoal          uint64 `json:"funding_goal"`
	TotalRaised          uint64 `json:"total_raised"`
	IsCollected          bool   `json:"is_collected"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Confirmed reports whether the campaign has a ledger-assigned id.
// Unconfirmed campaigns must not accept contributions.
func (c *Campaign) Confirmed() bool {
	return !c.IsPending && c.ChainID != nil
}

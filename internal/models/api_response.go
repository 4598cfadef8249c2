package models

// FundingInfo is the ledger's view of a campaign's funding, returned next to
// the mirror row so clients can compare cached and authoritative values.
type FundingInfo struct {
	Amount           uint64 `json:"amount"`
	NumContributions uint64 `json:"num_contributions"`
	IsCollected      bool   `json:"is_collected"`
}

// CampaignDetailsResponse is the payload for GET /campaigns/{id}.
// FundingInfo is nil when the campaign is not yet confirmed on the ledger or
// the ledger could not be reached; the mirror data is still served.
// IsDataValidatedOnChain is advisory: false means the mirror copy of the
// user-facing fields no longer matches the ledger-stored hash.
type CampaignDetailsResponse struct {
	Campaign               *Campaign    `json:"campaign"`
	FundingInfo            *FundingInfo `json:"funding_info,omitempty"`
	IsDataValidatedOnChain bool         `json:"is_data_validated_on_chain"`
}

// ContributionDetailsResponse is the payload for
// GET /campaigns/{id}/contributions/{principal}.
type ContributionDetailsResponse struct {
	Contribution *Contribution `json:"contribution"`
	LedgerAmount uint64        `json:"ledger_amount"`
	IsRefunded   bool          `json:"is_refunded"`
}

// CampaignListResponse is the payload for GET /campaigns.
type CampaignListResponse struct {
	Campaigns []*Campaign `json:"campaigns"`
	Total     int         `json:"total"`
}

// ErrorResponse is the JSON error envelope for all handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

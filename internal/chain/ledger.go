// Package chain models the external ledger as an injected capability. The
// reconciler and the API surface only ever see the Ledger interface, so the
// core logic is testable against a fake implementing the same state-machine
// rules without a live ledger.
package chain

import (
	"context"

	"fundsync/internal/escrow"
)

// SubmissionState is the outcome of a state-changing call whose result is
// learned asynchronously.
type SubmissionState int

const (
	// SubmissionPending means the outcome is not yet known; retry on the
	// next checkpoint.
	SubmissionPending SubmissionState = iota
	// SubmissionSucceeded means the call executed; CampaignID carries the
	// ledger-assigned id.
	SubmissionSucceeded
	// SubmissionFailed means the call was rejected by the ledger.
	SubmissionFailed
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionSucceeded:
		return "succeeded"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Submission is the two-phase record for an open-campaign call:
// Submitted(ref) advances to Confirmed(id) or Rejected only via an explicit
// outcome lookup, never inferred from absence of data.
type Submission struct {
	State      SubmissionState
	CampaignID uint64
}

// OpenParams are the arguments of an open-campaign call.
type OpenParams struct {
	Owner                 string
	Title                 string
	FundingGoal           uint64
	DurationInCheckpoints uint64
	DataHash              string
}

// Ledger is the call surface of the escrow ledger program: five
// state-changing operations, three read-only queries, plus the checkpoint
// tip and the submission outcome lookup the reconciler depends on.
type Ledger interface {
	// CurrentCheckpoint returns the ledger's current position (tip).
	CurrentCheckpoint(ctx context.Context) (uint64, error)

	// SubmitOpen submits an open-campaign call and returns its submission
	// ref. The campaign id is not known until the submission settles.
	SubmitOpen(ctx context.Context, p OpenParams) (string, error)

	// GetSubmission looks up the outcome of a previously submitted call.
	GetSubmission(ctx context.Context, ref string) (Submission, error)

	EditMetadata(ctx context.Context, caller string, id uint64, title, dataHash string) error
	Contribute(ctx context.Context, caller string, id uint64, amount uint64) error
	Refund(ctx context.Context, id uint64, account string) error
	Release(ctx context.Context, id uint64) error

	GetCampaign(ctx context.Context, id uint64) (escrow.Campaign, error)
	GetFundingTotals(ctx context.Context, id uint64) (escrow.FundingTotals, error)
	GetContributionInfo(ctx context.Context, id uint64, account string) (escrow.ContributionInfo, error)
}

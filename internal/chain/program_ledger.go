package chain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"fundsync/internal/escrow"
)

// ProgramLedger adapts an in-process escrow.Program to the Ledger interface.
// Submissions execute as soon as the program's total order admits them, but
// callers still observe the two-phase submitted/settled protocol: SubmitOpen
// hands back a ref, and the assigned campaign id is only available through
// GetSubmission, exactly as with a remote ledger.
type ProgramLedger struct {
	program *escrow.Program

	mu          sync.Mutex
	submissions map[string]Submission
}

// NewProgramLedger wraps program as a Ledger.
func NewProgramLedger(program *escrow.Program) *ProgramLedger {
	return &ProgramLedger{
		program:     program,
		submissions: make(map[string]Submission),
	}
}

// CurrentCheckpoint returns the program's view of the ledger position.
func (l *ProgramLedger) CurrentCheckpoint(ctx context.Context) (uint64, error) {
	return l.program.CurrentCheckpoint(), nil
}

// SubmitOpen executes an open-campaign call and journals its outcome under a
// fresh submission ref.
func (l *ProgramLedger) SubmitOpen(ctx context.Context, p OpenParams) (string, error) {
	ref, err := newSubmissionRef()
	if err != nil {
		return "", fmt.Errorf("failed to generate submission ref: %w", err)
	}

	id := l.program.Open(p.Owner, p.Title, p.FundingGoal, p.DurationInCheckpoints, p.DataHash)

	l.mu.Lock()
	l.submissions[ref] = Submission{State: SubmissionSucceeded, CampaignID: id}
	l.mu.Unlock()

	return ref, nil
}

// GetSubmission returns the journaled outcome for ref. Unknown refs read as
// pending: the outcome of a submission is never inferred from absent data.
func (l *ProgramLedger) GetSubmission(ctx context.Context, ref string) (Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub, ok := l.submissions[ref]
	if !ok {
		return Submission{State: SubmissionPending}, nil
	}
	return sub, nil
}

func (l *ProgramLedger) EditMetadata(ctx context.Context, caller string, id uint64, title, dataHash string) error {
	return l.program.EditMetadata(caller, id, title, dataHash)
}

func (l *ProgramLedger) Contribute(ctx context.Context, caller string, id uint64, amount uint64) error {
	return l.program.Contribute(caller, id, amount)
}

func (l *ProgramLedger) Refund(ctx context.Context, id uint64, account string) error {
	return l.program.Refund(id, account)
}

func (l *ProgramLedger) Release(ctx context.Context, id uint64) error {
	return l.program.Release(id)
}

func (l *ProgramLedger) GetCampaign(ctx context.Context, id uint64) (escrow.Campaign, error) {
	return l.program.GetCampaign(id)
}

func (l *ProgramLedger) GetFundingTotals(ctx context.Context, id uint64) (escrow.FundingTotals, error) {
	return l.program.GetFundingTotals(id)
}

func (l *ProgramLedger) GetContributionInfo(ctx context.Context, id uint64, account string) (escrow.ContributionInfo, error) {
	return l.program.GetContributionInfo(id, account)
}

// newSubmissionRef generates a tx-hash-shaped random ref.
func newSubmissionRef() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

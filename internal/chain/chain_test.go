package chain

import (
	"context"
	"sync"
	"testing"

	"fundsync/internal/escrow"
)

func TestCachedTipIgnoresStaleObservations(t *testing.T) {
	tip := NewCachedTip(100)

	tip.Set(105)
	if got := tip.Current(); got != 105 {
		t.Fatalf("Current() = %d, want 105", got)
	}

	tip.Set(103)
	if got := tip.Current(); got != 105 {
		t.Errorf("stale observation lowered the tip: %d", got)
	}
	tip.Set(105)
	if got := tip.Current(); got != 105 {
		t.Errorf("equal observation changed the tip: %d", got)
	}
}

func TestCachedTipConcurrentSet(t *testing.T) {
	tip := NewCachedTip(0)

	var wg sync.WaitGroup
	for i := uint64(1); i <= 100; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			tip.Set(v)
		}(i)
	}
	wg.Wait()

	if got := tip.Current(); got != 100 {
		t.Errorf("Current() = %d, want 100", got)
	}
}

func newTestLedger() (*ProgramLedger, *CachedTip) {
	tip := NewCachedTip(100)
	balances := escrow.NewMapBalances()
	program := escrow.NewProgram(escrow.NewMapCampaignStore(), escrow.NewMapContributionStore(), balances, tip)
	return NewProgramLedger(program), tip
}

func TestSubmitOpenJournalsOutcome(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	ref, err := ledger.SubmitOpen(ctx, OpenParams{
		Owner:                 "GDQP2KPQGKIHYJGXNUIYOMHARUARCA7DJT5FO2FFOOKY3B2WSQHG4W37",
		Title:                 "Test Campaign",
		FundingGoal:           50000,
		DurationInCheckpoints: 50,
		DataHash:              "70573301787ea4db801ca44a7b9ecd28",
	})
	if err != nil {
		t.Fatalf("SubmitOpen: %v", err)
	}
	if len(ref) != 64 {
		t.Errorf("ref should be a 32-byte hex string, got %q", ref)
	}

	sub, err := ledger.GetSubmission(ctx, ref)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub.State != SubmissionSucceeded {
		t.Fatalf("state = %v, want succeeded", sub.State)
	}

	campaign, err := ledger.GetCampaign(ctx, sub.CampaignID)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	// Expiration fixed at open time against the current tip.
	if campaign.ExpirationCheckpoint != 150 {
		t.Errorf("expiration = %d, want 150", campaign.ExpirationCheckpoint)
	}
}

// The outcome of a submission is never inferred from absent data: a ref the
// journal does not know reads as pending, not failed.
func TestUnknownSubmissionReadsAsPending(t *testing.T) {
	ledger, _ := newTestLedger()

	sub, err := ledger.GetSubmission(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub.State != SubmissionPending {
		t.Errorf("state = %v, want pending", sub.State)
	}
}

func TestSubmissionRefsAreUnique(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref, err := ledger.SubmitOpen(ctx, OpenParams{
			Owner:                 "GDQP2KPQGKIHYJGXNUIYOMHARUARCA7DJT5FO2FFOOKY3B2WSQHG4W37",
			Title:                 "Test Campaign",
			FundingGoal:           1000,
			DurationInCheckpoints: 10,
		})
		if err != nil {
			t.Fatalf("SubmitOpen: %v", err)
		}
		if seen[ref] {
			t.Fatalf("duplicate submission ref %q", ref)
		}
		seen[ref] = true
	}
}

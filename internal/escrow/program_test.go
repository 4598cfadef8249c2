package escrow

import (
	"errors"
	"testing"
)

const (
	ownerAddr       = "GDQP2KPQGKIHYJGXNUIYOMHARUARCA7DJT5FO2FFOOKY3B2WSQHG4W37"
	contributorAddr = "GB3TJ4HJZF2SXQDXRTB4GRKQPXUGRBZI2MVRZ4HFQFIFVYBO3JA4JBSZ"
	contributor2    = "GCKFBEIYTKP6RCZX6LRQJWUDJHXAPIYVTKQMEWJMCMDE7NMR3RIVDJVK"
)

// manualCheckpoints is a CheckpointSource advanced by hand, standing in for
// the external ledger position.
type manualCheckpoints struct {
	current uint64
}

func (m *manualCheckpoints) Current() uint64 { return m.current }

func (m *manualCheckpoints) Advance(n uint64) { m.current += n }

func newTestProgram() (*Program, *manualCheckpoints, *MapBalances) {
	checkpoints := &manualCheckpoints{current: 100}
	balances := NewMapBalances()
	balances.Credit(ownerAddr, 1_000_000)
	balances.Credit(contributorAddr, 1_000_000)
	balances.Credit(contributor2, 1_000_000)

	program := NewProgram(NewMapCampaignStore(), NewMapContributionStore(), balances, checkpoints)
	return program, checkpoints, balances
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %v, got nil", want)
	}
	code, ok := CodeOf(err)
	if !ok {
		t.Fatalf("expected escrow error, got: %v", err)
	}
	if code != want {
		t.Errorf("expected code %v, got %v (%v)", want, code, err)
	}
}

func TestStatus(t *testing.T) {
	program, _, _ := newTestProgram()
	if got := program.Status(); got != "ok" {
		t.Errorf("expected status ok, got %q", got)
	}
}

func TestOpenInitializesCampaign(t *testing.T) {
	program, checkpoints, _ := newTestProgram()

	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	campaign, err := program.GetCampaign(id)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if campaign.Owner != ownerAddr {
		t.Errorf("expected owner %s, got %s", ownerAddr, campaign.Owner)
	}
	if campaign.FundingGoal != 50000 {
		t.Errorf("expected goal 50000, got %d", campaign.FundingGoal)
	}
	if want := checkpoints.Current() + 50; campaign.ExpirationCheckpoint != want {
		t.Errorf("expected expiration %d, got %d", want, campaign.ExpirationCheckpoint)
	}

	totals, err := program.GetFundingTotals(id)
	if err != nil {
		t.Fatalf("GetFundingTotals: %v", err)
	}
	if totals.Amount != 0 || totals.NumContributions != 0 || totals.IsCollected {
		t.Errorf("expected zeroed totals, got %+v", totals)
	}
}

func TestEditMetadata(t *testing.T) {
	program, _, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	if err := program.EditMetadata(ownerAddr, id, "Updated Campaign Title", "848573nfk38fj4kl3r45"); err != nil {
		t.Fatalf("EditMetadata by owner: %v", err)
	}

	campaign, err := program.GetCampaign(id)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if campaign.Title != "Updated Campaign Title" {
		t.Errorf("title not updated: %q", campaign.Title)
	}
	if campaign.DataHash != "848573nfk38fj4kl3r45" {
		t.Errorf("data hash not updated: %q", campaign.DataHash)
	}
}

func TestEditMetadataByNonOwner(t *testing.T) {
	program, _, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	err := program.EditMetadata(contributorAddr, id, "Hijacked", "deadbeef")
	assertCode(t, err, CodeNotAllowed)

	// Nothing changed.
	campaign, _ := program.GetCampaign(id)
	if campaign.Title != "Test Campaign" || campaign.DataHash != "70573301787ea4db801ca44a7b9ecd28" {
		t.Errorf("campaign mutated by rejected edit: %+v", campaign)
	}
}

// Scenario: open with goal 50000, contribute 8000, totals reflect one
// distinct contributor.
func TestContributeUpdatesTotalsAndBalances(t *testing.T) {
	program, _, balances := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	before := balances.BalanceOf(contributorAddr)
	if err := program.Contribute(contributorAddr, id, 8000); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	if got := balances.BalanceOf(contributorAddr); got != before-8000 {
		t.Errorf("contributor balance: expected %d, got %d", before-8000, got)
	}
	if got := balances.PoolOf(id); got != 8000 {
		t.Errorf("pooled balance: expected 8000, got %d", got)
	}

	totals, err := program.GetFundingTotals(id)
	if err != nil {
		t.Fatalf("GetFundingTotals: %v", err)
	}
	if totals.Amount != 8000 || totals.NumContributions != 1 || totals.IsCollected {
		t.Errorf("expected {8000 1 false}, got %+v", totals)
	}

	info, err := program.GetContributionInfo(id, contributorAddr)
	if err != nil {
		t.Fatalf("GetContributionInfo: %v", err)
	}
	if info.Amount != 8000 || info.IsRefunded {
		t.Errorf("expected {8000 false}, got %+v", info)
	}
}

// Scenario: duration 2, advance 2 checkpoints, contribute fails with
// campaign-ended (u4) and no funds move.
func TestContributeAfterExpiration(t *testing.T) {
	program, checkpoints, balances := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 2, "70573301787ea4db801ca44a7b9ecd28")

	before := balances.BalanceOf(contributorAddr)
	checkpoints.Advance(2)

	err := program.Contribute(contributorAddr, id, 1000)
	assertCode(t, err, CodeCampaignEnded)

	if got := balances.BalanceOf(contributorAddr); got != before {
		t.Errorf("balance changed on rejected contribution: %d != %d", got, before)
	}
	totals, _ := program.GetFundingTotals(id)
	if totals.Amount != 0 {
		t.Errorf("totalRaised changed on rejected contribution: %d", totals.Amount)
	}
}

// Scenario: pledges 3000 and 7000 from one account plus 15000 from another
// accumulate per account; the campaign counts distinct accounts.
func TestRepeatContributionsAccumulate(t *testing.T) {
	program, _, balances := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	for _, pledge := range []struct {
		account string
		amount  uint64
	}{
		{contributorAddr, 3000},
		{contributorAddr, 7000},
		{contributor2, 15000},
	} {
		if err := program.Contribute(pledge.account, id, pledge.amount); err != nil {
			t.Fatalf("Contribute %d by %s: %v", pledge.amount, pledge.account, err)
		}
	}

	if got := balances.PoolOf(id); got != 25000 {
		t.Errorf("pooled balance: expected 25000, got %d", got)
	}

	info1, err := program.GetContributionInfo(id, contributorAddr)
	if err != nil {
		t.Fatalf("GetContributionInfo: %v", err)
	}
	if info1.Amount != 10000 || info1.IsRefunded {
		t.Errorf("account 1: expected {10000 false}, got %+v", info1)
	}

	info2, err := program.GetContributionInfo(id, contributor2)
	if err != nil {
		t.Fatalf("GetContributionInfo: %v", err)
	}
	if info2.Amount != 15000 || info2.IsRefunded {
		t.Errorf("account 2: expected {15000 false}, got %+v", info2)
	}

	totals, _ := program.GetFundingTotals(id)
	if totals.Amount != 25000 {
		t.Errorf("expected total 25000, got %d", totals.Amount)
	}
	if totals.NumContributions != 2 {
		t.Errorf("expected 2 distinct contributors, got %d", totals.NumContributions)
	}
}

func TestContributeInsufficientFunds(t *testing.T) {
	program, _, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	err := program.Contribute(contributorAddr, id, 2_000_000)
	assertCode(t, err, CodeInsufficientFunds)
}

// Scenario: duration 2, single pledge below goal, expiry, refund restores the
// contributor's balance; a second refund fails with already-refunded (u10).
func TestRefund(t *testing.T) {
	program, checkpoints, balances := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 2, "70573301787ea4db801ca44a7b9ecd28")

	before := balances.BalanceOf(contributorAddr)
	if err := program.Contribute(contributorAddr, id, 8000); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	checkpoints.Advance(2)

	// Refund pays out to the account in the args, whoever calls it.
	if err := program.Refund(id, contributorAddr); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if got := balances.BalanceOf(contributorAddr); got != before {
		t.Errorf("balance not restored: expected %d, got %d", before, got)
	}

	info, err := program.GetContributionInfo(id, contributorAddr)
	if err != nil {
		t.Fatalf("GetContributionInfo: %v", err)
	}
	if info.Amount != 8000 || !info.IsRefunded {
		t.Errorf("expected {8000 true}, got %+v", info)
	}

	err = program.Refund(id, contributorAddr)
	assertCode(t, err, CodeAlreadyRefunded)
}

func TestRefundBeforeExpiration(t *testing.T) {
	program, _, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	if err := program.Contribute(contributorAddr, id, 8000); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	err := program.Refund(id, contributorAddr)
	assertCode(t, err, CodeCampaignNotEnded)
}

func TestRefundAfterGoalMet(t *testing.T) {
	program, checkpoints, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 2, "70573301787ea4db801ca44a7b9ecd28")

	if err := program.Contribute(contributorAddr, id, 50000); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	checkpoints.Advance(2)

	err := program.Refund(id, contributorAddr)
	assertCode(t, err, CodeCampaignSucceeded)
}

func TestRefundUnknownContribution(t *testing.T) {
	program, checkpoints, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 2, "70573301787ea4db801ca44a7b9ecd28")
	checkpoints.Advance(2)

	err := program.Refund(id, contributorAddr)
	assertCode(t, err, CodeContributionNotFound)
}

// Scenario: pledge meets the goal, expiry, release transfers the pooled
// amount to the owner and zeroes the pool; a second release fails with
// already-collected (u11).
func TestRelease(t *testing.T) {
	program, checkpoints, balances := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 2, "70573301787ea4db801ca44a7b9ecd28")

	ownerBefore := balances.BalanceOf(ownerAddr)
	if err := program.Contribute(contributor2, id, 50000); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	checkpoints.Advance(2)

	if err := program.Release(id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := balances.BalanceOf(ownerAddr); got != ownerBefore+50000 {
		t.Errorf("owner balance: expected %d, got %d", ownerBefore+50000, got)
	}
	if got := balances.PoolOf(id); got != 0 {
		t.Errorf("pool not zeroed after release: %d", got)
	}

	totals, _ := program.GetFundingTotals(id)
	if !totals.IsCollected {
		t.Error("expected IsCollected after release")
	}

	err := program.Release(id)
	assertCode(t, err, CodeAlreadyCollected)
}

func TestReleaseBeforeExpiration(t *testing.T) {
	program, _, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 50, "70573301787ea4db801ca44a7b9ecd28")

	if err := program.Contribute(contributor2, id, 50000); err != nil {
		t.Fatalf("Contribute: %v", err)
	}

	err := program.Release(id)
	assertCode(t, err, CodeCampaignNotEnded)
}

func TestReleaseBelowGoal(t *testing.T) {
	program, checkpoints, _ := newTestProgram()
	id := program.Open(ownerAddr, "Test Campaign", 50000, 2, "70573301787ea4db801ca44a7b9ecd28")

	if err := program.Contribute(contributor2, id, 49999); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	checkpoints.Advance(2)

	err := program.Release(id)
	assertCode(t, err, CodeCampaignFailed)
}

func TestQueriesOnUnknownCampaign(t *testing.T) {
	program, _, _ := newTestProgram()

	if _, err := program.GetCampaign(42); err == nil {
		t.Error("expected error for unknown campaign")
	}
	if _, err := program.GetFundingTotals(42); err == nil {
		t.Error("expected error for unknown campaign")
	}
	err := program.Contribute(contributorAddr, 42, 100)
	assertCode(t, err, CodeCampaignNotFound)
}

func TestCodeOfForeignError(t *testing.T) {
	if _, ok := CodeOf(errors.New("connection refused")); ok {
		t.Error("CodeOf should not classify transport errors")
	}
	if _, ok := CodeOf(nil); ok {
		t.Error("CodeOf(nil) should report no code")
	}
}

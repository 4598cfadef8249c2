package escrow

import "sync"

// Program is the escrow state machine for funding campaigns. It owns the
// authoritative lifecycle of every campaign: contributions accrue while the
// current checkpoint is below the campaign's expiration checkpoint; after
// expiration exactly one of release-to-owner (goal met) or refund-per-
// contributor (goal missed) settles the pooled balance.
//
// The surrounding ledger establishes a single total order of mutations, so a
// plain mutex is enough: there is never more than one in-flight mutation of a
// campaign's state.
type Program struct {
	mu sync.Mutex

	campaigns     CampaignStore
	contributions ContributionStore
	balances      Balances
	checkpoints   CheckpointSource

	// collected transitions false -> true at most once per campaign.
	collected map[uint64]bool
}

// NewProgram creates a Program over the injected stores.
func NewProgram(campaigns CampaignStore, contributions ContributionStore, balances Balances, checkpoints CheckpointSource) *Program {
	return &Program{
		campaigns:     campaigns,
		contributions: contributions,
		balances:      balances,
		checkpoints:   checkpoints,
		collected:     make(map[uint64]bool),
	}
}

// Status reports program liveness.
func (p *Program) Status() string {
	return "ok"
}

// Open creates a campaign owned by caller. The expiration checkpoint is fixed
// here, as current checkpoint + duration, and is immutable afterwards.
// Returns the new campaign id.
func (p *Program) Open(caller, title string, goal, durationInCheckpoints uint64, dataHash string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.campaigns.NextID()
	p.campaigns.Put(&Campaign{
		ID:                   id,
		Owner:                caller,
		Title:                title,
		FundingGoal:          goal,
		ExpirationCheckpoint: p.checkpoints.Current() + durationInCheckpoints,
		DataHash:             dataHash,
	})
	return id
}

// EditMetadata replaces the campaign's title and data hash. Only the owner may
// edit; funding fields are untouched.
func (p *Program) EditMetadata(caller string, id uint64, title, dataHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns.Get(id)
	if !ok {
		return newError(CodeCampaignNotFound)
	}
	if campaign.Owner != caller {
		return newError(CodeNotAllowed)
	}

	campaign.Title = title
	campaign.DataHash = dataHash
	p.campaigns.Put(campaign)
	return nil
}

// Contribute debits amount from caller and credits the campaign's pooled
// balance. Repeat pledges by the same account accumulate into one
// contribution row.
func (p *Program) Contribute(caller string, id uint64, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns.Get(id)
	if !ok {
		return newError(CodeCampaignNotFound)
	}
	if p.checkpoints.Current() >= campaign.ExpirationCheckpoint {
		return newError(CodeCampaignEnded)
	}
	if !p.balances.Debit(caller, amount) {
		return newError(CodeInsufficientFunds)
	}
	p.balances.CreditPool(id, amount)

	info, ok := p.contributions.Get(id, caller)
	if !ok {
		info = &ContributionInfo{}
	}
	info.Amount += amount
	p.contributions.Put(id, caller, info)
	return nil
}

// Refund pays a contribution's full accumulated amount back to account.
// Callable by anyone; the payout target is account, not the caller. Only
// available once the campaign has expired without meeting its goal, and only
// once per contribution.
func (p *Program) Refund(id uint64, account string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns.Get(id)
	if !ok {
		return newError(CodeCampaignNotFound)
	}
	if p.checkpoints.Current() < campaign.ExpirationCheckpoint {
		return newError(CodeCampaignNotEnded)
	}
	raised, _ := p.contributions.Totals(id)
	if raised >= campaign.FundingGoal {
		return newError(CodeCampaignSucceeded)
	}

	info, ok := p.contributions.Get(id, account)
	if !ok {
		return newError(CodeContributionNotFound)
	}
	if info.IsRefunded {
		return newError(CodeAlreadyRefunded)
	}
	if !p.balances.DebitPool(id, info.Amount) {
		return newError(CodeInsufficientFunds)
	}

	info.IsRefunded = true
	p.contributions.Put(id, account, info)
	p.balances.Credit(account, info.Amount)
	return nil
}

// Release pays the pooled balance to the campaign owner and marks the
// campaign collected. Callable by anyone, at most once, and only after an
// expired campaign met its goal.
func (p *Program) Release(id uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns.Get(id)
	if !ok {
		return newError(CodeCampaignNotFound)
	}
	if p.checkpoints.Current() < campaign.ExpirationCheckpoint {
		return newError(CodeCampaignNotEnded)
	}
	totals := p.fundingTotals(campaign)
	if totals.IsCollected {
		return newError(CodeAlreadyCollected)
	}
	if totals.Amount < campaign.FundingGoal {
		return newError(CodeCampaignFailed)
	}

	pooled := p.balances.DrainPool(id)
	p.balances.Credit(campaign.Owner, pooled)
	p.collected[id] = true
	return nil
}

// GetCampaign returns the authoritative campaign record.
func (p *Program) GetCampaign(id uint64) (Campaign, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns.Get(id)
	if !ok {
		return Campaign{}, newError(CodeCampaignNotFound)
	}
	return *campaign, nil
}

// GetFundingTotals returns the aggregated contribution state for a campaign.
func (p *Program) GetFundingTotals(id uint64) (FundingTotals, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns.Get(id)
	if !ok {
		return FundingTotals{}, newError(CodeCampaignNotFound)
	}
	return p.fundingTotals(campaign), nil
}

// GetContributionInfo returns the accumulated contribution of one account.
func (p *Program) GetContributionInfo(id uint64, account string) (ContributionInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.campaigns.Get(id); !ok {
		return ContributionInfo{}, newError(CodeCampaignNotFound)
	}
	info, ok := p.contributions.Get(id, account)
	if !ok {
		return ContributionInfo{}, newError(CodeContributionNotFound)
	}
	return *info, nil
}

// CurrentCheckpoint reports the program's view of the ledger position.
func (p *Program) CurrentCheckpoint() uint64 {
	return p.checkpoints.Current()
}

func (p *Program) fundingTotals(campaign *Campaign) FundingTotals {
	amount, count := p.contributions.Totals(campaign.ID)
	return FundingTotals{
		Amount:           amount,
		NumContributions: count,
		IsCollected:      p.collected[campaign.ID],
	}
}

package escrow

// Campaign is the authoritative per-campaign record held by the program.
type Campaign struct {
	ID                   uint64
	Owner                string
	Title                string
	FundingGoal          uint64
	ExpirationCheckpoint uint64
	DataHash             string
}

// FundingTotals aggregates accepted contributions for a campaign.
// NumContributions counts distinct contributing accounts, not pledge events.
type FundingTotals struct {
	Amount           uint64
	NumContributions uint64
	IsCollected      bool
}

// ContributionInfo is the authoritative per-(campaign, account) record.
type ContributionInfo struct {
	Amount     uint64
	IsRefunded bool
}

// contributionKey identifies a contribution row. Uniqueness on the pair is an
// invariant: repeat pledges by the same account accumulate into one row.
type contributionKey struct {
	campaignID uint64
	account    string
}

// CampaignStore holds campaign records keyed by id.
// The program never reaches for ambient globals; stores are injected.
type CampaignStore interface {
	Get(id uint64) (*Campaign, bool)
	Put(c *Campaign)
	NextID() uint64
}

// ContributionStore holds contribution records keyed by (campaign, account).
type ContributionStore interface {
	Get(campaignID uint64, account string) (*ContributionInfo, bool)
	Put(campaignID uint64, account string, info *ContributionInfo)
	Totals(campaignID uint64) (amount, count uint64)
}

// Balances tracks account funds and each campaign's pooled balance in the
// ledger's base unit. All amounts are non-negative integers; aggregation is
// pure integer addition.
type Balances interface {
	BalanceOf(account string) uint64
	Credit(account string, amount uint64)
	// Debit fails when the account balance is below amount.
	Debit(account string, amount uint64) bool

	PoolOf(campaignID uint64) uint64
	CreditPool(campaignID uint64, amount uint64)
	// DrainPool zeroes the pooled balance and returns what it held.
	DrainPool(campaignID uint64) uint64
	// DebitPool fails when the pool holds less than amount.
	DebitPool(campaignID uint64, amount uint64) bool
}

// CheckpointSource reports the current ledger position. Campaign duration and
// expiration are measured against it.
type CheckpointSource interface {
	Current() uint64
}

// MapCampaignStore is the in-memory CampaignStore.
type MapCampaignStore struct {
	campaigns map[uint64]*Campaign
	nextID    uint64
}

func NewMapCampaignStore() *MapCampaignStore {
	return &MapCampaignStore{
		campaigns: make(map[uint64]*Campaign),
		nextID:    1,
	}
}

func (s *MapCampaignStore) Get(id uint64) (*Campaign, bool) {
	c, ok := s.campaigns[id]
	return c, ok
}

func (s *MapCampaignStore) Put(c *Campaign) {
	s.campaigns[c.ID] = c
}

func (s *MapCampaignStore) NextID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// MapContributionStore is the in-memory ContributionStore.
type MapContributionStore struct {
	contributions map[contributionKey]*ContributionInfo
}

func NewMapContributionStore() *MapContributionStore {
	return &MapContributionStore{
		contributions: make(map[contributionKey]*ContributionInfo),
	}
}

func (s *MapContributionStore) Get(campaignID uint64, account string) (*ContributionInfo, bool) {
	info, ok := s.contributions[contributionKey{campaignID, account}]
	return info, ok
}

func (s *MapContributionStore) Put(campaignID uint64, account string, info *ContributionInfo) {
	s.contributions[contributionKey{campaignID, account}] = info
}

func (s *MapContributionStore) Totals(campaignID uint64) (amount, count uint64) {
	for key, info := range s.contributions {
		if key.campaignID == campaignID {
			amount += info.Amount
			count++
		}
	}
	return amount, count
}

// MapBalances is the in-memory Balances book.
type MapBalances struct {
	accounts map[string]uint64
	pools    map[uint64]uint64
}

func NewMapBalances() *MapBalances {
	return &MapBalances{
		accounts: make(map[string]uint64),
		pools:    make(map[uint64]uint64),
	}
}

func (b *MapBalances) BalanceOf(account string) uint64 {
	return b.accounts[account]
}

func (b *MapBalances) Credit(account string, amount uint64) {
	b.accounts[account] += amount
}

func (b *MapBalances) Debit(account string, amount uint64) bool {
	if b.accounts[account] < amount {
		return false
	}
	b.accounts[account] -= amount
	return true
}

func (b *MapBalances) PoolOf(campaignID uint64) uint64 {
	return b.pools[campaignID]
}

func (b *MapBalances) CreditPool(campaignID uint64, amount uint64) {
	b.pools[campaignID] += amount
}

func (b *MapBalances) DrainPool(campaignID uint64) uint64 {
	amount := b.pools[campaignID]
	b.pools[campaignID] = 0
	return amount
}

func (b *MapBalances) DebitPool(campaignID uint64, amount uint64) bool {
	if b.pools[campaignID] < amount {
		return false
	}
	b.pools[campaignID] -= amount
	return true
}

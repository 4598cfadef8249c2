package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"fundsync/internal/models"
)

// MemoryRepository is a map-backed Repository. It backs tests and
// DATABASE_URL-less runs; semantics mirror PostgresRepository.
type MemoryRepository struct {
	mu            sync.Mutex
	campaigns     map[int64]*models.Campaign
	contributions map[contributionKey]*models.Contribution
	nextID        int64
}

type contributionKey struct {
	campaignID int64
	principal  string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		campaigns:     make(map[int64]*models.Campaign),
		contributions: make(map[contributionKey]*models.Contribution),
		nextID:        1,
	}
}

func (r *MemoryRepository) CreateCampaign(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *campaign
	saved.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now

	r.campaigns[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (r *MemoryRepository) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *campaign
	return &out, nil
}

func (r *MemoryRepository) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.selectCampaigns(func(c *models.Campaign) bool { return true }), nil
}

func (r *MemoryRepository) UpdateCampaign(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.campaigns[campaign.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = campaign.Title
	existing.Description = campaign.Description
	existing.URL = campaign.URL
	existing.Image = campaign.Image
	existing.FundingGoal = campaign.FundingGoal
	existing.TotalRaised = campaign.TotalRaised
	existing.IsCollected = campaign.IsCollected
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) ListPendingCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.selectCampaigns(func(c *models.Campaign) bool { return c.IsPending }), nil
}

func (r *MemoryRepository) ListExpiredUncollectedCampaigns(ctx context.Context, tip uint64) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.selectCampaigns(func(c *models.Campaign) bool {
		return c.ChainID != nil && !c.IsCollected && c.ExpirationCheckpoint <= tip
	}), nil
}

func (r *MemoryRepository) MarkCampaignSettled(ctx context.Context, id int64, chainID uint64, expirationCheckpoint uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	campaign.IsPending = false
	campaign.ChainID = &chainID
	campaign.ExpirationCheckpoint = expirationCheckpoint
	campaign.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) MarkCampaignFailed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	campaign.IsPending = false
	campaign.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) MarkCampaignCollected(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return ErrNotFound
	}
	campaign.IsCollected = true
	campaign.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) AddContribution(ctx context.Context, contribution *models.Contribution) (*models.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := contributionKey{contribution.CampaignID, contribution.Principal}

	existing, ok := r.contributions[key]
	if ok {
		existing.Amount += contribution.Amount
		existing.UpdatedAt = now
	} else {
		saved := *contribution
		saved.IsRefunded = false
		saved.CreatedAt = now
		saved.UpdatedAt = now
		r.contributions[key] = &saved
		existing = &saved
	}

	if campaign, ok := r.campaigns[contribution.CampaignID]; ok {
		campaign.TotalRaised += contribution.Amount
		campaign.UpdatedAt = now
	}

	out := *existing
	return &out, nil
}

func (r *MemoryRepository) GetContribution(ctx context.Context, campaignID int64, principal string) (*models.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contribution, ok := r.contributions[contributionKey{campaignID, principal}]
	if !ok {
		return nil, ErrNotFound
	}
	out := *contribution
	return &out, nil
}

func (r *MemoryRepository) ListUnrefundedContributions(ctx context.Context, campaignID int64) ([]*models.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var contributions []*models.Contribution
	for key, contribution := range r.contributions {
		if key.campaignID == campaignID && !contribution.IsRefunded {
			out := *contribution
			contributions = append(contributions, &out)
		}
	}
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].Principal < contributions[j].Principal
	})
	return contributions, nil
}

func (r *MemoryRepository) MarkContributionRefunded(ctx context.Context, campaignID int64, principal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contribution, ok := r.contributions[contributionKey{campaignID, principal}]
	if !ok {
		return ErrNotFound
	}
	contribution.IsRefunded = true
	contribution.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

// selectCampaigns returns copies of matching rows ordered by mirror id.
// Callers must hold r.mu.
func (r *MemoryRepository) selectCampaigns(match func(*models.Campaign) bool) []*models.Campaign {
	var campaigns []*models.Campaign
	for _, campaign := range r.campaigns {
		if match(campaign) {
			out := *campaign
			campaigns = append(campaigns, &out)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].ID < campaigns[j].ID
	})
	return campaigns
}

package storage

import (
	"context"
	"errors"

	"fundsync/internal/models"
)

// ErrNotFound is returned when a requested mirror row does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the mirror store operations. Every write is scoped to a
// single campaign or contribution row; no cross-row transactions are needed
// because each update is derived from re-queryable ledger truth and is
// naturally idempotent.
type Repository interface {
	// Campaigns
	CreateCampaign(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*models.Campaign, error)
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	UpdateCampaign(ctx context.Context, campaign *models.Campaign) error
	ListPendingCampaigns(ctx context.Context) ([]*models.Campaign, error)
	ListExpiredUncollectedCampaigns(ctx context.Context, tip uint64) ([]*models.Campaign, error)

	// Settlement and expiry updates, each scoped to one campaign row
	MarkCampaignSettled(ctx context.Context, id int64, chainID uint64, expirationCheckpoint uint64) error
	MarkCampaignFailed(ctx context.Context, id int64) error
	MarkCampaignCollected(ctx context.Context, id int64) error

	// Contributions
	AddContribution(ctx context.Context, contribution *models.Contribution) (*models.Contribution, error)
	GetContribution(ctx context.Context, campaignID int64, principal string) (*models.Contribution, error)
	ListUnrefundedContributions(ctx context.Context, campaignID int64) ([]*models.Contribution, error)
	MarkContributionRefunded(ctx context.Context, campaignID int64, principal string) error

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"fundsync/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
	}, nil
}

// InitSchema creates the mirror tables if they do not exist. Schema
// evolution beyond this bootstrap is handled outside the application.
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS campaigns (
			id BIGSERIAL PRIMARY KEY,
			submission_ref TEXT NOT NULL,
			is_pending BOOLEAN NOT NULL DEFAULT TRUE,
			chain_id BIGINT,
			owner TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			expiration_checkpoint BIGINT NOT NULL DEFAULT 0,
			funding_goal BIGINT NOT NULL,
			total_raised BIGINT NOT NULL DEFAULT 0,
			is_collected BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS contributions (
			campaign_id BIGINT NOT NULL REFERENCES campaigns(id),
			principal TEXT NOT NULL,
			amount BIGINT NOT NULL,
			is_refunded BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (campaign_id, principal)
		);
	`

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

const campaignColumns = `
	id, submission_ref, is_pending, chain_id, owner, title, description,
	url, image, expiration_checkpoint, funding_goal, total_raised,
	is_collected, created_at, updated_at
`

// CreateCampaign inserts a new (typically pending) mirror row and returns it
// with the assigned mirror id.
func (r *PostgresRepository) CreateCampaign(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	query := `
		INSERT INTO campaigns (
			submission_ref, is_pending, chain_id, owner, title, description,
			url, image, expiration_checkpoint, funding_goal, total_raised,
			is_collected, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING ` + campaignColumns

	row := r.pool.QueryRow(ctx, query,
		campaign.SubmissionRef,
		campaign.IsPending,
		campaign.ChainID,
		campaign.Owner,
		campaign.Title,
		campaign.Description,
		campaign.URL,
		campaign.Image,
		campaign.ExpirationCheckpoint,
		campaign.FundingGoal,
		campaign.TotalRaised,
		campaign.IsCollected,
	)

	created, err := scanCampaign(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return created, nil
}

// GetCampaign retrieves a campaign mirror row by mirror id
func (r *PostgresRepository) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return campaign, nil
}

// ListCampaigns lists all campaign mirror rows, newest first
func (r *PostgresRepository) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC`
	return r.queryCampaigns(ctx, query)
}

// UpdateCampaign writes the mutable fields of one campaign row
func (r *PostgresRepository) UpdateCampaign(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE campaigns
		SET title = $2, description = $3, url = $4, image = $5,
			funding_goal = $6, total_raised = $7, is_collected = $8,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		campaign.ID,
		campaign.Title,
		campaign.Description,
		campaign.URL,
		campaign.Image,
		campaign.FundingGoal,
		campaign.TotalRaised,
		campaign.IsCollected,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingCampaigns lists rows whose submission outcome is not yet known
func (r *PostgresRepository) ListPendingCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE is_pending = TRUE ORDER BY id ASC`
	return r.queryCampaigns(ctx, query)
}

// ListExpiredUncollectedCampaigns lists ledger-confirmed campaigns whose
// expiration checkpoint is at or before tip and that were not yet collected
func (r *PostgresRepository) ListExpiredUncollectedCampaigns(ctx context.Context, tip uint64) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE chain_id IS NOT NULL
		AND is_collected IS NOT TRUE
		AND expiration_checkpoint <= $1
		ORDER BY id ASC
	`
	return r.queryCampaigns(ctx, query, tip)
}

// MarkCampaignSettled records a confirmed submission: the ledger-assigned id
// and the canonical expiration checkpoint, with the pending flag cleared
func (r *PostgresRepository) MarkCampaignSettled(ctx context.Context, id int64, chainID uint64, expirationCheckpoint uint64) error {
	query := `
		UPDATE campaigns
		SET is_pending = FALSE, chain_id = $2, expiration_checkpoint = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, chainID, expirationCheckpoint)
	if err != nil {
		return fmt.Errorf("failed to mark campaign settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCampaignFailed clears the pending flag without confirming a ledger id
func (r *PostgresRepository) MarkCampaignFailed(ctx context.Context, id int64) error {
	query := `UPDATE campaigns SET is_pending = FALSE, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCampaignCollected records that the pooled funds were released
func (r *PostgresRepository) MarkCampaignCollected(ctx context.Context, id int64) error {
	query := `UPDATE campaigns SET is_collected = TRUE, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark campaign collected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const contributionColumns = `
	campaign_id, principal, amount, is_refunded, created_at, updated_at
`

// AddContribution upserts a contribution row, accumulating the amount when
// the same principal pledges again, and bumps the campaign's raised total
func (r *PostgresRepository) AddContribution(ctx context.Context, contribution *models.Contribution) (*models.Contribution, error) {
	query := `
		INSERT INTO contributions (campaign_id, principal, amount, is_refunded, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
		ON CONFLICT (campaign_id, principal) DO UPDATE
			SET amount = contributions.amount + EXCLUDED.amount,
			updated_at = NOW()
		RETURNING ` + contributionColumns

	row := r.pool.QueryRow(ctx, query,
		contribution.CampaignID,
		contribution.Principal,
		contribution.Amount,
	)

	saved, err := scanContribution(row)
	if err != nil {
		return nil, fmt.Errorf("failed to add contribution: %w", err)
	}

	bump := `
		UPDATE campaigns
		SET total_raised = total_raised + $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.pool.Exec(ctx, bump, contribution.CampaignID, contribution.Amount); err != nil {
		return nil, fmt.Errorf("failed to update campaign total: %w", err)
	}

	return saved, nil
}

// GetContribution retrieves one contribution row
func (r *PostgresRepository) GetContribution(ctx context.Context, campaignID int64, principal string) (*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE campaign_id = $1 AND principal = $2`

	contribution, err := scanContribution(r.pool.QueryRow(ctx, query, campaignID, principal))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return contribution, nil
}

// ListUnrefundedContributions lists a campaign's contributions that have not
// been refunded yet
func (r *PostgresRepository) ListUnrefundedContributions(ctx context.Context, campaignID int64) ([]*models.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE campaign_id = $1
		AND is_refunded IS NOT TRUE
		ORDER BY principal ASC
	`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unrefunded contributions: %w", err)
	}
	defer rows.Close()

	var contributions []*models.Contribution
	for rows.Next() {
		contribution, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, contribution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}

	return contributions, nil
}

// MarkContributionRefunded records one successful refund
func (r *PostgresRepository) MarkContributionRefunded(ctx context.Context, campaignID int64, principal string) error {
	query := `
		UPDATE contributions
		SET is_refunded = TRUE, updated_at = NOW()
		WHERE campaign_id = $1 AND principal = $2
	`

	tag, err := r.pool.Exec(ctx, query, campaignID, principal)
	if err != nil {
		return fmt.Errorf("failed to mark contribution refunded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) queryCampaigns(ctx context.Context, query string, args ...any) ([]*models.Campaign, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var campaign models.Campaign

	err := row.Scan(
		&campaign.ID,
		&campaign.SubmissionRef,
		&campaign.IsPending,
		&campaign.ChainID,
		&campaign.Owner,
		&campaign.Title,
		&campaign.Description,
		&campaign.URL,
		&campaign.Image,
		&campaign.ExpirationCheckpoint,
		&campaign.FundingGoal,
		&campaign.TotalRaised,
		&campaign.IsCollected,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &campaign, nil
}

func scanContribution(row pgx.Row) (*models.Contribution, error) {
	var contribution models.Contribution

	err := row.Scan(
		&contribution.CampaignID,
		&contribution.Principal,
		&contribution.Amount,
		&contribution.IsRefunded,
		&contribution.CreatedAt,
		&contribution.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &contribution, nil
}

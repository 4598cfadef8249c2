// Package reconciler keeps the mirror store honest against the escrow ledger
// program. One run per new checkpoint: first settle pending campaign
// submissions, then detect expired campaigns and drive release-to-owner or
// refund-all-contributors against the ledger.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fundsync/internal/chain"
	"fundsync/internal/metrics"
	"fundsync/internal/models"
	"fundsync/internal/storage"
)

// ErrRunInProgress is returned when Run is invoked while another run is
// active. Runs are serialized; the caller simply waits for the next
// checkpoint notification.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

// Engine reconciles the mirror store with the ledger.
type Engine struct {
	ledger     chain.Ledger
	repository storage.Repository

	mu sync.Mutex // held for the duration of a run
}

// New creates an Engine over the injected ledger capability and mirror store.
func New(ledger chain.Ledger, repository storage.Repository) *Engine {
	return &Engine{
		ledger:     ledger,
		repository: repository,
	}
}

// Run executes one reconciliation pass: settlement, then expiry handling.
// It is idempotent: every mirror update is derived from re-queryable ledger
// truth, and the ledger operations reject duplicates (already-refunded,
// already-collected), so an interrupted run simply leaves unresolved items
// for the next checkpoint.
//
// A failure to settle a just-confirmed campaign or to read the checkpoint
// tip is fatal to the run and surfaced; an individual release or refund
// failure is logged and skipped.
func (e *Engine) Run(ctx context.Context) error {
	if !e.mu.TryLock() {
		return ErrRunInProgress
	}
	defer e.mu.Unlock()

	start := time.Now()

	err := e.run(ctx)

	metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReconciliationRuns.WithLabelValues("error").Inc()
		return err
	}
	metrics.ReconciliationRuns.WithLabelValues("ok").Inc()
	return nil
}

func (e *Engine) run(ctx context.Context) error {
	if err := e.settlePending(ctx); err != nil {
		return fmt.Errorf("settlement pass: %w", err)
	}
	if err := e.closeExpired(ctx); err != nil {
		return fmt.Errorf("expiry pass: %w", err)
	}
	return nil
}

// settlePending resolves mirror rows whose open-campaign submission outcome
// is not yet known.
func (e *Engine) settlePending(ctx context.Context) error {
	pending, err := e.repository.ListPendingCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending campaigns: %w", err)
	}
	metrics.PendingCampaigns.Set(float64(len(pending)))

	for _, campaign := range pending {
		submission, err := e.ledger.GetSubmission(ctx, campaign.SubmissionRef)
		if err != nil {
			// Outcome unknown; retry on the next checkpoint.
			slog.Warn("Submission lookup failed, skipping",
				"campaign_id", campaign.ID,
				"submission_ref", campaign.SubmissionRef,
				"error", err,
			)
			continue
		}

		switch submission.State {
		case chain.SubmissionPending:
			continue

		case chain.SubmissionFailed:
			if err := e.repository.MarkCampaignFailed(ctx, campaign.ID); err != nil {
				slog.Error("Failed to mark campaign failed",
					"campaign_id", campaign.ID,
					"error", err,
				)
				metrics.ErrorsTotal.WithLabelValues("reconciler").Inc()
				continue
			}
			metrics.CampaignsSettled.WithLabelValues("failed").Inc()
			slog.Info("Campaign submission failed on ledger",
				"campaign_id", campaign.ID,
				"submission_ref", campaign.SubmissionRef,
			)

		case chain.SubmissionSucceeded:
			// The mirror must carry the same expiration checkpoint as the
			// ledger, so it is re-queried here rather than derived locally.
			// Expiry detection depends on it; a failure poisons the whole
			// run and is surfaced rather than swallowed.
			confirmed, err := e.ledger.GetCampaign(ctx, submission.CampaignID)
			if err != nil {
				return fmt.Errorf("failed to enrich confirmed campaign %d (ledger id %d): %w",
					campaign.ID, submission.CampaignID, err)
			}

			if err := e.repository.MarkCampaignSettled(ctx, campaign.ID, submission.CampaignID, confirmed.ExpirationCheckpoint); err != nil {
				return fmt.Errorf("failed to record settled campaign %d: %w", campaign.ID, err)
			}
			metrics.CampaignsSettled.WithLabelValues("confirmed").Inc()
			slog.Info("Campaign confirmed on ledger",
				"campaign_id", campaign.ID,
				"chain_id", submission.CampaignID,
				"expiration_checkpoint", confirmed.ExpirationCheckpoint,
			)
		}
	}

	return nil
}

// closeExpired settles every confirmed, uncollected campaign whose expiration
// checkpoint has passed: release to the owner when the goal was met,
// otherwise refund each contributor.
func (e *Engine) closeExpired(ctx context.Context) error {
	tip, err := e.ledger.CurrentCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("failed to get checkpoint tip: %w", err)
	}

	expired, err := e.repository.ListExpiredUncollectedCampaigns(ctx, tip)
	if err != nil {
		return fmt.Errorf("failed to list expired campaigns: %w", err)
	}

	for _, campaign := range expired {
		if campaign.ChainID == nil {
			continue
		}

		if campaign.TotalRaised >= campaign.FundingGoal {
			e.releaseCampaign(ctx, campaign)
		} else {
			e.refundContributors(ctx, campaign)
		}
	}

	return nil
}

// releaseCampaign pays the pooled balance to the owner. Failure is logged and
// skipped; the campaign stays eligible for the next run.
func (e *Engine) releaseCampaign(ctx context.Context, campaign *models.Campaign) {
	if err := e.ledger.Release(ctx, *campaign.ChainID); err != nil {
		slog.Error("Release failed, moving to next campaign",
			"campaign_id", campaign.ID,
			"chain_id", *campaign.ChainID,
			"error", err,
		)
		metrics.ErrorsTotal.WithLabelValues("reconciler").Inc()
		return
	}

	if err := e.repository.MarkCampaignCollected(ctx, campaign.ID); err != nil {
		// The ledger already rejects a second release with already-collected,
		// so a lost mirror write here is safe to leave for the next run.
		slog.Error("Failed to mark campaign collected",
			"campaign_id", campaign.ID,
			"error", err,
		)
		metrics.ErrorsTotal.WithLabelValues("reconciler").Inc()
		return
	}

	metrics.CampaignsReleased.Inc()
	slog.Info("Campaign funds released to owner",
		"campaign_id", campaign.ID,
		"chain_id", *campaign.ChainID,
		"total_raised", campaign.TotalRaised,
	)
}

// refundContributors issues one refund call per unrefunded contribution,
// concurrently and with no ordering guarantee. Each call succeeds or fails
// on its own: one uncooperative refund target must never prevent any other
// contributor from being refunded. Failed refunds stay unrefunded in the
// mirror and are retried on a later checkpoint's run.
func (e *Engine) refundContributors(ctx context.Context, campaign *models.Campaign) {
	contributions, err := e.repository.ListUnrefundedContributions(ctx, campaign.ID)
	if err != nil {
		slog.Error("Failed to list unrefunded contributions",
			"campaign_id", campaign.ID,
			"error", err,
		)
		metrics.ErrorsTotal.WithLabelValues("reconciler").Inc()
		return
	}
	if len(contributions) == 0 {
		return
	}

	chainID := *campaign.ChainID
	metrics.RefundFanoutSize.Observe(float64(len(contributions)))

	outcomes := fanOut(ctx, contributions, func(ctx context.Context, contribution *models.Contribution) error {
		if err := e.ledger.Refund(ctx, chainID, contribution.Principal); err != nil {
			return err
		}
		return e.repository.MarkContributionRefunded(ctx, campaign.ID, contribution.Principal)
	})

	refunded := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			slog.Error("Refund failed, contribution stays eligible",
				"campaign_id", campaign.ID,
				"chain_id", chainID,
				"principal", outcome.Item.Principal,
				"error", outcome.Err,
			)
			metrics.RefundsIssued.WithLabelValues("error").Inc()
			continue
		}
		refunded++
		metrics.RefundsIssued.WithLabelValues("ok").Inc()
	}

	slog.Info("Refund fan-out completed",
		"campaign_id", campaign.ID,
		"chain_id", chainID,
		"refunded", refunded,
		"failed", len(outcomes)-refunded,
	)
}

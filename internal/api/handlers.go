package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fundsync/internal/integrity"
	"fundsync/internal/metrics"
	"fundsync/internal/models"
	"fundsync/internal/reconciler"
	"fundsync/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	info := map[string]interface{}{
		"service":     "Fundsync",
		"version":     "1.0.0",
		"description": "Crowdfunding escrow mirror and reconciliation service",
		"endpoints": map[string]string{
			"GET /":                            "This page - Service information",
			"GET /health":                      "Health check endpoint",
			"GET /metrics":                     "Prometheus metrics for monitoring",
			"GET /campaigns":                   "List all campaigns",
			"POST /campaigns":                  "Open a new campaign",
			"GET /campaigns/{id}":              "Get campaign details with ledger funding totals",
			"PUT /campaigns/{id}":              "Edit campaign metadata (owner only)",
			"POST /contributions":              "Pledge to a campaign",
			"GET /campaigns/{id}/contributions/{principal}": "Get one account's contribution",
			"POST /webhooks/new-checkpoint":    "Trigger a reconciliation run",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleHealth returns health status
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repository.Ping(r.Context()); err != nil {
		s.sendError(w, "Mirror store unhealthy", http.StatusServiceUnavailable)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "fundsync",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// CAMPAIGN ENDPOINTS
// =============================================================================

type openCampaignRequest struct {
	Owner                 string `json:"owner"`
	Title                 string `json:"title"`
	Description           string `json:"description"`
	URL                   string `json:"url,omitempty"`
	Image                 string `json:"image,omitempty"`
	FundingGoal           uint64 `json:"funding_goal"`
	DurationInCheckpoints uint64 `json:"duration_in_checkpoints"`
}

type editCampaignRequest struct {
	Caller      string `json:"caller"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Image       string `json:"image,omitempty"`
}

type contributeRequest struct {
	CampaignID int64  `json:"campaign_id"`
	Principal  string `json:"principal"`
	Amount     uint64 `json:"amount"`
}

// handleListCampaigns lists all mirror campaigns
// GET /campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.repository.ListCampaigns(r.Context())
	if err != nil {
		slog.Error("Failed to list campaigns", "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.CampaignListResponse{
		Campaigns: campaigns,
		Total:     len(campaigns),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleOpenCampaign submits an open-campaign call to the ledger and inserts
// the optimistic pending mirror row. The row carries no ledger id or
// expiration yet; reconciliation fills those in once the submission settles.
// POST /campaigns
func (s *Server) handleOpenCampaign(w http.ResponseWriter, r *http.Request) {
	var req openCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validateOpenRequest(&req); msg != "" {
		s.sendError(w, msg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// The content hash is fixed here, at open time, and never changes on the
	// ledger afterwards.
	dataHash := integrity.Hash(req.Title, req.Description, req.URL, req.Image)

	ref, err := s.ledger.SubmitOpen(ctx, openParams(&req, dataHash))
	if err != nil {
		slog.Error("Open-campaign submission failed", "owner", req.Owner, "error", err)
		metrics.ErrorsTotal.WithLabelValues("api").Inc()
		s.sendLedgerError(w, err)
		return
	}

	campaign, err := s.repository.CreateCampaign(ctx, &models.Campaign{
		SubmissionRef: ref,
		IsPending:     true,
		Owner:         req.Owner,
		Title:         req.Title,
		Description:   req.Description,
		URL:           req.URL,
		Image:         req.Image,
		FundingGoal:   req.FundingGoal,
	})
	if err != nil {
		slog.Error("Failed to insert pending campaign",
			"submission_ref", ref,
			"error", err,
		)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("Campaign submitted",
		"campaign_id", campaign.ID,
		"submission_ref", ref,
		"owner", req.Owner,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

// handleGetCampaign returns the mirror row enriched with the ledger's funding
// totals and the data-integrity verdict. Ledger enrichment is best effort;
// the mirror data is served even when the ledger is unreachable.
// GET /campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseCampaignID(idStr)
	if !ok {
		s.sendError(w, "Invalid campaign ID", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	campaign, err := s.repository.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Campaign not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get campaign", "campaign_id", id, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.CampaignDetailsResponse{Campaign: campaign}

	if campaign.Confirmed() {
		totals, err := s.ledger.GetFundingTotals(ctx, *campaign.ChainID)
		if err != nil {
			slog.Error("Failed to get funding totals", "campaign_id", id, "error", err)
		} else {
			response.FundingInfo = &models.FundingInfo{
				Amount:           totals.Amount,
				NumContributions: totals.NumContributions,
				IsCollected:      totals.IsCollected,
			}
		}

		ledgerCampaign, err := s.ledger.GetCampaign(ctx, *campaign.ChainID)
		if err != nil {
			slog.Error("Failed to get ledger campaign", "campaign_id", id, "error", err)
		} else {
			response.IsDataValidatedOnChain = integrity.Verify(ledgerCampaign.DataHash,
				campaign.Title, campaign.Description, campaign.URL, campaign.Image)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleEditCampaign edits the user-facing metadata on both ledger and
// mirror. The ledger enforces ownership; a non-owner caller gets 403. The
// ledger-stored content hash is carried over unchanged, so edited campaigns
// read as not validated on-chain afterwards.
// PUT /campaigns/{id}
func (s *Server) handleEditCampaign(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseCampaignID(idStr)
	if !ok {
		s.sendError(w, "Invalid campaign ID", http.StatusBadRequest)
		return
	}

	var req editCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validateEditRequest(&req); msg != "" {
		s.sendError(w, msg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	campaign, err := s.repository.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Campaign not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get campaign", "campaign_id", id, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !campaign.Confirmed() {
		s.sendError(w, "Campaign confirmation pending, try again later", http.StatusConflict)
		return
	}

	ledgerCampaign, err := s.ledger.GetCampaign(ctx, *campaign.ChainID)
	if err != nil {
		slog.Error("Failed to get ledger campaign", "campaign_id", id, "error", err)
		s.sendLedgerError(w, err)
		return
	}

	if err := s.ledger.EditMetadata(ctx, req.Caller, *campaign.ChainID, req.Title, ledgerCampaign.DataHash); err != nil {
		s.sendLedgerError(w, err)
		return
	}

	campaign.Title = req.Title
	campaign.Description = req.Description
	campaign.URL = req.URL
	campaign.Image = req.Image
	if err := s.repository.UpdateCampaign(ctx, campaign); err != nil {
		slog.Error("Failed to update mirror campaign", "campaign_id", id, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("Campaign metadata edited", "campaign_id", id, "caller", req.Caller)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

// =============================================================================
// CONTRIBUTION ENDPOINTS
// =============================================================================

// handleContribute submits a pledge to the ledger, then accumulates the
// mirror contribution row. Pending campaigns have no ledger id yet and must
// not accept contributions.
// POST /contributions
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validateContributeRequest(&req); msg != "" {
		s.sendError(w, msg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	campaign, err := s.repository.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Campaign not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get campaign", "campaign_id", req.CampaignID, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !campaign.Confirmed() {
		s.sendError(w, "Campaign confirmation pending, try again later", http.StatusConflict)
		return
	}

	if err := s.ledger.Contribute(ctx, req.Principal, *campaign.ChainID, req.Amount); err != nil {
		s.sendLedgerError(w, err)
		return
	}

	contribution, err := s.repository.AddContribution(ctx, &models.Contribution{
		CampaignID: req.CampaignID,
		Principal:  req.Principal,
		Amount:     req.Amount,
	})
	if err != nil {
		// The pledge was accepted on the ledger; only the mirror write was
		// lost. The next campaign read still shows the ledger totals.
		slog.Error("Failed to record contribution in mirror",
			"campaign_id", req.CampaignID,
			"principal", req.Principal,
			"error", err,
		)
		metrics.ErrorsTotal.WithLabelValues("api").Inc()
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("Contribution accepted",
		"campaign_id", req.CampaignID,
		"principal", req.Principal,
		"amount", req.Amount,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(contribution)
}

// handleGetContribution returns one account's mirror contribution row
// cross-checked against the ledger.
// GET /campaigns/{id}/contributions/{principal}
func (s *Server) handleGetContribution(w http.ResponseWriter, r *http.Request, idStr, principal string) {
	id, ok := parseCampaignID(idStr)
	if !ok {
		s.sendError(w, "Invalid campaign ID", http.StatusBadRequest)
		return
	}
	if !validPrincipal(principal) {
		s.sendError(w, "Invalid principal", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	campaign, err := s.repository.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Campaign not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get campaign", "campaign_id", id, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	contribution, err := s.repository.GetContribution(ctx, id, principal)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.sendError(w, "Contribution not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get contribution", "campaign_id", id, "principal", principal, "error", err)
		s.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := models.ContributionDetailsResponse{
		Contribution: contribution,
		LedgerAmount: contribution.Amount,
		IsRefunded:   contribution.IsRefunded,
	}

	if campaign.Confirmed() {
		info, err := s.ledger.GetContributionInfo(ctx, *campaign.ChainID, principal)
		if err != nil {
			slog.Error("Failed to get ledger contribution", "campaign_id", id, "principal", principal, "error", err)
		} else {
			response.LedgerAmount = info.Amount
			response.IsRefunded = info.IsRefunded
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// =============================================================================
// RECONCILIATION TRIGGER
// =============================================================================

// handleNewCheckpoint runs one reconciliation pass. The caller only learns
// pass/fail; a fatal run is retried wholesale on the next notification.
// POST /webhooks/new-checkpoint
func (s *Server) handleNewCheckpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.reconciler.Run(r.Context()); err != nil {
		if errors.Is(err, reconciler.ErrRunInProgress) {
			s.sendError(w, "Reconciliation already running, try again later", http.StatusConflict)
			return
		}
		slog.Error("Webhook-triggered reconciliation failed", "error", err)
		s.sendError(w, "Reconciliation failed, try again later", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// sendError sends a JSON error response
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

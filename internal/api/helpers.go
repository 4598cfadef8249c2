package api

import (
	"net/http"
	"strconv"

	"fundsync/internal/chain"
	"fundsync/internal/escrow"

	"github.com/stellar/go/strkey"
)

// parseCampaignID parses a mirror campaign id from a path segment.
func parseCampaignID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// validPrincipal reports whether s is a well-formed account address.
func validPrincipal(s string) bool {
	return strkey.IsValidEd25519PublicKey(s)
}

func validateOpenRequest(req *openCampaignRequest) string {
	if !validPrincipal(req.Owner) {
		return "Invalid owner principal"
	}
	if req.Title == "" {
		return "Title is required"
	}
	if req.FundingGoal == 0 {
		return "Funding goal must be positive"
	}
	if req.DurationInCheckpoints == 0 {
		return "Duration must be at least one checkpoint"
	}
	return ""
}

func validateEditRequest(req *editCampaignRequest) string {
	if !validPrincipal(req.Caller) {
		return "Invalid caller principal"
	}
	if req.Title == "" {
		return "Title is required"
	}
	return ""
}

func validateContributeRequest(req *contributeRequest) string {
	if req.CampaignID <= 0 {
		return "Invalid campaign ID"
	}
	if !validPrincipal(req.Principal) {
		return "Invalid principal"
	}
	if req.Amount == 0 {
		return "Amount must be positive"
	}
	return ""
}

func openParams(req *openCampaignRequest, dataHash string) chain.OpenParams {
	return chain.OpenParams{
		Owner:                 req.Owner,
		Title:                 req.Title,
		FundingGoal:           req.FundingGoal,
		DurationInCheckpoints: req.DurationInCheckpoints,
		DataHash:              dataHash,
	}
}

// ruleViolationMessage maps a ledger rule violation to user phrasing.
// Only stable, user-meaningful conditions pass through; everything else,
// including transport failures, is reported as "try again later" rather than
// exposing raw ledger error codes.
func ruleViolationMessage(code escrow.Code) (string, int) {
	switch code {
	case escrow.CodeNotAllowed:
		return "Not allowed", http.StatusForbidden
	case escrow.CodeCampaignNotFound:
		return "Campaign not found", http.StatusNotFound
	case escrow.CodeContributionNotFound:
		return "Contribution not found", http.StatusNotFound
	case escrow.CodeCampaignEnded:
		return "Campaign has ended", http.StatusConflict
	case escrow.CodeCampaignNotEnded:
		return "Campaign has not ended yet", http.StatusConflict
	case escrow.CodeCampaignSucceeded:
		return "Campaign met its goal, refunds are not available", http.StatusConflict
	case escrow.CodeCampaignFailed:
		return "Campaign did not meet its goal", http.StatusConflict
	case escrow.CodeAlreadyRefunded:
		return "Already refunded", http.StatusConflict
	case escrow.CodeAlreadyCollected:
		return "Already collected", http.StatusConflict
	case escrow.CodeInsufficientFunds:
		return "Insufficient funds", http.StatusBadRequest
	default:
		return "Action pending, try again later", http.StatusServiceUnavailable
	}
}

// sendLedgerError translates a ledger call failure into a user-facing error
// response.
func (s *Server) sendLedgerError(w http.ResponseWriter, err error) {
	if code, ok := escrow.CodeOf(err); ok {
		message, status := ruleViolationMessage(code)
		s.sendError(w, message, status)
		return
	}
	s.sendError(w, "Try again later", http.StatusServiceUnavailable)
}

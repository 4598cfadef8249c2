package escrow

import (
	"errors"
	"fmt"
)

// Code identifies a rule violation raised by the escrow program.
// The numeric values are part of the program's public surface and are stable;
// clients and the reconciler match on them, so they must never be renumbered.
type Code int

const (
	CodeNotAllowed           Code = 3  // caller is not the campaign owner
	CodeCampaignEnded        Code = 4  // contribution after expiration checkpoint
	CodeCampaignNotFound     Code = 5  // no campaign with the given id
	CodeCampaignNotEnded     Code = 6  // refund/release before expiration checkpoint
	CodeContributionNotFound Code = 7  // no contribution by that account
	CodeCampaignSucceeded    Code = 9  // goal met, refunds not available
	CodeAlreadyRefunded      Code = 10 // contribution was already refunded
	CodeAlreadyCollected     Code = 11 // pooled balance already released
	CodeInsufficientFunds    Code = 12 // contributor balance below pledge amount
	CodeCampaignFailed       Code = 13 // goal missed, release not available
)

// String returns a short identifier for the code, used in logs.
func (c Code) String() string {
	switch c {
	case CodeNotAllowed:
		return "not-allowed"
	case CodeCampaignEnded:
		return "campaign-ended"
	case CodeCampaignNotFound:
		return "campaign-not-found"
	case CodeCampaignNotEnded:
		return "campaign-not-ended"
	case CodeContributionNotFound:
		return "contribution-not-found"
	case CodeCampaignSucceeded:
		return "campaign-succeeded-no-refund"
	case CodeAlreadyRefunded:
		return "already-refunded"
	case CodeAlreadyCollected:
		return "already-collected"
	case CodeInsufficientFunds:
		return "insufficient-funds"
	case CodeCampaignFailed:
		return "campaign-failed"
	default:
		return fmt.Sprintf("code-%d", int(c))
	}
}

// Error is a rule violation returned by a state-changing operation or query.
// These are caused by caller intent or stale state and are never retried by
// the program itself.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("escrow: %s (u%d)", e.Code, int(e.Code))
}

// newError returns the canonical error value for a code.
func newError(code Code) *Error {
	return &Error{Code: code}
}

// CodeOf extracts the rule-violation code from err.
// Returns 0, false for transport failures and other non-program errors.
func CodeOf(err error) (Code, bool) {
	if err == nil {
		return 0, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

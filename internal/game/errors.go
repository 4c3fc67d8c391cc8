package game

import "errors"

// Validation errors: rejected before any state mutation.
var (
	ErrInvalidBetTable       = errors.New("bet on the double symbol is not allowed")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrBetBelowMinimum       = errors.New("bet below minimum")
	ErrInvalidSymbolWeights  = errors.New("symbol weights must be positive and sum to 10000")
	ErrInvalidPayoutTable    = errors.New("invalid payout table")
	ErrInvalidCommissionRate = errors.New("commission rate must be 0-100")
	ErrInvalidMaxAutoSpins   = errors.New("max auto spins must be positive")
)

// Resource errors: rejected before mutation.
var (
	ErrInsufficientPool    = errors.New("insufficient pool")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrTooManyAgents       = errors.New("agent cap reached")
	ErrAgentNotFound       = errors.New("agent not found")
	ErrAgentInactive       = errors.New("agent inactive")
	ErrStakeBelowThreshold = errors.New("stake below threshold")
	ErrNoStakeToRedeem     = errors.New("no stake to redeem")
	ErrNoCommission        = errors.New("no commission to withdraw")
	ErrSettlementNotReady  = errors.New("settlement period not elapsed")
)

// Arithmetic errors abort the whole operation with no partial state change.
var ErrMathOverflow = errors.New("math overflow")

// Protocol errors: the pending record stays untouched so the caller can retry.
var (
	ErrOracleStale     = errors.New("oracle value unchanged since request")
	ErrPendingNotFound = errors.New("pending play not found")
	ErrPlayerMismatch  = errors.New("player does not match pending play")
	ErrEscrowMismatch  = errors.New("escrow account does not match pending play")
	ErrInvalidRoomCard = errors.New("invalid room card")
)

var ruleErrors = []error{
	ErrInvalidBetTable, ErrInvalidAmount, ErrBetBelowMinimum,
	ErrInvalidSymbolWeights, ErrInvalidPayoutTable, ErrInvalidCommissionRate,
	ErrInvalidMaxAutoSpins,
	ErrInsufficientPool, ErrInsufficientFunds, ErrTooManyAgents,
	ErrAgentNotFound, ErrAgentInactive, ErrStakeBelowThreshold,
	ErrNoStakeToRedeem, ErrNoCommission, ErrSettlementNotReady,
	ErrMathOverflow,
	ErrOracleStale, ErrPendingNotFound, ErrPlayerMismatch,
	ErrEscrowMismatch, ErrInvalidRoomCard,
}

// IsRuleError reports whether err is one of the package's sentinel errors,
// letting transports tell a rejected request from an infrastructure failure
// such as an unreachable oracle.
func IsRuleError(err error) bool {
	for _, s := range ruleErrors {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

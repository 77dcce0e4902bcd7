package domain

import "errors"

var (
	// ErrPaused rejects state-changing calls while the circuit breaker is on.
	ErrPaused = errors.New("contract paused")

	// Bookkeeping precondition violations.
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInsufficientVaultBalance = errors.New("insufficient vault balance")
	ErrInsufficientAllowance    = errors.New("insufficient allowance")
	ErrInsufficientApproval     = errors.New("insufficient stable asset approval")
	ErrNoVaultForHolder         = errors.New("no vault provisioned for holder")

	// Expiry-gated preconditions.
	ErrOptionExpired         = errors.New("option expired")
	ErrOutsideExerciseWindow = errors.New("outside exercise window")

	// Administrative preconditions.
	ErrNotOwner  = errors.New("caller is not the owner")
	ErrEmptyName = errors.New("token name must not be empty")

	// External exchange outcomes.
	ErrSlippageExceeded = errors.New("slippage exceeded approved ceiling")
	ErrQuoteStale       = errors.New("quote stale: reserves moved beyond accepted drift")

	// ErrReentrant rejects a call that arrives while another ledger
	// operation is still in flight. Callers resubmit; there is no retry.
	ErrReentrant = errors.New("operation already in progress")

	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrNotFound      = errors.New("not found")
)

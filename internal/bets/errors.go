package bets

import "errors"

var (
	// ErrInvalidBet rejects non-positive wagers and wagers finer than the
	// ledger's minimum unit, before any state mutation.
	ErrInvalidBet = errors.New("invalid bet amount")

	// ErrSessionMismatch rejects bets on a session owned by another user.
	ErrSessionMismatch = errors.New("session belongs to a different user")

	// ErrLedgerFailure marks a bet whose outcome was computed but never
	// settled. The bet did not occur: no record, no balance change.
	ErrLedgerFailure = errors.New("ledger failure, bet not settled")
)

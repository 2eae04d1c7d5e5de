// Package bets orchestrates wager requests into settled, auditable bets. All
// fairness-critical computation is delegated to the pure engine and games
// functions; this package owns precondition ordering and settlement atomicity.
package bets

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairbet-labs/plinko-engine/internal/engine"
	"github.com/fairbet-labs/plinko-engine/internal/games"
	"github.com/fairbet-labs/plinko-engine/internal/store"
)

// Resolver is the single entry point that turns a wager into a settled bet.
type Resolver struct {
	db      store.DB
	entropy io.Reader
}

// NewResolver wires the resolver to its repository and random source. The
// entropy reader is injected so tests can supply fixed byte sequences.
func NewResolver(db store.DB, entropy io.Reader) *Resolver {
	return &Resolver{db: db, entropy: entropy}
}

// Receipt is returned to the caller after a settled bet. Together with the
// eventually revealed server seed it is everything a third party needs to
// re-derive the outcome.
type Receipt struct {
	Path           games.Path
	Multiplier     float64
	Payout         decimal.Decimal
	Balance        decimal.Decimal
	ServerSeedHash string
	ClientSeed     string
	Nonce          uint64
	Rows           int
	Risk           games.Risk
}

// Resolve settles one bet. Preconditions are checked in a fixed order, each
// with a distinct failure, before any state is touched: wager validity,
// session existence and ownership, configuration support, available balance.
// Exactly one nonce is consumed and at most one ledger settlement happens per
// call; a computed outcome whose settlement fails is never exposed.
func (r *Resolver) Resolve(userID, sessionID string, amount decimal.Decimal, rows int, risk games.Risk, clientSeed string) (*Receipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	session, err := r.db.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionMismatch
	}
	if session.Closed {
		return nil, store.ErrSessionClosed
	}

	if _, err := games.Multipliers(rows, risk); err != nil {
		return nil, err
	}

	user, err := r.db.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user.Balance.LessThan(amount) {
		return nil, store.ErrInsufficientBalance
	}

	nonce, err := r.db.NextNonce(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := games.Resolve(amount, rows, risk, session.ServerSeed, clientSeed, nonce)
	if err != nil {
		return nil, err
	}

	rec := &store.BetRecord{
		ID:             uuid.New().String(),
		UserID:         userID,
		SessionID:      sessionID,
		BetAmount:      amount,
		Rows:           rows,
		Risk:           string(risk),
		ClientSeed:     clientSeed,
		Nonce:          nonce,
		Path:           outcome.Path.String(),
		LandingIndex:   outcome.Path.LandingIndex,
		Multiplier:     outcome.Multiplier,
		Payout:         outcome.Payout,
		ServerSeedHash: session.ServerSeedHash,
		CreatedAt:      time.Now().UTC(),
	}

	balance, err := r.db.SettleBet(userID, amount, outcome.Payout, rec)
	if err != nil {
		// The balance may have moved between the precondition check and the
		// settlement; that is still a plain rejection, not a ledger fault.
		if errors.Is(err, store.ErrInsufficientBalance) || errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailure, err)
	}

	return &Receipt{
		Path:           outcome.Path,
		Multiplier:     outcome.Multiplier,
		Payout:         outcome.Payout,
		Balance:        balance,
		ServerSeedHash: session.ServerSeedHash,
		ClientSeed:     clientSeed,
		Nonce:          nonce,
		Rows:           rows,
		Risk:           risk,
	}, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount finer than the ledger minimum unit", ErrInvalidBet)
	}
	return nil
}

// CreateSession generates a fresh server seed, stores its session, and
// returns it. Only the seed hash may be shown to the player while the session
// is live; the commitment is available before any bet under the seed.
func (r *Resolver) CreateSession(userID string) (*store.Session, error) {
	if _, err := r.db.GetUser(userID); err != nil {
		return nil, err
	}

	seed, err := engine.GenerateServerSeed(r.entropy)
	if err != nil {
		return nil, err
	}

	session := &store.Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		ServerSeed:     seed,
		ServerSeedHash: engine.HashSeed(seed),
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.db.CreateSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

// RotateSession closes the current session, revealing its server seed for
// audit, and opens a replacement under a fresh seed. Bets on the closed
// session are refused from this point on.
func (r *Resolver) RotateSession(userID, sessionID string) (revealed, fresh *store.Session, err error) {
	session, err := r.db.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.UserID != userID {
		return nil, nil, ErrSessionMismatch
	}

	revealed, err = r.db.CloseSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	fresh, err = r.CreateSession(userID)
	if err != nil {
		return nil, nil, err
	}
	return revealed, fresh, nil
}

// SessionStatus returns the session for read-only projection. The raw seed in
// the returned value is only for closed sessions; callers expose it to the
// player exclusively after closure.
func (r *Resolver) SessionStatus(sessionID string) (*store.Session, error) {
	return r.db.GetSession(sessionID)
}

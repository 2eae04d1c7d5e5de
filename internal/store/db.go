package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrSessionClosed       = errors.New("session closed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DB is the persistence boundary of the engine: user balances, sessions with
// their secret seeds and nonce counters, and the append-only bet log.
type DB interface {
	Close() error
	Migrate() error

	CreateUser(user *User) error
	GetUser(id string) (*User, error)

	CreateSession(session *Session) error
	GetSession(id string) (*Session, error)

	// NextNonce atomically issues the next nonce for a session. The first
	// value is 0 and every call returns exactly one more than the previous:
	// no duplicates, no gaps, no reordering, even under concurrent callers.
	NextNonce(sessionID string) (uint64, error)

	// CloseSession marks a session closed and returns it. A closed session
	// refuses further nonces; its server seed may then be revealed for audit.
	CloseSession(sessionID string) (*Session, error)

	// SettleBet is one atomic unit: verify balance >= wager, debit the wager,
	// credit the payout if positive, and append the bet record. On any
	// failure nothing is applied and no record is written. Returns the new
	// balance. Settlements for different users proceed independently.
	SettleBet(userID string, wager, payout decimal.Decimal, rec *BetRecord) (decimal.Decimal, error)

	// ListBets pages the audit trail, newest first. An empty userID selects
	// every user.
	ListBets(userID string, limit, offset int) ([]BetRecord, error)
}

// User holds a ledger balance.
type User struct {
	ID        string          `json:"id" db:"id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Session owns its server seed for its whole lifetime. The seed never changes
// after creation, the nonce only increases, and once closed the session stops
// issuing nonces so the seed can be made public.
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	ServerSeed     string    `json:"-" db:"server_seed"` // secret until the session is closed
	ServerSeedHash string    `json:"server_seed_hash" db:"server_seed_hash"`
	Nonce          uint64    `json:"nonce" db:"nonce"` // next unissued value; equals bets placed
	Closed         bool      `json:"closed" db:"closed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// BetRecord is one immutable audit-trail entry. A third party replays the
// trail against revealed seeds to verify fairness; records are appended
// exactly once per settled bet and never mutated.
type BetRecord struct {
	ID             string          `json:"id" db:"id"`
	UserID         string          `json:"user_id" db:"user_id"`
	SessionID      string          `json:"session_id" db:"session_id"`
	BetAmount      decimal.Decimal `json:"bet_amount" db:"bet_amount"`
	Rows           int             `json:"rows" db:"rows"`
	Risk           string          `json:"risk" db:"risk"`
	ClientSeed     string          `json:"client_seed" db:"client_seed"`
	Nonce          uint64          `json:"nonce" db:"nonce"`
	Path           string          `json:"path" db:"path"` // compact move string, 0=left 1=right
	LandingIndex   int             `json:"landing_index" db:"landing_index"`
	Multiplier     float64         `json:"multiplier" db:"multiplier"`
	Payout         decimal.Decimal `json:"payout" db:"payout"`
	ServerSeedHash string          `json:"server_seed_hash" db:"server_seed_hash"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

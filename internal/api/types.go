package api

import (
	"github.com/shopspring/decimal"

	"github.com/fairbet-labs/plinko-engine/internal/store"
)

// CreateSessionRequest starts a new provably-fair session.
type CreateSessionRequest struct {
	UserID string `json:"userId"`
}

// SessionResponse is the public projection of a fresh session: the id and the
// commitment, never the seed.
type SessionResponse struct {
	SessionID      string `json:"sessionId"`
	ServerSeedHash string `json:"serverSeedHash"`
}

// SessionStatusResponse is a read-only session projection. ServerSeed is only
// populated once the session is closed and the seed public.
type SessionStatusResponse struct {
	SessionID      string `json:"sessionId"`
	UserID         string `json:"userId"`
	ServerSeedHash string `json:"serverSeedHash"`
	Nonce          uint64 `json:"nonce"`
	Closed         bool   `json:"closed"`
	ServerSeed     string `json:"serverSeed,omitempty"`
}

// RotateSessionRequest closes a session and reveals its seed.
type RotateSessionRequest struct {
	UserID string `json:"userId"`
}

// RotateSessionResponse carries the revealed seed of the closed session and
// the replacement session's commitment.
type RotateSessionResponse struct {
	RevealedServerSeed     string          `json:"revealedServerSeed"`
	RevealedServerSeedHash string          `json:"revealedServerSeedHash"`
	Session                SessionResponse `json:"session"`
}

// PlayRequest places one wager. ClientSeed is optional; a missing value is
// substituted with a fresh random seed before the engine is invoked.
type PlayRequest struct {
	UserID     string          `json:"userId"`
	SessionID  string          `json:"sessionId"`
	BetAmount  decimal.Decimal `json:"betAmount"`
	Rows       int             `json:"rows"`
	Risk       string          `json:"risk"`
	ClientSeed string          `json:"clientSeed,omitempty"`
}

// OutcomePayload is the resolved drop.
type OutcomePayload struct {
	LandingIndex int             `json:"landingIndex"`
	Multiplier   float64         `json:"multiplier"`
	Payout       decimal.Decimal `json:"payout"`
	Path         []int           `json:"path"`
}

// FairnessPayload is the verifiable half of a receipt.
type FairnessPayload struct {
	ServerSeedHash string `json:"serverSeedHash"`
	ClientSeed     string `json:"clientSeed"`
	Nonce          uint64 `json:"nonce"`
}

// PlayResponse is the settled bet: outcome, new balance, fairness receipt.
type PlayResponse struct {
	Outcome  OutcomePayload  `json:"outcome"`
	Balance  decimal.Decimal `json:"balance"`
	Fairness FairnessPayload `json:"fairness"`
}

// VerifyRequest recomputes a past outcome from a revealed server seed.
type VerifyRequest struct {
	ServerSeed string `json:"serverSeed"`
	ClientSeed string `json:"clientSeed"`
	Nonce      uint64 `json:"nonce"`
	Rows       int    `json:"rows"`
	Risk       string `json:"risk"`
}

// VerifyResponse is the independent recomputation an auditor compares against
// the original receipt and commitment.
type VerifyResponse struct {
	ServerSeedHash string  `json:"serverSeedHash"`
	Path           []int   `json:"path"`
	LandingIndex   int     `json:"landingIndex"`
	Multiplier     float64 `json:"multiplier"`
}

// ConfigResponse dumps the multiplier tables exactly as lookup returns them.
type ConfigResponse struct {
	Rows        []int                        `json:"rows"`
	RiskLevels  []string                     `json:"riskLevels"`
	Multipliers map[int]map[string][]float64 `json:"multipliers"`
}

// BetsResponse is one page of the audit trail, newest first.
type BetsResponse struct {
	Bets   []store.BetRecord `json:"bets"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status        string `json:"status"`
	EngineVersion string `json:"engine_version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

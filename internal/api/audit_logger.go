package api

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"

	"github.com/fairbet-labs/plinko-engine/internal/store"
)

// AuditLogger records fairness-relevant events. It never logs a raw seed:
// server seeds appear only as their public commitments and client seeds only
// hashed, so the log itself cannot leak an outcome in advance.
type AuditLogger struct {
	logger *log.Logger
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{
		logger: log.New(os.Stdout, "[AUDIT] ", log.LstdFlags|log.LUTC),
	}
}

func (a *AuditLogger) LogSessionCreated(requestID, userID, sessionID, serverSeedHash string) {
	a.logger.Printf(
		"session_created request_id=%s user=%s session=%s server_hash=%s engine_version=%s",
		requestID, userID, sessionID, serverSeedHash, EngineVersion,
	)
}

func (a *AuditLogger) LogSessionRotated(requestID, userID, oldSessionID, newSessionID, revealedHash string) {
	a.logger.Printf(
		"session_rotated request_id=%s user=%s closed_session=%s revealed_hash=%s new_session=%s engine_version=%s",
		requestID, userID, oldSessionID, revealedHash, newSessionID, EngineVersion,
	)
}

func (a *AuditLogger) LogBetSettled(requestID string, rec *store.BetRecord) {
	a.logger.Printf(
		"bet_settled request_id=%s user=%s session=%s nonce=%d rows=%d risk=%s client_hash=%s landing=%d multiplier=%f amount=%s payout=%s server_hash=%s engine_version=%s",
		requestID, rec.UserID, rec.SessionID, rec.Nonce, rec.Rows, rec.Risk,
		a.hashSeed(rec.ClientSeed), rec.LandingIndex, rec.Multiplier,
		rec.BetAmount, rec.Payout, rec.ServerSeedHash, EngineVersion,
	)
}

func (a *AuditLogger) LogBetRejected(requestID, userID, sessionID string, err error) {
	a.logger.Printf(
		"bet_rejected request_id=%s user=%s session=%s reason=%q engine_version=%s",
		requestID, userID, sessionID, err.Error(), EngineVersion,
	)
}

func (a *AuditLogger) LogVerification(requestID, serverSeedHash string, nonce uint64, landingIndex int) {
	a.logger.Printf(
		"verify_operation request_id=%s server_hash=%s nonce=%d landing=%d engine_version=%s",
		requestID, serverSeedHash, nonce, landingIndex, EngineVersion,
	)
}

func (a *AuditLogger) hashSeed(seed string) string {
	if seed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

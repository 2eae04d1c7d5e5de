package api

import (
	"fmt"

	"github.com/fairbet-labs/plinko-engine/internal/games"
)

const maxClientSeedLength = 256

// ValidatePlayRequest checks the request shape at the boundary. Deeper
// precondition checks (ownership, balance, configuration) belong to the
// resolver, which reports them with distinct error kinds.
func ValidatePlayRequest(req *PlayRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if req.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if req.BetAmount.IsZero() || req.BetAmount.IsNegative() {
		return fmt.Errorf("betAmount must be greater than 0")
	}
	if req.Rows < games.MinRows || req.Rows > games.MaxRows {
		return fmt.Errorf("rows must be between %d and %d", games.MinRows, games.MaxRows)
	}
	if _, err := games.ParseRisk(req.Risk); err != nil {
		return fmt.Errorf("risk must be one of low, medium, high")
	}
	if len(req.ClientSeed) > maxClientSeedLength {
		return fmt.Errorf("clientSeed must not exceed %d characters", maxClientSeedLength)
	}
	return nil
}

// ValidateVerifyRequest checks an offline verification request.
func ValidateVerifyRequest(req *VerifyRequest) error {
	if req.ServerSeed == "" {
		return fmt.Errorf("serverSeed is required")
	}
	if req.ClientSeed == "" {
		return fmt.Errorf("clientSeed is required")
	}
	if req.Rows < games.MinRows || req.Rows > games.MaxRows {
		return fmt.Errorf("rows must be between %d and %d", games.MinRows, games.MaxRows)
	}
	if _, err := games.ParseRisk(req.Risk); err != nil {
		return fmt.Errorf("risk must be one of low, medium, high")
	}
	return nil
}

// ValidateCreateSessionRequest checks a session-start request.
func ValidateCreateSessionRequest(req *CreateSessionRequest) error {
	if req.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	return nil
}

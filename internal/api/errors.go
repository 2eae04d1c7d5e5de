package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairbet-labs/plinko-engine/internal/bets"
	"github.com/fairbet-labs/plinko-engine/internal/engine"
	"github.com/fairbet-labs/plinko-engine/internal/games"
	"github.com/fairbet-labs/plinko-engine/internal/store"
)

// Error type taxonomy exposed in the JSON envelope.
const (
	ErrTypeValidation          = "VALIDATION_ERROR"
	ErrTypeInvalidBet          = "INVALID_BET"
	ErrTypeUserNotFound        = "USER_NOT_FOUND"
	ErrTypeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrTypeSessionMismatch     = "SESSION_MISMATCH"
	ErrTypeSessionClosed       = "SESSION_CLOSED"
	ErrTypeUnsupportedConfig   = "UNSUPPORTED_CONFIGURATION"
	ErrTypeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrTypeEntropyUnavailable  = "ENTROPY_UNAVAILABLE"
	ErrTypeLedgerFailure       = "LEDGER_FAILURE"
	ErrTypeInternal            = "INTERNAL_ERROR"
)

// APIError is the wire form of a failure.
type APIError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// classify maps a domain error to its HTTP status and envelope type. Every
// sentinel of the core taxonomy has exactly one mapping; anything unmapped is
// an internal error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, bets.ErrInvalidBet):
		return http.StatusBadRequest, ErrTypeInvalidBet
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, ErrTypeUserNotFound
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusNotFound, ErrTypeSessionNotFound
	case errors.Is(err, bets.ErrSessionMismatch):
		// Same status as an unknown session so probing cannot confirm that a
		// foreign session id exists.
		return http.StatusNotFound, ErrTypeSessionMismatch
	case errors.Is(err, store.ErrSessionClosed):
		return http.StatusConflict, ErrTypeSessionClosed
	case errors.Is(err, games.ErrUnsupportedConfiguration):
		return http.StatusBadRequest, ErrTypeUnsupportedConfig
	case errors.Is(err, store.ErrInsufficientBalance):
		return http.StatusBadRequest, ErrTypeInsufficientBalance
	case errors.Is(err, engine.ErrEntropyUnavailable):
		return http.StatusServiceUnavailable, ErrTypeEntropyUnavailable
	case errors.Is(err, bets.ErrLedgerFailure):
		return http.StatusBadGateway, ErrTypeLedgerFailure
	default:
		return http.StatusInternalServerError, ErrTypeInternal
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	requestID := middleware.GetReqID(r.Context())

	s.logger.Printf(
		"request_failed type=%s status=%d request_id=%s method=%s path=%s message=%q",
		errType, status, requestID, r.Method, r.URL.Path, message,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	envelope := errorEnvelope{Error: APIError{
		Type:      errType,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeDomainError classifies and writes a core error.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, errType := classify(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the log.
		message = "internal error"
	}

	s.writeError(w, r, status, errType, message)
}

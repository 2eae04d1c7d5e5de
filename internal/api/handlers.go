package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairbet-labs/plinko-engine/internal/engine"
	"github.com/fairbet-labs/plinko-engine/internal/games"
	"github.com/fairbet-labs/plinko-engine/internal/store"
)

const (
	defaultBetsPageSize = 50
	maxBetsPageSize     = 500
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("response_encode_failed error=%v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		EngineVersion: EngineVersion,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	risks := make([]string, 0, len(games.Risks()))
	for _, risk := range games.Risks() {
		risks = append(risks, string(risk))
	}

	multipliers := make(map[int]map[string][]float64)
	for rows, byRisk := range games.AllTables() {
		multipliers[rows] = make(map[string][]float64, len(byRisk))
		for risk, table := range byRisk {
			multipliers[rows][string(risk)] = table
		}
	}

	s.writeJSON(w, http.StatusOK, ConfigResponse{
		Rows:        games.SupportedRows(),
		RiskLevels:  risks,
		Multipliers: multipliers,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}

	if err := ValidateCreateSessionRequest(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}

	session, err := s.resolver.CreateSession(req.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.audit.LogSessionCreated(middleware.GetReqID(r.Context()), req.UserID, session.ID, session.ServerSeedHash)

	s.writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:      session.ID,
		ServerSeedHash: session.ServerSeedHash,
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.resolver.SessionStatus(sessionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp := SessionStatusResponse{
		SessionID:      session.ID,
		UserID:         session.UserID,
		ServerSeedHash: session.ServerSeedHash,
		Nonce:          session.Nonce,
		Closed:         session.Closed,
	}
	// The seed is public only after closure.
	if session.Closed {
		resp.ServerSeed = session.ServerSeed
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRotateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req RotateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "userId is required")
		return
	}

	revealed, fresh, err := s.resolver.RotateSession(req.UserID, sessionID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.audit.LogSessionRotated(middleware.GetReqID(r.Context()), req.UserID, revealed.ID, fresh.ID, revealed.ServerSeedHash)

	s.writeJSON(w, http.StatusOK, RotateSessionResponse{
		RevealedServerSeed:     revealed.ServerSeed,
		RevealedServerSeedHash: revealed.ServerSeedHash,
		Session: SessionResponse{
			SessionID:      fresh.ID,
			ServerSeedHash: fresh.ServerSeedHash,
		},
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}

	if err := ValidatePlayRequest(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}

	risk, err := games.ParseRisk(req.Risk)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// The core never fabricates a client seed; substitution is this caller's
	// job.
	clientSeed := req.ClientSeed
	if clientSeed == "" {
		clientSeed, err = engine.NewClientSeed(s.entropy)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	receipt, err := s.resolver.Resolve(req.UserID, req.SessionID, req.BetAmount, req.Rows, risk, clientSeed)
	if err != nil {
		s.audit.LogBetRejected(requestID, req.UserID, req.SessionID, err)
		s.writeDomainError(w, r, err)
		return
	}

	s.audit.LogBetSettled(requestID, &store.BetRecord{
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		BetAmount:      req.BetAmount,
		Rows:           receipt.Rows,
		Risk:           string(receipt.Risk),
		ClientSeed:     clientSeed,
		Nonce:          receipt.Nonce,
		Path:           receipt.Path.String(),
		LandingIndex:   receipt.Path.LandingIndex,
		Multiplier:     receipt.Multiplier,
		Payout:         receipt.Payout,
		ServerSeedHash: receipt.ServerSeedHash,
	})

	s.writeJSON(w, http.StatusOK, PlayResponse{
		Outcome: OutcomePayload{
			LandingIndex: receipt.Path.LandingIndex,
			Multiplier:   receipt.Multiplier,
			Payout:       receipt.Payout,
			Path:         receipt.Path.Moves,
		},
		Balance: receipt.Balance,
		Fairness: FairnessPayload{
			ServerSeedHash: receipt.ServerSeedHash,
			ClientSeed:     receipt.ClientSeed,
			Nonce:          receipt.Nonce,
		},
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "invalid JSON body")
		return
	}

	if err := ValidateVerifyRequest(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, err.Error())
		return
	}

	risk, err := games.ParseRisk(req.Risk)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	verification, err := games.Verify(req.ServerSeed, req.ClientSeed, req.Nonce, req.Rows, risk)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.audit.LogVerification(middleware.GetReqID(r.Context()), verification.ServerSeedHash, req.Nonce, verification.Path.LandingIndex)

	s.writeJSON(w, http.StatusOK, VerifyResponse{
		ServerSeedHash: verification.ServerSeedHash,
		Path:           verification.Path.Moves,
		LandingIndex:   verification.Path.LandingIndex,
		Multiplier:     verification.Multiplier,
	})
}

func (s *Server) handleListBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	limit := defaultBetsPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxBetsPageSize {
		limit = maxBetsPageSize
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, ErrTypeValidation, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	records, err := s.db.ListBets(userID, limit, offset)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, BetsResponse{
		Bets:   records,
		Limit:  limit,
		Offset: offset,
	})
}

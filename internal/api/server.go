package api

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fairbet-labs/plinko-engine/internal/bets"
	"github.com/fairbet-labs/plinko-engine/internal/store"
)

// Server handles HTTP requests around the resolution engine.
type Server struct {
	db        store.DB
	resolver  *bets.Resolver
	entropy   io.Reader
	audit     *AuditLogger
	logger    *log.Logger
	timeout   time.Duration
	startTime time.Time
}

// NewServer creates a new API server. The entropy reader supplies substitute
// client seeds; inject a fixed reader in tests.
func NewServer(db store.DB, resolver *bets.Resolver, entropy io.Reader, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		db:        db,
		resolver:  resolver,
		entropy:   entropy,
		audit:     NewAuditLogger(),
		logger:    log.New(os.Stdout, "[API] ", log.LstdFlags|log.LUTC),
		timeout:   timeout,
		startTime: time.Now(),
	}
}

// Routes sets up the HTTP routes with the standard middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)

	r.Route("/api/plinko", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Post("/session", s.handleCreateSession)
		r.Get("/session/{sessionID}", s.handleSessionStatus)
		r.Post("/session/{sessionID}/rotate", s.handleRotateSession)
		r.Post("/play", s.handlePlay)
		r.Post("/verify", s.handleVerify)
		r.Get("/bets", s.handleListBets)
	})

	return r
}

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairbet-labs/plinko-engine/internal/api"
	"github.com/fairbet-labs/plinko-engine/internal/bets"
	"github.com/fairbet-labs/plinko-engine/internal/config"
	"github.com/fairbet-labs/plinko-engine/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags|log.LUTC)

	if err := run(logger); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}

func run(logger *log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.TablesPath != "" {
		if err := config.ApplyTableOverride(cfg.TablesPath); err != nil {
			return err
		}
		logger.Printf("multiplier tables loaded from %s", cfg.TablesPath)
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seedDemoUser(db, cfg); err != nil {
		return err
	}

	resolver := bets.NewResolver(db, rand.Reader)
	server := api.NewServer(db, resolver, rand.Reader, cfg.RequestTimeout)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s (store=%s)", cfg.Addr, cfg.Store)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStore(cfg config.Config, logger *log.Logger) (store.DB, error) {
	switch cfg.Store {
	case "sqlite":
		db, err := store.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		logger.Printf("sqlite store at %s", cfg.SQLitePath)
		return db, nil
	default:
		return store.NewMemoryDB(), nil
	}
}

// seedDemoUser makes sure the starter account exists. An already-provisioned
// account keeps its balance.
func seedDemoUser(db store.DB, cfg config.Config) error {
	if cfg.DemoUser == "" {
		return nil
	}

	balance, err := decimal.NewFromString(cfg.DemoBalance)
	if err != nil {
		return err
	}

	err = db.CreateUser(&store.User{ID: cfg.DemoUser, Balance: balance})
	if err != nil && !errors.Is(err, store.ErrUserExists) {
		return err
	}
	return nil
}

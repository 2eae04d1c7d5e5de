package bets

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fairbet-labs/plinko-engine/internal/games"
	"github.com/fairbet-labs/plinko-engine/internal/store"
)

// fixedEntropy yields a deterministic, non-repeating byte stream so each
// generated seed is reproducible yet distinct.
func fixedEntropy() *bytes.Reader {
	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i * 31)
	}
	return bytes.NewReader(buf)
}

func newTestResolver(t *testing.T, userID, balance string) (*Resolver, store.DB, *store.Session) {
	t.Helper()

	db := store.NewMemoryDB()
	err := db.CreateUser(&store.User{ID: userID, Balance: decimal.RequireFromString(balance)})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	resolver := NewResolver(db, fixedEntropy())
	session, err := resolver.CreateSession(userID)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return resolver, db, session
}

func TestResolveSettlesBet(t *testing.T) {
	resolver, db, session := newTestResolver(t, "player", "100")
	amount := decimal.RequireFromString("10")

	receipt, err := resolver.Resolve("player", session.ID, amount, 8, games.RiskMedium, "my_client_seed")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if receipt.Nonce != 0 {
		t.Errorf("first nonce = %d, want 0", receipt.Nonce)
	}
	if receipt.ServerSeedHash != session.ServerSeedHash {
		t.Errorf("receipt hash %s != session commitment %s", receipt.ServerSeedHash, session.ServerSeedHash)
	}
	if receipt.Path.LandingIndex < 0 || receipt.Path.LandingIndex > 8 {
		t.Errorf("landing index %d out of range", receipt.Path.LandingIndex)
	}

	wantBalance := decimal.RequireFromString("100").Sub(amount).Add(receipt.Payout)
	if !receipt.Balance.Equal(wantBalance) {
		t.Errorf("balance = %s, want %s", receipt.Balance, wantBalance)
	}

	user, err := db.GetUser("player")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !user.Balance.Equal(wantBalance) {
		t.Errorf("stored balance = %s, want %s", user.Balance, wantBalance)
	}

	records, err := db.ListBets("player", 10, 0)
	if err != nil {
		t.Fatalf("ListBets() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("bet log has %d entries, want 1", len(records))
	}
	rec := records[0]
	if rec.Path != receipt.Path.String() || rec.Nonce != receipt.Nonce || !rec.Payout.Equal(receipt.Payout) {
		t.Errorf("record %+v does not match receipt", rec)
	}
}

// After the session is rotated and the seed revealed, the receipt must verify
// independently: the commitment matches and the path reproduces.
func TestReceiptVerifiesAgainstRevealedSeed(t *testing.T) {
	resolver, _, session := newTestResolver(t, "player", "100")
	amount := decimal.RequireFromString("2.50")

	receipt, err := resolver.Resolve("player", session.ID, amount, 12, games.RiskHigh, "verify_me")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	revealed, _, err := resolver.RotateSession("player", session.ID)
	if err != nil {
		t.Fatalf("RotateSession() error = %v", err)
	}

	verification, err := games.Verify(revealed.ServerSeed, "verify_me", receipt.Nonce, 12, games.RiskHigh)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if verification.ServerSeedHash != receipt.ServerSeedHash {
		t.Errorf("revealed seed hashes to %s, commitment was %s", verification.ServerSeedHash, receipt.ServerSeedHash)
	}
	if verification.Path.String() != receipt.Path.String() {
		t.Errorf("recomputed path %s != receipt path %s", verification.Path, receipt.Path)
	}
	if verification.Multiplier != receipt.Multiplier {
		t.Errorf("recomputed multiplier %v != receipt %v", verification.Multiplier, receipt.Multiplier)
	}
}

func TestResolvePreconditions(t *testing.T) {
	resolver, db, session := newTestResolver(t, "player", "100")
	amount := decimal.RequireFromString("10")

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "zero amount",
			run: func() error {
				_, err := resolver.Resolve("player", session.ID, decimal.Zero, 8, games.RiskLow, "c")
				return err
			},
			wantErr: ErrInvalidBet,
		},
		{
			name: "negative amount",
			run: func() error {
				_, err := resolver.Resolve("player", session.ID, decimal.RequireFromString("-5"), 8, games.RiskLow, "c")
				return err
			},
			wantErr: ErrInvalidBet,
		},
		{
			name: "sub-cent amount",
			run: func() error {
				_, err := resolver.Resolve("player", session.ID, decimal.RequireFromString("1.005"), 8, games.RiskLow, "c")
				return err
			},
			wantErr: ErrInvalidBet,
		},
		{
			name: "unknown session",
			run: func() error {
				_, err := resolver.Resolve("player", "no-such-session", amount, 8, games.RiskLow, "c")
				return err
			},
			wantErr: store.ErrSessionNotFound,
		},
		{
			name: "session owned by someone else",
			run: func() error {
				_, err := resolver.Resolve("intruder", session.ID, amount, 8, games.RiskLow, "c")
				return err
			},
			wantErr: ErrSessionMismatch,
		},
		{
			name: "unsupported rows",
			run: func() error {
				_, err := resolver.Resolve("player", session.ID, amount, 7, games.RiskLow, "c")
				return err
			},
			wantErr: games.ErrUnsupportedConfiguration,
		},
		{
			name: "unsupported risk",
			run: func() error {
				_, err := resolver.Resolve("player", session.ID, amount, 8, games.Risk("wild"), "c")
				return err
			},
			wantErr: games.ErrUnsupportedConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// None of the rejected bets may have consumed a nonce or touched state.
	status, err := resolver.SessionStatus(session.ID)
	if err != nil {
		t.Fatalf("SessionStatus() error = %v", err)
	}
	if status.Nonce != 0 {
		t.Errorf("rejected bets consumed nonces: counter = %d", status.Nonce)
	}
	records, err := db.ListBets("player", 10, 0)
	if err != nil {
		t.Fatalf("ListBets() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("rejected bets wrote %d records", len(records))
	}
}

func TestResolveInsufficientBalance(t *testing.T) {
	resolver, db, session := newTestResolver(t, "shorty", "5.00")

	_, err := resolver.Resolve("shorty", session.ID, decimal.RequireFromString("10"), 8, games.RiskLow, "c")
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}

	user, err := db.GetUser("shorty")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !user.Balance.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("balance = %s, want 5.00 unchanged", user.Balance)
	}
}

// failingLedger computes preconditions normally but cannot settle.
type failingLedger struct {
	store.DB
}

func (f *failingLedger) SettleBet(string, decimal.Decimal, decimal.Decimal, *store.BetRecord) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("disk on fire")
}

func TestResolveLedgerFailureLeavesNoTrace(t *testing.T) {
	db := store.NewMemoryDB()
	if err := db.CreateUser(&store.User{ID: "player", Balance: decimal.RequireFromString("100")}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	resolver := NewResolver(&failingLedger{DB: db}, fixedEntropy())
	session, err := resolver.CreateSession("player")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	_, err = resolver.Resolve("player", session.ID, decimal.RequireFromString("10"), 8, games.RiskLow, "c")
	if !errors.Is(err, ErrLedgerFailure) {
		t.Fatalf("error = %v, want ErrLedgerFailure", err)
	}

	user, err := db.GetUser("player")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if !user.Balance.Equal(decimal.RequireFromString("100")) {
		t.Errorf("balance = %s, want 100 unchanged", user.Balance)
	}

	records, err := db.ListBets("player", 10, 0)
	if err != nil {
		t.Fatalf("ListBets() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("unsettled bet wrote %d records", len(records))
	}
}

// Two concurrent bets on one session must receive distinct consecutive nonces.
func TestResolveConcurrentNoncesDistinct(t *testing.T) {
	resolver, _, session := newTestResolver(t, "player", "1000")
	amount := decimal.RequireFromString("1")

	const bets = 16
	var wg sync.WaitGroup
	nonces := make(chan uint64, bets)

	for i := 0; i < bets; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := resolver.Resolve("player", session.ID, amount, 8, games.RiskLow, "c")
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
				return
			}
			nonces <- receipt.Nonce
		}()
	}
	wg.Wait()
	close(nonces)

	seen := make(map[uint64]bool, bets)
	for nonce := range nonces {
		if seen[nonce] {
			t.Fatalf("nonce %d issued to two bets", nonce)
		}
		seen[nonce] = true
	}
	if len(seen) != bets {
		t.Errorf("issued %d distinct nonces, want %d", len(seen), bets)
	}
}

func TestRotateSession(t *testing.T) {
	resolver, _, session := newTestResolver(t, "player", "100")
	amount := decimal.RequireFromString("10")

	if _, err := resolver.Resolve("player", session.ID, amount, 8, games.RiskLow, "c"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	revealed, fresh, err := resolver.RotateSession("player", session.ID)
	if err != nil {
		t.Fatalf("RotateSession() error = %v", err)
	}

	if revealed.ServerSeed == "" {
		t.Error("rotation must reveal the old seed")
	}
	if !revealed.Closed {
		t.Error("old session not closed")
	}
	if fresh.ID == session.ID {
		t.Error("fresh session reuses the old id")
	}
	if fresh.ServerSeedHash == revealed.ServerSeedHash {
		t.Error("fresh session reuses the old seed")
	}
	if fresh.Nonce != 0 {
		t.Errorf("fresh session nonce = %d, want 0", fresh.Nonce)
	}

	// The closed session refuses further bets.
	_, err = resolver.Resolve("player", session.ID, amount, 8, games.RiskLow, "c")
	if !errors.Is(err, store.ErrSessionClosed) {
		t.Errorf("bet on closed session error = %v, want ErrSessionClosed", err)
	}

	// Rotating someone else's session is refused.
	if _, _, err := resolver.RotateSession("intruder", fresh.ID); !errors.Is(err, ErrSessionMismatch) {
		t.Errorf("foreign rotation error = %v, want ErrSessionMismatch", err)
	}
}

func TestCreateSessionUnknownUser(t *testing.T) {
	resolver := NewResolver(store.NewMemoryDB(), fixedEntropy())

	_, err := resolver.CreateSession("ghost")
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

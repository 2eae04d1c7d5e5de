package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite. Balances and amounts are
// stored as integer cents (the ledger's minimum unit), which keeps the
// check-and-debit a single conditional UPDATE.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection. The pragmas ride in
// the DSN so every pooled connection gets them; a plain Exec("PRAGMA ...")
// would only configure whichever connection it happened to run on, and
// unconfigured connections fail fast with SQLITE_BUSY under write contention.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations.
func (s *SQLiteDB) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			balance_cents INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			nonce INTEGER NOT NULL DEFAULT 0,
			closed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			bet_amount_cents INTEGER NOT NULL,
			board_rows INTEGER NOT NULL,
			risk TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			path TEXT NOT NULL,
			landing_index INTEGER NOT NULL,
			multiplier REAL NOT NULL,
			payout_cents INTEGER NOT NULL,
			server_seed_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user_created ON bets(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_session_nonce ON bets(session_id, nonce)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// centsFromDecimal converts an amount to integer cents; amounts finer than
// the minimum unit are a programming error at this layer.
func centsFromDecimal(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s not representable in cents", d)
	}
	return shifted.IntPart(), nil
}

func decimalFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func (s *SQLiteDB) CreateUser(user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	cents, err := centsFromDecimal(user.Balance)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO users (id, balance_cents, created_at) VALUES (?, ?, ?)`,
		user.ID, cents, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUser(id string) (*User, error) {
	var user User
	var cents int64

	err := s.db.QueryRow(
		`SELECT id, balance_cents, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &cents, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Balance = decimalFromCents(cents)
	return &user, nil
}

func (s *SQLiteDB) CreateSession(session *Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, user_id, server_seed, server_seed_hash, nonce, closed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.ServerSeed, session.ServerSeedHash,
		session.Nonce, boolToInt(session.Closed), session.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSessionExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetSession(id string) (*Session, error) {
	var session Session
	var closed int

	err := s.db.QueryRow(
		`SELECT id, user_id, server_seed, server_seed_hash, nonce, closed, created_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(
		&session.ID, &session.UserID, &session.ServerSeed, &session.ServerSeedHash,
		&session.Nonce, &closed, &session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Closed = closed != 0
	return &session, nil
}

func (s *SQLiteDB) NextNonce(sessionID string) (uint64, error) {
	// Single conditional UPDATE: issuance is atomic and totally ordered per
	// session without an explicit transaction.
	var nonce uint64
	err := s.db.QueryRow(
		`UPDATE sessions SET nonce = nonce + 1 WHERE id = ? AND closed = 0 RETURNING nonce - 1`,
		sessionID,
	).Scan(&nonce)

	if errors.Is(err, sql.ErrNoRows) {
		session, getErr := s.GetSession(sessionID)
		if getErr != nil {
			return 0, getErr
		}
		if session.Closed {
			return 0, ErrSessionClosed
		}
		return 0, fmt.Errorf("failed to issue nonce for session %s", sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to issue nonce: %w", err)
	}

	return nonce, nil
}

func (s *SQLiteDB) CloseSession(sessionID string) (*Session, error) {
	res, err := s.db.Exec(
		`UPDATE sessions SET closed = 1 WHERE id = ? AND closed = 0`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	if affected == 0 {
		session, getErr := s.GetSession(sessionID)
		if getErr != nil {
			return nil, getErr
		}
		if session.Closed {
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("failed to close session %s", sessionID)
	}

	return s.GetSession(sessionID)
}

func (s *SQLiteDB) SettleBet(userID string, wager, payout decimal.Decimal, rec *BetRecord) (decimal.Decimal, error) {
	wagerCents, err := centsFromDecimal(wager)
	if err != nil {
		return decimal.Decimal{}, err
	}
	payoutCents, err := centsFromDecimal(payout)
	if err != nil {
		return decimal.Decimal{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	// The balance check and debit are one statement, so a concurrent bet can
	// never pass the check against a stale balance.
	res, err := tx.Exec(
		`UPDATE users SET balance_cents = balance_cents - ? + ? WHERE id = ? AND balance_cents >= ?`,
		wagerCents, payoutCents, userID, wagerCents,
	)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to apply balance change: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to apply balance change: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to inspect user: %w", err)
		}
		if exists == 0 {
			return decimal.Decimal{}, ErrUserNotFound
		}
		return decimal.Decimal{}, ErrInsufficientBalance
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(
		`INSERT INTO bets (
			id, user_id, session_id, bet_amount_cents, board_rows, risk, client_seed,
			nonce, path, landing_index, multiplier, payout_cents, server_seed_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SessionID, wagerCents, rec.Rows, rec.Risk, rec.ClientSeed,
		rec.Nonce, rec.Path, rec.LandingIndex, rec.Multiplier, payoutCents,
		rec.ServerSeedHash, rec.CreatedAt,
	)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to append bet record: %w", err)
	}

	var balanceCents int64
	if err := tx.QueryRow(`SELECT balance_cents FROM users WHERE id = ?`, userID).Scan(&balanceCents); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to commit settlement: %w", err)
	}

	return decimalFromCents(balanceCents), nil
}

func (s *SQLiteDB) ListBets(userID string, limit, offset int) ([]BetRecord, error) {
	// A negative limit would mean "unbounded" to SQLite; the contract says
	// empty page instead, matching the memory backend.
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, user_id, session_id, bet_amount_cents, board_rows, risk, client_seed,
			nonce, path, landing_index, multiplier, payout_cents, server_seed_hash, created_at
		FROM bets`
	args := []any{}

	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	bets := make([]BetRecord, 0, limit)
	for rows.Next() {
		var rec BetRecord
		var wagerCents, payoutCents int64

		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.SessionID, &wagerCents, &rec.Rows, &rec.Risk,
			&rec.ClientSeed, &rec.Nonce, &rec.Path, &rec.LandingIndex, &rec.Multiplier,
			&payoutCents, &rec.ServerSeedHash, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}

		rec.BetAmount = decimalFromCents(wagerCents)
		rec.Payout = decimalFromCents(payoutCents)
		bets = append(bets, rec)
	}

	return bets, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc/sqlite surfaces constraint failures as string errors only.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryDB keeps all state in process. It is the default for tests and the
// demo configuration and carries the same atomicity guarantees as the SQLite
// implementation: nonce issuance is serialized per session and the balance
// check through debit is one critical section per user, so bets for different
// users settle in parallel.
type MemoryDB struct {
	mu       sync.RWMutex // guards the maps and the bet log
	users    map[string]*memUser
	sessions map[string]*Session
	bets     []BetRecord
}

type memUser struct {
	mu   sync.Mutex // serializes balance check through debit
	user User
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:    make(map[string]*memUser),
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryDB) Close() error   { return nil }
func (m *MemoryDB) Migrate() error { return nil }

func (m *MemoryDB) CreateUser(user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return ErrUserExists
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	m.users[user.ID] = &memUser{user: *user}
	return nil
}

func (m *MemoryDB) GetUser(id string) (*User, error) {
	m.mu.RLock()
	u, ok := m.users[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrUserNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	copied := u.user
	return &copied, nil
}

func (m *MemoryDB) CreateSession(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if _, ok := m.sessions[session.ID]; ok {
		return ErrSessionExists
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MemoryDB) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

func (m *MemoryDB) NextNonce(sessionID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if session.Closed {
		return 0, ErrSessionClosed
	}

	nonce := session.Nonce
	session.Nonce++
	return nonce, nil
}

func (m *MemoryDB) CloseSession(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Closed {
		return nil, ErrSessionClosed
	}

	session.Closed = true
	copied := *session
	return &copied, nil
}

func (m *MemoryDB) SettleBet(userID string, wager, payout decimal.Decimal, rec *BetRecord) (decimal.Decimal, error) {
	m.mu.RLock()
	u, ok := m.users[userID]
	m.mu.RUnlock()

	if !ok {
		return decimal.Decimal{}, ErrUserNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.user.Balance.LessThan(wager) {
		return decimal.Decimal{}, ErrInsufficientBalance
	}

	balance := u.user.Balance.Sub(wager)
	if payout.IsPositive() {
		balance = balance.Add(payout)
	}
	u.user.Balance = balance

	copied := *rec
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	m.bets = append(m.bets, copied)
	m.mu.Unlock()

	return balance, nil
}

func (m *MemoryDB) ListBets(userID string, limit, offset int) ([]BetRecord, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]BetRecord, 0, limit)
	skipped := 0

	// Newest first: walk the append-only log backwards.
	for i := len(m.bets) - 1; i >= 0 && len(matched) < limit; i-- {
		if userID != "" && m.bets[i].UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		matched = append(matched, m.bets[i])
	}

	return matched, nil
}

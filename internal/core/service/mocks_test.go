package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

var errBoom = errors.New("boom")

// mockRepo is an in-memory Repository with error injection.
type mockRepo struct {
	mu          sync.RWMutex
	users       map[string]*domain.User
	creds       map[string]*domain.Credential
	trades      []*domain.Trade
	deposits    []*domain.Deposit
	withdrawals []*domain.Withdrawal
	err         error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users: make(map[string]*domain.User),
		creds: make(map[string]*domain.Credential),
	}
}

func (m *mockRepo) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrUserConflict
		}
	}
	m.users[u.ID] = u.Clone()
	return nil
}

func (m *mockRepo) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (m *mockRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockRepo) UpdateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	m.users[u.ID] = u.Clone()
	return nil
}

func (m *mockRepo) ListUsers(context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) CreateCredential(_ context.Context, c *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.creds[c.ID] = c.Clone()
	return nil
}

func (m *mockRepo) GetCredential(_ context.Context, id string) (*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.creds[id]
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return c.Clone(), nil
}

func (m *mockRepo) ListCredentials(_ context.Context, userID string) ([]*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Credential
	for _, c := range m.creds {
		if c.UserID == userID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) DeleteCredential(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[id]; !ok {
		return domain.ErrCredentialNotFound
	}
	delete(m.creds, id)
	return nil
}

func (m *mockRepo) CreateTrade(_ context.Context, t *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.trades = append(m.trades, t.Clone())
	return nil
}

func (m *mockRepo) ListTrades(_ context.Context, userID string) ([]*domain.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Trade
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].UserID == userID {
			out = append(out, m.trades[i].Clone())
		}
	}
	return out, nil
}

func (m *mockRepo) CreateDeposit(_ context.Context, d *domain.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deposits = append(m.deposits, d)
	return nil
}

func (m *mockRepo) ListDeposits(_ context.Context, userID string) ([]*domain.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Deposit
	for i := len(m.deposits) - 1; i >= 0; i-- {
		if m.deposits[i].UserID == userID {
			out = append(out, m.deposits[i])
		}
	}
	return out, nil
}

func (m *mockRepo) CreateWithdrawal(_ context.Context, w *domain.Withdrawal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals = append(m.withdrawals, w)
	return nil
}

func (m *mockRepo) ListWithdrawals(_ context.Context, userID string) ([]*domain.Withdrawal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Withdrawal
	for i := len(m.withdrawals) - 1; i >= 0; i-- {
		if m.withdrawals[i].UserID == userID {
			out = append(out, m.withdrawals[i])
		}
	}
	return out, nil
}

func (m *mockRepo) Close() error { return nil }

func (m *mockRepo) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// fakeSealer reverses and tags plaintext so tests can tell blobs apart
// from inputs.
type fakeSealer struct {
	mu         sync.Mutex
	encrypts   int
	decrypts   int
	encryptErr error
	decryptErr error
}

func (f *fakeSealer) Encrypt(plaintext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.encrypts++
	if f.encryptErr != nil {
		return "", f.encryptErr
	}
	return "sealed:" + reverse(plaintext), nil
}

func (f *fakeSealer) Decrypt(blob string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrypts++
	if f.decryptErr != nil {
		return "", f.decryptErr
	}
	rest, ok := strings.CutPrefix(blob, "sealed:")
	if !ok {
		return "", errors.New("not sealed")
	}
	return reverse(rest), nil
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type published struct {
	topic   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.topic
	}
	return out
}

type fakeMetrics struct {
	mu      sync.Mutex
	logins  map[string]int
	vault   map[string]int
	signals map[string]int
	events  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		logins:  map[string]int{},
		vault:   map[string]int{},
		signals: map[string]int{},
		events:  map[string]int{},
	}
}

func (f *fakeMetrics) RecordLogin(result string) {
	f.mu.Lock()
	f.logins[result]++
	f.mu.Unlock()
}

func (f *fakeMetrics) RecordVaultOp(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.vault[op+":error"]++
		return
	}
	f.vault[op+":ok"]++
}

func (f *fakeMetrics) RecordSignal(result string) {
	f.mu.Lock()
	f.signals[result]++
	f.mu.Unlock()
}

func (f *fakeMetrics) RecordEvent(topic string, err error) {
	f.mu.Lock()
	f.events[topic]++
	f.mu.Unlock()
}

func (f *fakeMetrics) count(m map[string]int, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return m[key]
}

// fakeStateStore is a minimal defense.StateStore for the blocklist admin.
type fakeStateStore struct {
	mu      sync.Mutex
	blocked map[string]defense.BlockEntry
	err     error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{blocked: make(map[string]defense.BlockEntry)}
}

func (f *fakeStateStore) IsBlocked(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blocked[id]
	return ok, f.err
}

func (f *fakeStateStore) Block(_ context.Context, id, reason string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blocked[id]; ok {
		return false, nil
	}
	e := defense.BlockEntry{Identity: id, Reason: reason, BlockedAt: time.Now()}
	if ttl > 0 {
		e.ExpiresAt = e.BlockedAt.Add(ttl)
	}
	f.blocked[id] = e
	return true, nil
}

func (f *fakeStateStore) Unblock(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.blocked[id]; !ok {
		return domain.ErrBlockNotFound
	}
	delete(f.blocked, id)
	return nil
}

func (f *fakeStateStore) Blocked(context.Context) ([]defense.BlockEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]defense.BlockEntry, 0, len(f.blocked))
	for _, e := range f.blocked {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

func (f *fakeStateStore) Admit(context.Context, string, time.Time, time.Duration, int) (bool, error) {
	return true, nil
}

func (f *fakeStateStore) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked = make(map[string]defense.BlockEntry)
	return nil
}

// newTestAuth builds an authenticator with the cheapest bcrypt cost.
func newTestAuth(users authn.SubjectResolver) *authn.Authenticator {
	a, err := authn.New(authn.Config{
		Secret:     []byte("test-secret-0123456789abcdef0123456789"),
		BcryptCost: 4,
	}, users)
	if err != nil {
		panic(err)
	}
	return a
}

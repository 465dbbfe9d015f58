// ABOUTME: Mock Store implementation for testing
// ABOUTME: Stages transactional writes in memory and applies them on commit

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/2389/keyward/internal/account"
)

type nonceRecord struct {
	signer common.Address
	nonce  uint256.Int
}

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[common.Address]*account.Account
	nonces   map[nonceRecord]struct{}
	audit    []AuditEntry
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		accounts: make(map[common.Address]*account.Account),
		nonces:   make(map[nonceRecord]struct{}),
	}
}

// GetAccount returns a copy of the stored account.
func (m *MockStore) GetAccount(ctx context.Context, addr common.Address) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrAccountNotFound, addr.Hex())
	}
	return a.Clone(), nil
}

// NonceUsed reports whether signer has consumed nonce.
func (m *MockStore) NonceUsed(ctx context.Context, signer common.Address, nonce *uint256.Int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.nonces[nonceRecord{signer: signer, nonce: *nonce}]
	return ok, nil
}

// WithTx holds the write lock for the duration of fn and applies staged
// writes only if fn succeeds.
func (m *MockStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &mockTx{
		parent:   m,
		accounts: make(map[common.Address]*account.Account),
		nonces:   make(map[nonceRecord]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for addr, a := range tx.accounts {
		m.accounts[addr] = a
	}
	for n := range tx.nonces {
		m.nonces[n] = struct{}{}
	}
	m.audit = append(m.audit, tx.audit...)
	return nil
}

// ListAuditLog returns matching entries newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		if f.Until != nil && e.Timestamp.After(*f.Until) {
			continue
		}
		if f.Account != nil && e.Account != *f.Account {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.Method != nil && e.Method != *f.Method {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit := normalizeAuditLimit(f.Limit); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// mockTx stages writes; the parent's lock is held by WithTx.
type mockTx struct {
	parent   *MockStore
	accounts map[common.Address]*account.Account
	nonces   map[nonceRecord]struct{}
	audit    []AuditEntry
}

func (t *mockTx) lookup(addr common.Address) (*account.Account, bool) {
	if a, ok := t.accounts[addr]; ok {
		return a, true
	}
	a, ok := t.parent.accounts[addr]
	return a, ok
}

func (t *mockTx) GetAccount(ctx context.Context, addr common.Address) (*account.Account, error) {
	a, ok := t.lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", account.ErrAccountNotFound, addr.Hex())
	}
	return a.Clone(), nil
}

func (t *mockTx) NonceUsed(ctx context.Context, signer common.Address, nonce *uint256.Int) (bool, error) {
	rec := nonceRecord{signer: signer, nonce: *nonce}
	if _, ok := t.nonces[rec]; ok {
		return true, nil
	}
	_, ok := t.parent.nonces[rec]
	return ok, nil
}

func (t *mockTx) CreateAccount(ctx context.Context, a *account.Account) error {
	if _, ok := t.lookup(a.Address); ok {
		return fmt.Errorf("%w: %s", account.ErrAlreadyInitialized, a.Address.Hex())
	}
	t.accounts[a.Address] = a.Clone()
	return nil
}

func (t *mockTx) SaveAccount(ctx context.Context, a *account.Account) error {
	if _, ok := t.lookup(a.Address); !ok {
		return fmt.Errorf("%w: %s", account.ErrAccountNotFound, a.Address.Hex())
	}
	t.accounts[a.Address] = a.Clone()
	return nil
}

func (t *mockTx) ConsumeNonce(ctx context.Context, signer common.Address, nonce *uint256.Int) error {
	used, _ := t.NonceUsed(ctx, signer, nonce)
	if used {
		return fmt.Errorf("%w: %s by %s", account.ErrReplayedNonce, nonce.Dec(), signer.Hex())
	}
	t.nonces[nonceRecord{signer: signer, nonce: *nonce}] = struct{}{}
	return nil
}

func (t *mockTx) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	t.audit = append(t.audit, *e)
	return nil
}

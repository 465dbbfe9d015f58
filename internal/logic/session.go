// ABOUTME: Transaction-scoped view of accounts used while applying one operation
// ABOUTME: Caches loaded accounts and writes back the ones that were edited

package logic

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/store"
)

// Session is the working set of one store transaction. Every account is
// loaded at most once, so checks and mutations within one operation see the
// same value. It is not safe for concurrent use.
type Session struct {
	ctx    context.Context
	tx     store.Tx
	params account.Params
	now    time.Time

	accounts map[common.Address]*account.Account
	dirty    []common.Address
}

// NewSession starts a session over tx. now is fixed for the whole operation.
func NewSession(ctx context.Context, tx store.Tx, params account.Params, now time.Time) *Session {
	return &Session{
		ctx:      ctx,
		tx:       tx,
		params:   params,
		now:      now,
		accounts: make(map[common.Address]*account.Account),
	}
}

func (s *Session) Context() context.Context { return s.ctx }
func (s *Session) Tx() store.Tx             { return s.tx }
func (s *Session) Params() account.Params   { return s.params }
func (s *Session) Now() time.Time           { return s.now }

// Load returns the account at addr for reading.
// Returns account.ErrAccountNotFound if it does not exist.
func (s *Session) Load(addr common.Address) (*account.Account, error) {
	if a, ok := s.accounts[addr]; ok {
		return a, nil
	}
	a, err := s.tx.GetAccount(s.ctx, addr)
	if err != nil {
		return nil, err
	}
	s.accounts[addr] = a
	return a, nil
}

// Lookup is Load for addresses that may legitimately not be accounts.
func (s *Session) Lookup(addr common.Address) (*account.Account, bool, error) {
	a, err := s.Load(addr)
	if errors.Is(err, account.ErrAccountNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// Edit returns the account at addr and schedules it to be saved on Flush.
func (s *Session) Edit(addr common.Address) (*account.Account, error) {
	a, err := s.Load(addr)
	if err != nil {
		return nil, err
	}
	for _, d := range s.dirty {
		if d == addr {
			return a, nil
		}
	}
	s.dirty = append(s.dirty, addr)
	return a, nil
}

// Flush saves every edited account in the order it was first edited.
func (s *Session) Flush() error {
	for _, addr := range s.dirty {
		if err := s.tx.SaveAccount(s.ctx, s.accounts[addr]); err != nil {
			return err
		}
	}
	s.dirty = nil
	return nil
}

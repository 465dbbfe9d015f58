// ABOUTME: Read-only engine queries over keys, backups, timelocks, proposals and nonces
// ABOUTME: Any caller may use them; they never open a write transaction

package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/store"
)

// Account returns a snapshot of the account at addr.
func (e *Engine) Account(ctx context.Context, addr common.Address) (*account.Account, error) {
	return e.store.GetAccount(ctx, addr)
}

// Key returns the key slot at index and its role.
func (e *Engine) Key(ctx context.Context, addr common.Address, index int) (account.KeySlot, account.Role, error) {
	a, err := e.store.GetAccount(ctx, addr)
	if err != nil {
		return account.KeySlot{}, 0, err
	}
	k, role, ok := a.KeyAt(index)
	if !ok {
		return account.KeySlot{}, 0, fmt.Errorf("%w: key index %d", ErrNotFound, index)
	}
	return k, role, nil
}

// Backup returns the backup record at index.
func (e *Engine) Backup(ctx context.Context, addr common.Address, index int) (account.Backup, error) {
	a, err := e.store.GetAccount(ctx, addr)
	if err != nil {
		return account.Backup{}, err
	}
	b, ok := a.BackupAt(index)
	if !ok {
		return account.Backup{}, fmt.Errorf("%w: backup index %d", ErrNotFound, index)
	}
	return b, nil
}

// Timelock returns the pending delayed action for sel.
func (e *Engine) Timelock(ctx context.Context, addr common.Address, sel account.Selector) (account.Timelock, error) {
	a, err := e.store.GetAccount(ctx, addr)
	if err != nil {
		return account.Timelock{}, err
	}
	t, ok := a.Timelock(sel)
	if !ok {
		return account.Timelock{}, fmt.Errorf("%w: timelock %s", ErrNotFound, sel)
	}
	return t, nil
}

// Proposal returns the proposal of client keyed by proposer and sel.
func (e *Engine) Proposal(ctx context.Context, client, proposer common.Address, sel account.Selector) (account.Proposal, error) {
	a, err := e.store.GetAccount(ctx, client)
	if err != nil {
		return account.Proposal{}, err
	}
	p, ok := a.Proposal(account.ProposalKey{Proposer: proposer, Selector: sel})
	if !ok {
		return account.Proposal{}, fmt.Errorf("%w: proposal %s/%s", ErrNotFound, proposer.Hex(), sel)
	}
	return p, nil
}

// ModuleAuthorized reports the registry authorization flag of id.
func (e *Engine) ModuleAuthorized(id common.Address) bool {
	return e.registry.Authorized(id)
}

// NonceUsed reports whether signer has consumed nonce.
func (e *Engine) NonceUsed(ctx context.Context, signer common.Address, nonce *uint256.Int) (bool, error) {
	return e.store.NonceUsed(ctx, signer, nonce)
}

// AuditLog lists audit entries, newest first.
func (e *Engine) AuditLog(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error) {
	return e.store.ListAuditLog(ctx, f)
}

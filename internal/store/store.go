// ABOUTME: Store interfaces for account state, replay nonces and the audit log
// ABOUTME: All mutations happen inside WithTx so a rejected entry leaves no trace

package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/2389/keyward/internal/account"
)

// Reader is the read-only view shared by Store and Tx.
type Reader interface {
	// GetAccount returns a private copy of the account.
	// Returns account.ErrAccountNotFound if it does not exist.
	GetAccount(ctx context.Context, addr common.Address) (*account.Account, error)

	// NonceUsed reports whether signer has already consumed nonce.
	NonceUsed(ctx context.Context, signer common.Address, nonce *uint256.Int) (bool, error)
}

// Tx is a unit of work. Everything written through it commits or rolls back together.
type Tx interface {
	Reader

	// CreateAccount persists a new account.
	// Returns account.ErrAlreadyInitialized if the address is taken.
	CreateAccount(ctx context.Context, a *account.Account) error

	// SaveAccount overwrites the stored state of an existing account.
	SaveAccount(ctx context.Context, a *account.Account) error

	// ConsumeNonce records nonce as used by signer.
	// Returns account.ErrReplayedNonce if it was used before.
	ConsumeNonce(ctx context.Context, signer common.Address, nonce *uint256.Int) error

	// AppendAuditLog appends an entry that becomes visible on commit.
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
}

// Store is the persistence layer behind the engine.
type Store interface {
	Reader

	// WithTx runs fn in a serialized transaction. fn's error aborts the
	// transaction and is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)

	Close() error
}

// nonceKey is the fixed-width storage form of a nonce.
func nonceKey(nonce *uint256.Int) string {
	return common.Hash(nonce.Bytes32()).Hex()
}

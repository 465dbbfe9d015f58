// ABOUTME: Signature gateway that validates signed entries and dispatches them to modules
// ABOUTME: Every entry, trigger and execution runs in one store transaction with an audit entry

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
	"github.com/2389/keyward/internal/auth"
	"github.com/2389/keyward/internal/logic"
	"github.com/2389/keyward/internal/registry"
	"github.com/2389/keyward/internal/store"
)

// SignedCall is a single-signature entry.
type SignedCall struct {
	Module    common.Address
	CallData  []byte
	Signature []byte
	Nonce     *uint256.Int
}

// DualSignedCall is a two-signature entry. Index 0 is the client admin,
// index 1 the backup.
type DualSignedCall struct {
	Module     common.Address
	CallData   []byte
	Signatures [2][]byte
	Nonces     [2]*uint256.Int
}

// Result describes an accepted operation.
type Result struct {
	Account common.Address
	Method  string
	Signers []common.Address
}

// Engine is the signature gateway. It is safe for concurrent use; the store
// serializes transactions.
type Engine struct {
	store    store.Store
	registry *registry.Registry
	modules  map[common.Address]logic.Module
	params   account.Params
	clock    account.Clock
	logger   *slog.Logger
}

// New binds every registry entry to its module implementation.
func New(st store.Store, reg *registry.Registry, params account.Params, clock account.Clock, logger *slog.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid security parameters: %w", err)
	}
	if clock == nil {
		clock = account.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	modules := make(map[common.Address]logic.Module)
	for _, e := range reg.Entries() {
		m, err := logic.ByName(e.Name)
		if err != nil {
			return nil, fmt.Errorf("binding module %s: %w", e.ID.Hex(), err)
		}
		modules[e.ID] = m
	}
	return &Engine{
		store:    st,
		registry: reg,
		modules:  modules,
		params:   params,
		clock:    clock,
		logger:   logger.With("component", "engine"),
	}, nil
}

// Params returns the security parameters applied to every account.
func (e *Engine) Params() account.Params { return e.params }

// Registry returns the module registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Enter validates a single-signature entry and applies its action.
func (e *Engine) Enter(ctx context.Context, call SignedCall) (*Result, error) {
	return e.enter(ctx, store.AuditEnter, call.Module, call.CallData,
		[][]byte{call.Signature}, []*uint256.Int{call.Nonce})
}

// EnterDual validates a two-signature entry and applies its action. Both
// signatures are checked before any state changes.
func (e *Engine) EnterDual(ctx context.Context, call DualSignedCall) (*Result, error) {
	return e.enter(ctx, store.AuditEnterDual, call.Module, call.CallData,
		call.Signatures[:], call.Nonces[:])
}

func (e *Engine) enter(ctx context.Context, path store.AuditAction, module common.Address, callData []byte, sigs [][]byte, nonces []*uint256.Int) (*Result, error) {
	res, err := e.doEnter(ctx, path, module, callData, sigs, nonces)
	if err != nil {
		e.logger.Debug("entry rejected", "module", module.Hex(), "path", path, "kind", ErrorKind(err), "error", err)
		return nil, err
	}
	e.logger.Info("entry accepted", "module", module.Hex(), "account", res.Account.Hex(), "method", res.Method)
	return res, nil
}

func (e *Engine) doEnter(ctx context.Context, path store.AuditAction, module common.Address, callData []byte, sigs [][]byte, nonces []*uint256.Int) (*Result, error) {
	act, err := action.Decode(callData)
	if err != nil {
		return nil, err
	}
	mod, ok := e.modules[module]
	if !ok || !e.registry.Authorized(module) {
		return nil, fmt.Errorf("%w: %s", account.ErrModuleNotAuthorized, module.Hex())
	}
	signers, err := mod.Signers(act)
	if err != nil {
		return nil, err
	}
	if len(signers) != len(sigs) {
		return nil, fmt.Errorf("%w: %s needs %d signatures, got %d",
			logic.ErrUnsupportedAction, act.Method(), len(signers), len(sigs))
	}

	res := &Result{Account: act.Target(), Method: act.Method()}
	err = e.store.WithTx(ctx, func(tx store.Tx) error {
		s := logic.NewSession(ctx, tx, e.params, e.clock.Now())
		target, err := e.governed(s, act.Target())
		if err != nil {
			return err
		}
		if !target.ModuleEnabled(module) {
			return fmt.Errorf("%w: %s is not enabled on %s", account.ErrModuleNotAuthorized, module.Hex(), target.Address.Hex())
		}

		for i, sg := range signers {
			optional := i == 0 && logic.ClientNonceOptional(act)
			addr, err := e.verify(s, module, callData, sg, sigs[i], nonces[i], optional)
			if err != nil {
				return fmt.Errorf("signature %d: %w", i, err)
			}
			res.Signers = append(res.Signers, addr)
		}

		if err := mod.Apply(s, act); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
		return tx.AppendAuditLog(ctx, &store.AuditEntry{
			Account:   res.Account,
			Actor:     joinAddresses(res.Signers),
			Module:    module,
			Action:    path,
			Method:    res.Method,
			Timestamp: s.Now(),
			Detail:    map[string]any{"nonces": nonceStrings(nonces), "module_name": mod.Name()},
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// governed loads addr and checks that this engine's registry manages it.
// Accounts created under another registry address are not ours to drive.
func (e *Engine) governed(s *logic.Session, addr common.Address) (*account.Account, error) {
	a, err := s.Load(addr)
	if err != nil {
		return nil, err
	}
	if a.Manager != e.registry.Address() {
		return nil, fmt.Errorf("%w: %s is governed by registry %s", account.ErrModuleNotAuthorized, addr.Hex(), a.Manager.Hex())
	}
	return a, nil
}

// verify checks one signature in gateway order: module enabled on the
// signing account, nonce unused, then the recovered key against the role.
func (e *Engine) verify(s *logic.Session, module common.Address, callData []byte, sg logic.Signer, sig []byte, nonce *uint256.Int, nonceOptional bool) (common.Address, error) {
	var signing *account.Account
	if sg.Backup {
		acct, found, err := s.Lookup(sg.Account)
		if err != nil {
			return common.Address{}, err
		}
		if found {
			signing = acct
		}
	} else {
		acct, err := s.Load(sg.Account)
		if err != nil {
			return common.Address{}, err
		}
		signing = acct
	}
	if signing != nil && signing.Manager != e.registry.Address() {
		return common.Address{}, fmt.Errorf("%w: %s is governed by registry %s", account.ErrModuleNotAuthorized, sg.Account.Hex(), signing.Manager.Hex())
	}
	if signing != nil && !signing.ModuleEnabled(module) {
		return common.Address{}, fmt.Errorf("%w: %s is not enabled on %s", account.ErrModuleNotAuthorized, module.Hex(), sg.Account.Hex())
	}

	if nonce == nil || nonce.IsZero() {
		if !nonceOptional {
			return common.Address{}, ErrMissingNonce
		}
	} else if err := s.Tx().ConsumeNonce(s.Context(), sg.Account, nonce); err != nil {
		return common.Address{}, err
	}

	signer, err := auth.Recover(auth.Digest(module, callData, nonce), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", account.ErrUnauthorizedKey, err)
	}
	if signing == nil {
		if signer != sg.Account {
			return common.Address{}, fmt.Errorf("%w: recovered %s, want backup %s", account.ErrUnauthorizedKey, signer.Hex(), sg.Account.Hex())
		}
		return signer, nil
	}
	if err := signing.Authorize(sg.Role, signer); err != nil {
		return common.Address{}, err
	}
	return signer, nil
}

func joinAddresses(addrs []common.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.Hex()
	}
	return strings.Join(parts, ",")
}

func nonceStrings(nonces []*uint256.Int) []string {
	out := make([]string, len(nonces))
	for i, n := range nonces {
		if n != nil {
			out[i] = n.Dec()
		}
	}
	return out
}

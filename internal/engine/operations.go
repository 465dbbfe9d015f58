// ABOUTME: Permissionless engine operations: account creation, triggers and proposal execution
// ABOUTME: None of these take signatures; their authority comes from stored commitments

package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
	"github.com/2389/keyward/internal/logic"
	"github.com/2389/keyward/internal/store"
)

// InitRequest describes a new account. Keys is ordered admin, operation
// keys, assist.
type InitRequest struct {
	Address common.Address
	Storage common.Address
	Modules []common.Address
	Keys    []common.Address
	Backups []common.Address

	// Operator is recorded in the audit log.
	Operator string
}

// InitAccount creates an account governed by this engine's registry. Every
// module it enables must be registered and authorized.
func (e *Engine) InitAccount(ctx context.Context, req InitRequest) (*account.Account, error) {
	for _, m := range req.Modules {
		if !e.registry.Authorized(m) {
			return nil, fmt.Errorf("%w: %s", account.ErrModuleNotAuthorized, m.Hex())
		}
	}
	now := e.clock.Now()
	acct, err := account.New(account.Init{
		Address: req.Address,
		Manager: e.registry.Address(),
		Storage: req.Storage,
		Modules: req.Modules,
		Keys:    req.Keys,
		Backups: req.Backups,
	}, e.params, now)
	if err != nil {
		return nil, err
	}

	err = e.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateAccount(ctx, acct); err != nil {
			return err
		}
		return tx.AppendAuditLog(ctx, &store.AuditEntry{
			Account:   acct.Address,
			Actor:     req.Operator,
			Action:    store.AuditInitAccount,
			Method:    "initAccount",
			Timestamp: now,
			Detail: map[string]any{
				"modules": len(req.Modules),
				"backups": len(req.Backups),
			},
		})
	})
	if err != nil {
		e.logger.Debug("account creation rejected", "account", req.Address.Hex(), "kind", ErrorKind(err), "error", err)
		return nil, err
	}
	e.logger.Info("account created", "account", acct.Address.Hex(), "operator", req.Operator)
	return acct, nil
}

// TriggerChangeAdminKey completes a pending changeAdminKey.
func (e *Engine) TriggerChangeAdminKey(ctx context.Context, acct, pkNew common.Address) error {
	return e.Trigger(ctx, action.ChangeAdminKey{Account: acct, PkNew: pkNew})
}

// TriggerChangeAllOperationKeys completes a pending changeAllOperationKeys.
func (e *Engine) TriggerChangeAllOperationKeys(ctx context.Context, acct common.Address, pks []common.Address) error {
	return e.Trigger(ctx, action.ChangeAllOperationKeys{Account: acct, Pks: pks})
}

// TriggerUnfreeze completes a pending unfreeze.
func (e *Engine) TriggerUnfreeze(ctx context.Context, acct common.Address) error {
	return e.Trigger(ctx, action.Unfreeze{Account: acct})
}

// TriggerChangeAdminKeyByBackup completes an admin change armed by an
// executed recovery proposal.
func (e *Engine) TriggerChangeAdminKeyByBackup(ctx context.Context, acct, pkNew common.Address) error {
	return e.Trigger(ctx, action.ChangeAdminKeyByBackup{Account: acct, PkNew: pkNew})
}

// Trigger completes any delayed action. Anyone may call it.
func (e *Engine) Trigger(ctx context.Context, act action.Action) error {
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		s := logic.NewSession(ctx, tx, e.params, e.clock.Now())
		if _, err := e.governed(s, act.Target()); err != nil {
			return err
		}
		if err := logic.Trigger(s, act); err != nil {
			return err
		}
		if err := s.Flush(); err != nil {
			return err
		}
		return tx.AppendAuditLog(ctx, &store.AuditEntry{
			Account:   act.Target(),
			Actor:     "anyone",
			Action:    store.AuditTrigger,
			Method:    act.Method(),
			Timestamp: s.Now(),
		})
	})
	if err != nil {
		e.logger.Debug("trigger rejected", "account", act.Target().Hex(), "method", act.Method(), "kind", ErrorKind(err), "error", err)
		return err
	}
	e.logger.Info("delayed action triggered", "account", act.Target().Hex(), "method", act.Method())
	return nil
}

// ExecuteProposal runs an approved proposal of client keyed under proposer.
// It returns the executed inner action.
func (e *Engine) ExecuteProposal(ctx context.Context, client, proposer common.Address, functionData []byte) (action.Action, error) {
	var inner action.Action
	err := e.store.WithTx(ctx, func(tx store.Tx) error {
		s := logic.NewSession(ctx, tx, e.params, e.clock.Now())
		if _, err := e.governed(s, client); err != nil {
			return err
		}
		a, err := logic.ExecuteProposal(s, client, proposer, functionData)
		if err != nil {
			return err
		}
		inner = a
		if err := s.Flush(); err != nil {
			return err
		}
		return tx.AppendAuditLog(ctx, &store.AuditEntry{
			Account:   client,
			Actor:     "anyone",
			Action:    store.AuditExecuteProposal,
			Method:    a.Method(),
			Timestamp: s.Now(),
			Detail:    map[string]any{"proposer": proposer.Hex()},
		})
	})
	if err != nil {
		e.logger.Debug("proposal execution rejected", "client", client.Hex(), "proposer", proposer.Hex(), "kind", ErrorKind(err), "error", err)
		return nil, err
	}
	e.logger.Info("proposal executed", "client", client.Hex(), "proposer", proposer.Hex(), "method", inner.Method())
	return inner, nil
}

// ABOUTME: Single-signer module for key management, freezing and backup-driven recovery
// ABOUTME: Admin, operation and backup assist keys each authorize their own actions

package logic

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
)

// AccountModule handles every action that one key can authorize alone.
type AccountModule struct{}

func (AccountModule) Name() string { return NameAccount }

// Signers maps each action to its required key.
func (m AccountModule) Signers(act action.Action) ([]Signer, error) {
	switch a := act.(type) {
	case action.ChangeAdminKey, action.ChangeAllOperationKeys, action.Freeze, action.Unfreeze,
		action.CancelDelay, action.RemoveBackup, action.CancelRemoveBackup, action.CancelProposal:
		return []Signer{admin(act.Target())}, nil
	case action.AddOperationKey:
		return []Signer{{Account: a.Account, Role: account.RoleOperation}}, nil
	case action.ProposeAsBackup:
		return []Signer{backup(a.Backup)}, nil
	case action.ApproveProposal:
		return []Signer{backup(a.Backup)}, nil
	default:
		return nil, unsupported(m, act)
	}
}

// Apply dispatches act to its state transition.
func (m AccountModule) Apply(s *Session, act action.Action) error {
	switch a := act.(type) {
	case action.ChangeAdminKey:
		return withAccount(s, a.Account, func(acct *account.Account) error {
			if err := acct.CheckAdminCandidate(a.PkNew); err != nil {
				return err
			}
			return Arm(s, acct, a)
		})
	case action.AddOperationKey:
		return withAccount(s, a.Account, func(acct *account.Account) error {
			return acct.AddOperationKey(a.PkNew)
		})
	case action.ChangeAllOperationKeys:
		return withAccount(s, a.Account, func(acct *account.Account) error {
			if err := acct.CheckOperationKeySet(a.Pks); err != nil {
				return err
			}
			return Arm(s, acct, a)
		})
	case action.Freeze:
		return withAccount(s, a.Account, func(acct *account.Account) error {
			return acct.Freeze()
		})
	case action.Unfreeze:
		return withAccount(s, a.Account, func(acct *account.Account) error {
			if !acct.Frozen() {
				return account.ErrNotFrozen
			}
			return Arm(s, acct, a)
		})
	case action.CancelDelay:
		return withAccount(s, a.Account, func(acct *account.Account) error {
			return CancelDelay(acct, a.ActionID)
		})
	case action.RemoveBackup:
		return removeBackup(s, a)
	case action.CancelRemoveBackup:
		return cancelRemoveBackup(s, a)
	case action.ProposeAsBackup:
		return proposeAsBackup(s, a)
	case action.ApproveProposal:
		return approveProposal(s, a)
	case action.CancelProposal:
		return cancelProposal(s, a)
	default:
		return unsupported(m, act)
	}
}

func withAccount(s *Session, addr common.Address, fn func(*account.Account) error) error {
	acct, err := s.Edit(addr)
	if err != nil {
		return err
	}
	return fn(acct)
}

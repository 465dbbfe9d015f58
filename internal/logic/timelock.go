// ABOUTME: Timelock controller arming, triggering and cancelling delayed actions
// ABOUTME: Triggers are permissionless and succeed only with the committed parameters

package logic

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
)

// adminCancellable lists the delayed actions the admin key may withdraw.
// A backup-driven admin change is absent: the key it replaces must not be
// able to block recovery.
var adminCancellable = map[account.Selector]bool{
	action.SelChangeAdminKey:         true,
	action.SelChangeAllOperationKeys: true,
	action.SelUnfreeze:               true,
}

// Delayed reports whether sel is a timelocked action.
func Delayed(sel account.Selector) bool {
	return adminCancellable[sel] || sel == action.SelChangeAdminKeyByBackup
}

// Arm commits act on acct, eligible after the security delay.
func Arm(s *Session, acct *account.Account, act action.Action) error {
	if !Delayed(act.Selector()) {
		return fmt.Errorf("%w: %s is not a delayed action", ErrUnsupportedAction, act.Method())
	}
	hash, err := action.HashOf(act)
	if err != nil {
		return err
	}
	return acct.ArmTimelock(act.Selector(), hash, s.Now().Add(s.Params().SecurityDelay))
}

// Trigger completes a delayed action whose timelock has elapsed. act must
// reproduce the committed call data exactly.
func Trigger(s *Session, act action.Action) error {
	if !Delayed(act.Selector()) {
		return fmt.Errorf("%w: %s is not a delayed action", ErrUnsupportedAction, act.Method())
	}
	acct, err := s.Edit(act.Target())
	if err != nil {
		return err
	}
	hash, err := action.HashOf(act)
	if err != nil {
		return err
	}
	if err := acct.ConsumeTimelock(act.Selector(), hash, s.Now()); err != nil {
		return err
	}

	switch a := act.(type) {
	case action.ChangeAdminKey:
		return changeAdmin(acct, a.PkNew)
	case action.ChangeAdminKeyByBackup:
		return changeAdmin(acct, a.PkNew)
	case action.ChangeAllOperationKeys:
		return acct.ReplaceOperationKeys(a.Pks)
	case action.Unfreeze:
		return acct.Unfreeze()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, act.Method())
	}
}

// CancelDelay withdraws a pending admin-armed action.
func CancelDelay(acct *account.Account, sel account.Selector) error {
	if !adminCancellable[sel] {
		return fmt.Errorf("%w: admin key cannot cancel %s", account.ErrUnauthorizedKey, sel)
	}
	return acct.CancelTimelock(sel)
}

// changeAdmin rotates the admin key and drops proposals that would rotate it
// again. Pending admin changes committing to pk could never fire afterwards,
// so they are dropped too.
func changeAdmin(acct *account.Account, pk common.Address) error {
	if err := acct.SetAdmin(pk); err != nil {
		return err
	}
	acct.ClearProposals(action.SelChangeAdminKeyByBackup, action.SelChangeAdminKeyWithoutDelay)
	return dropSatisfiedTimelocks(acct, pk)
}

func dropSatisfiedTimelocks(acct *account.Account, pk common.Address) error {
	for _, act := range []action.Action{
		action.ChangeAdminKey{Account: acct.Address, PkNew: pk},
		action.ChangeAdminKeyByBackup{Account: acct.Address, PkNew: pk},
	} {
		tl, ok := acct.Timelock(act.Selector())
		if !ok {
			continue
		}
		hash, err := action.HashOf(act)
		if err != nil {
			return err
		}
		if tl.DataHash == hash {
			if err := acct.CancelTimelock(act.Selector()); err != nil {
				return err
			}
		}
	}
	return nil
}

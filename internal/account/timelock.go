// ABOUTME: Timelock table holding at most one pending delayed action per selector
// ABOUTME: Entries commit to the action's call-data hash and an eligibility time

package account

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Timelock is a pending delayed action.
type Timelock struct {
	Selector   Selector
	DataHash   common.Hash
	EligibleAt time.Time
}

// Timelock returns the pending entry for sel.
func (a *Account) Timelock(sel Selector) (Timelock, bool) {
	t, ok := a.Timelocks[sel]
	return t, ok
}

// ArmTimelock records a delayed action. Only one entry may exist per selector.
func (a *Account) ArmTimelock(sel Selector, hash common.Hash, eligibleAt time.Time) error {
	if _, ok := a.Timelocks[sel]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePendingOperation, sel)
	}
	if a.Timelocks == nil {
		a.Timelocks = make(map[Selector]Timelock)
	}
	a.Timelocks[sel] = Timelock{Selector: sel, DataHash: hash, EligibleAt: eligibleAt}
	return nil
}

// ConsumeTimelock clears the entry for sel once it is eligible and hash matches.
func (a *Account) ConsumeTimelock(sel Selector, hash common.Hash, now time.Time) error {
	t, ok := a.Timelocks[sel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingOperation, sel)
	}
	if now.Before(t.EligibleAt) {
		return fmt.Errorf("%w: %s eligible at %s", ErrTooEarly, sel, t.EligibleAt.Format(time.RFC3339))
	}
	if t.DataHash != hash {
		return fmt.Errorf("%w: %s", ErrHashMismatch, sel)
	}
	delete(a.Timelocks, sel)
	return nil
}

// CancelTimelock drops the entry for sel.
func (a *Account) CancelTimelock(sel Selector) error {
	if _, ok := a.Timelocks[sel]; !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingOperation, sel)
	}
	delete(a.Timelocks, sel)
	return nil
}

// ABOUTME: Account aggregate with key slots, backups, timelocks and proposals
// ABOUTME: Construction validates the initial key set and backup list

package account

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Role identifies which key slot must sign an action.
type Role int

const (
	RoleAdmin Role = iota
	RoleOperation
	RoleAssist
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOperation:
		return "operation"
	case RoleAssist:
		return "assist"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// KeyStatus is the usability state of a key slot.
type KeyStatus int

const (
	KeyActive KeyStatus = iota
	KeyFrozen
)

func (s KeyStatus) String() string {
	if s == KeyFrozen {
		return "frozen"
	}
	return "active"
}

// KeySlot is one entry of the account's key table.
type KeySlot struct {
	Address common.Address
	Status  KeyStatus
}

// Empty reports whether the slot holds no key.
func (k KeySlot) Empty() bool {
	return k.Address == (common.Address{})
}

// Selector is the 4-byte identifier of an action.
type Selector [4]byte

func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

// ParseSelector decodes a 0x-prefixed 4-byte hex string.
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return sel, fmt.Errorf("parsing selector %q: %w", s, err)
	}
	if len(b) != len(sel) {
		return sel, fmt.Errorf("selector %q must be 4 bytes", s)
	}
	copy(sel[:], b)
	return sel, nil
}

// Account is the authorization state of one account.
type Account struct {
	Address common.Address
	Manager common.Address
	Storage common.Address
	Modules []common.Address

	Admin     KeySlot
	Operation []KeySlot
	Assist    KeySlot

	Backups   []Backup
	Timelocks map[Selector]Timelock
	Proposals map[ProposalKey]Proposal

	CreatedAt time.Time
}

// Init carries the parameters for creating an account.
// Keys is ordered admin, operation keys..., assist.
type Init struct {
	Address common.Address
	Manager common.Address
	Storage common.Address
	Modules []common.Address
	Keys    []common.Address
	Backups []common.Address
}

// New validates in and builds a fresh account. Backups given here are
// effective immediately.
func New(in Init, params Params, now time.Time) (*Account, error) {
	if in.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", ErrInvalidAccount)
	}
	if len(in.Modules) == 0 {
		return nil, fmt.Errorf("%w: no modules enabled", ErrInvalidAccount)
	}
	opCount := len(in.Keys) - 2
	if opCount < 1 || opCount > params.OperationKeySlots {
		return nil, fmt.Errorf("%w: need admin, 1..%d operation keys and assist, got %d keys",
			ErrInvalidKeyCount, params.OperationKeySlots, len(in.Keys))
	}
	for i, k := range in.Keys {
		if k == (common.Address{}) {
			return nil, fmt.Errorf("%w: key %d is the zero address", ErrInvalidKeyValue, i)
		}
	}
	ops := in.Keys[1 : 1+opCount]
	if hasDuplicate(ops) {
		return nil, fmt.Errorf("%w: duplicate operation key", ErrInvalidKeyValue)
	}
	if len(in.Backups) > params.MaxBackups {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyBackups, len(in.Backups), params.MaxBackups)
	}

	a := &Account{
		Address:   in.Address,
		Manager:   in.Manager,
		Storage:   in.Storage,
		Modules:   slices.Clone(in.Modules),
		Admin:     KeySlot{Address: in.Keys[0]},
		Operation: make([]KeySlot, params.OperationKeySlots),
		Assist:    KeySlot{Address: in.Keys[len(in.Keys)-1]},
		Timelocks: make(map[Selector]Timelock),
		Proposals: make(map[ProposalKey]Proposal),
		CreatedAt: now,
	}
	for i, k := range ops {
		a.Operation[i] = KeySlot{Address: k}
	}
	for _, b := range in.Backups {
		if err := a.checkNewBackup(b); err != nil {
			return nil, err
		}
		if _, ok := a.findBackup(b); ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBackup, b.Hex())
		}
		a.Backups = append(a.Backups, Backup{Address: b, EffectiveAt: now})
	}
	return a, nil
}

// ModuleEnabled reports whether module is in the account's enabled set.
func (a *Account) ModuleEnabled(module common.Address) bool {
	return slices.Contains(a.Modules, module)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.Modules = slices.Clone(a.Modules)
	c.Operation = slices.Clone(a.Operation)
	c.Backups = slices.Clone(a.Backups)
	c.Timelocks = make(map[Selector]Timelock, len(a.Timelocks))
	for k, v := range a.Timelocks {
		c.Timelocks[k] = v
	}
	c.Proposals = make(map[ProposalKey]Proposal, len(a.Proposals))
	for k, v := range a.Proposals {
		c.Proposals[k] = v
	}
	return &c
}

func hasDuplicate(addrs []common.Address) bool {
	seen := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			return true
		}
		seen[a] = struct{}{}
	}
	return false
}

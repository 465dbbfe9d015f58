// ABOUTME: Key table queries and mutations for admin, operation and assist slots
// ABOUTME: Enforces freeze semantics and key-value validation rules

package account

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// KeyCount returns the number of slot indices (admin + operation slots + assist).
func (a *Account) KeyCount() int {
	return len(a.Operation) + 2
}

// KeyAt returns the slot at index together with its role.
func (a *Account) KeyAt(index int) (KeySlot, Role, bool) {
	switch {
	case index == 0:
		return a.Admin, RoleAdmin, true
	case index >= 1 && index <= len(a.Operation):
		return a.Operation[index-1], RoleOperation, true
	case index == len(a.Operation)+1:
		return a.Assist, RoleAssist, true
	default:
		return KeySlot{}, 0, false
	}
}

// OperationKeys returns the addresses of the non-empty operation slots.
func (a *Account) OperationKeys() []common.Address {
	var keys []common.Address
	for _, k := range a.Operation {
		if !k.Empty() {
			keys = append(keys, k.Address)
		}
	}
	return keys
}

// Authorize checks that signer holds an active key for role.
func (a *Account) Authorize(role Role, signer common.Address) error {
	if signer == (common.Address{}) {
		return ErrUnauthorizedKey
	}
	switch role {
	case RoleAdmin:
		return checkSlot(a.Admin, signer, role)
	case RoleAssist:
		return checkSlot(a.Assist, signer, role)
	case RoleOperation:
		for _, k := range a.Operation {
			if !k.Empty() && k.Address == signer {
				return checkSlot(k, signer, role)
			}
		}
		return fmt.Errorf("%w: %s is not an operation key", ErrUnauthorizedKey, signer.Hex())
	default:
		return fmt.Errorf("%w: unknown role %s", ErrUnauthorizedKey, role)
	}
}

func checkSlot(k KeySlot, signer common.Address, role Role) error {
	if k.Empty() || k.Address != signer {
		return fmt.Errorf("%w: %s is not the %s key", ErrUnauthorizedKey, signer.Hex(), role)
	}
	if k.Status != KeyActive {
		return fmt.Errorf("%w: %s key is %s", ErrUnauthorizedKey, role, k.Status)
	}
	return nil
}

// CheckAdminCandidate validates a replacement admin key.
func (a *Account) CheckAdminCandidate(pk common.Address) error {
	if pk == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidKeyValue)
	}
	if pk == a.Admin.Address {
		return fmt.Errorf("%w: already the admin key", ErrInvalidKeyValue)
	}
	return nil
}

// SetAdmin replaces the admin key.
func (a *Account) SetAdmin(pk common.Address) error {
	if err := a.CheckAdminCandidate(pk); err != nil {
		return err
	}
	a.Admin = KeySlot{Address: pk}
	return nil
}

// AddOperationKey places pk in the first empty operation slot.
func (a *Account) AddOperationKey(pk common.Address) error {
	if pk == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidKeyValue)
	}
	free := -1
	for i, k := range a.Operation {
		if k.Empty() {
			if free < 0 {
				free = i
			}
			continue
		}
		if k.Address == pk {
			return fmt.Errorf("%w: %s is already an operation key", ErrInvalidKeyValue, pk.Hex())
		}
	}
	if free < 0 {
		return fmt.Errorf("%w: all %d operation slots in use", ErrInvalidKeyCount, len(a.Operation))
	}
	a.Operation[free] = KeySlot{Address: pk}
	return nil
}

// CheckOperationKeySet validates a full replacement of the operation keys.
// The replacement must have exactly as many keys as are currently configured.
func (a *Account) CheckOperationKeySet(pks []common.Address) error {
	if want := len(a.OperationKeys()); len(pks) != want {
		return fmt.Errorf("%w: got %d keys, account has %d", ErrInvalidKeyCount, len(pks), want)
	}
	for i, pk := range pks {
		if pk == (common.Address{}) {
			return fmt.Errorf("%w: key %d is the zero address", ErrInvalidKeyValue, i)
		}
	}
	if hasDuplicate(pks) {
		return fmt.Errorf("%w: duplicate operation key", ErrInvalidKeyValue)
	}
	return nil
}

// ReplaceOperationKeys swaps every configured operation key for pks.
func (a *Account) ReplaceOperationKeys(pks []common.Address) error {
	if err := a.CheckOperationKeySet(pks); err != nil {
		return err
	}
	slots := make([]KeySlot, len(a.Operation))
	for i, pk := range pks {
		slots[i] = KeySlot{Address: pk}
	}
	a.Operation = slots
	return nil
}

// Frozen reports whether any operation key is frozen.
func (a *Account) Frozen() bool {
	for _, k := range a.Operation {
		if !k.Empty() && k.Status == KeyFrozen {
			return true
		}
	}
	return false
}

// Freeze marks every active operation key as frozen.
func (a *Account) Freeze() error {
	changed := false
	for i, k := range a.Operation {
		if !k.Empty() && k.Status == KeyActive {
			a.Operation[i].Status = KeyFrozen
			changed = true
		}
	}
	if !changed {
		return ErrAlreadyFrozen
	}
	return nil
}

// Unfreeze restores every frozen operation key.
func (a *Account) Unfreeze() error {
	if !a.Frozen() {
		return ErrNotFrozen
	}
	for i, k := range a.Operation {
		if !k.Empty() {
			a.Operation[i].Status = KeyActive
		}
	}
	return nil
}

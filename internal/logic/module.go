// ABOUTME: Module strategy interface and the name-to-module binding used by the registry
// ABOUTME: A module lists the signers an action needs and applies it to a session

package logic

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
)

// ErrUnsupportedAction is returned when a module does not accept an action
// through the requested entry path.
var ErrUnsupportedAction = errors.New("action not supported by module")

// Module names as they appear in the registry configuration.
const (
	NameAccount  = "account"
	NameDualsigs = "dualsigs"
)

// Signer is one signature an action requires.
type Signer struct {
	// Account is the address whose key must sign. It also scopes the nonce.
	Account common.Address
	Role    account.Role
	// Backup marks a backup of the target account. A backup that is itself
	// a registered account signs with its assist key; a bare address signs
	// with its own key.
	Backup bool
}

// Module is a stateless strategy that interprets actions entered through
// one registry entry.
type Module interface {
	Name() string

	// Signers returns the required signatures in entry order.
	Signers(act action.Action) ([]Signer, error)

	// Apply performs act. Signatures, nonces and module authorization have
	// already been checked.
	Apply(s *Session, act action.Action) error
}

// ByName returns the module implementation bound to name.
func ByName(name string) (Module, error) {
	switch name {
	case NameAccount:
		return AccountModule{}, nil
	case NameDualsigs:
		return DualsigsModule{}, nil
	default:
		return nil, fmt.Errorf("unknown module %q", name)
	}
}

func admin(addr common.Address) Signer {
	return Signer{Account: addr, Role: account.RoleAdmin}
}

func backup(addr common.Address) Signer {
	return Signer{Account: addr, Role: account.RoleAssist, Backup: true}
}

func unsupported(m Module, act action.Action) error {
	return fmt.Errorf("%w: %s via %s", ErrUnsupportedAction, act.Method(), m.Name())
}

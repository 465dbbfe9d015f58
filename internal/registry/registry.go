// ABOUTME: Module registry listing which logic modules may act on accounts
// ABOUTME: Built once from configuration and consulted on every gateway entry

package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrDuplicateModule = errors.New("duplicate module")
	ErrCapacity        = errors.New("registry capacity exceeded")
)

// Entry describes one registered module.
type Entry struct {
	ID         common.Address
	Name       string
	Authorized bool
}

// Registry is an immutable set of modules. Its own address is the manager
// identity recorded on every account it governs.
type Registry struct {
	address  common.Address
	capacity int
	entries  []Entry
}

// New builds a registry. A capacity of zero means unbounded.
func New(address common.Address, capacity int, entries ...Entry) (*Registry, error) {
	if address == (common.Address{}) {
		return nil, errors.New("registry address is required")
	}
	if capacity > 0 && len(entries) > capacity {
		return nil, fmt.Errorf("%w: %d modules, capacity %d", ErrCapacity, len(entries), capacity)
	}
	seen := make(map[common.Address]struct{}, len(entries))
	for _, e := range entries {
		if e.ID == (common.Address{}) {
			return nil, fmt.Errorf("module %q has no address", e.Name)
		}
		if _, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModule, e.ID.Hex())
		}
		seen[e.ID] = struct{}{}
	}
	return &Registry{
		address:  address,
		capacity: capacity,
		entries:  slices.Clone(entries),
	}, nil
}

// Address is the manager identity of the registry.
func (r *Registry) Address() common.Address { return r.address }

// Capacity is the maximum number of modules, zero when unbounded.
func (r *Registry) Capacity() int { return r.capacity }

// Lookup returns the entry for id.
func (r *Registry) Lookup(id common.Address) (Entry, bool) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Authorized reports whether id is registered and authorized.
func (r *Registry) Authorized(id common.Address) bool {
	e, ok := r.Lookup(id)
	return ok && e.Authorized
}

// Entries returns a copy of all registered modules in configuration order.
func (r *Registry) Entries() []Entry {
	return slices.Clone(r.entries)
}

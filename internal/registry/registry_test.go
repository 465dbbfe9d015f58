// ABOUTME: Tests for the module registry
// ABOUTME: Covers construction validation and authorization lookups

package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	managerID  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	accountID  = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	dualsigsID = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	retiredID  = common.HexToAddress("0x00000000000000000000000000000000000000f3")
)

func TestRegistry_Authorized(t *testing.T) {
	r, err := New(managerID, 4,
		Entry{ID: accountID, Name: "account", Authorized: true},
		Entry{ID: dualsigsID, Name: "dualsigs", Authorized: true},
		Entry{ID: retiredID, Name: "account-v0", Authorized: false},
	)
	require.NoError(t, err)

	assert.Equal(t, managerID, r.Address())
	assert.Equal(t, 4, r.Capacity())
	assert.True(t, r.Authorized(accountID))
	assert.True(t, r.Authorized(dualsigsID))
	assert.False(t, r.Authorized(retiredID))
	assert.False(t, r.Authorized(common.HexToAddress("0x01")))

	e, ok := r.Lookup(retiredID)
	require.True(t, ok)
	assert.Equal(t, "account-v0", e.Name)

	entries := r.Entries()
	entries[0].Authorized = false
	assert.True(t, r.Authorized(accountID), "Entries returns a copy")
}

func TestRegistry_NewRejects(t *testing.T) {
	_, err := New(common.Address{}, 0)
	assert.Error(t, err)

	_, err = New(managerID, 1, Entry{ID: accountID}, Entry{ID: dualsigsID})
	assert.ErrorIs(t, err, ErrCapacity)

	_, err = New(managerID, 0, Entry{ID: accountID}, Entry{ID: accountID})
	assert.ErrorIs(t, err, ErrDuplicateModule)

	_, err = New(managerID, 0, Entry{Name: "nameless"})
	assert.Error(t, err)
}

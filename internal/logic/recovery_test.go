// ABOUTME: Tests for backup lifecycle and the propose, approve and execute protocol
// ABOUTME: Includes the backup recovery and dual-party admin change scenarios

package logic

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
)

func (f *fixture) execute(proposer common.Address, data []byte) (action.Action, error) {
	var out action.Action
	err := f.run(func(s *Session) error {
		a, err := ExecuteProposal(s, client, proposer, data)
		out = a
		return err
	})
	return out, err
}

func byBackupData(pk common.Address) []byte {
	return action.MustEncode(action.ChangeAdminKeyByBackup{Account: client, PkNew: pk})
}

func withoutDelayData(pk common.Address) []byte {
	return action.MustEncode(action.ChangeAdminKeyWithoutDelay{Account: client, PkNew: pk})
}

func TestBackupRecoveryScenario(t *testing.T) {
	f := newFixture(t)
	fd := byBackupData(adminK3)
	key := account.ProposalKey{Proposer: backupB, Selector: action.SelChangeAdminKeyByBackup}

	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd}))
	p, ok := f.account(t, client).Proposal(key)
	require.True(t, ok)
	assert.Equal(t, backupB, p.ProposerBackup)
	assert.False(t, p.Approved())

	_, err := f.execute(backupB, fd)
	assert.ErrorIs(t, err, account.ErrProposalNotApproved)

	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd}))
	p, _ = f.account(t, client).Proposal(key)
	assert.Equal(t, backupC, p.ApproverBackup)

	inner, err := f.execute(backupB, fd)
	require.NoError(t, err)
	assert.Equal(t, action.ChangeAdminKeyByBackup{Account: client, PkNew: adminK3}, inner)

	a := f.account(t, client)
	_, ok = a.Proposal(key)
	assert.False(t, ok, "proposal cleared once the timelock is armed")
	assert.Equal(t, adminK1, a.Admin.Address)

	_, err = f.execute(backupB, fd)
	assert.ErrorIs(t, err, account.ErrNoPendingOperation)

	trigger := action.ChangeAdminKeyByBackup{Account: client, PkNew: adminK3}
	assert.ErrorIs(t, f.trigger(trigger), account.ErrTooEarly)

	f.clock.Advance(f.params.SecurityDelay)
	require.NoError(t, f.trigger(trigger))
	assert.Equal(t, adminK3, f.account(t, client).Admin.Address)
}

func TestDualWithoutDelayScenario(t *testing.T) {
	f := newFixture(t)
	fd := withoutDelayData(adminK2)

	// A pending backup proposal is cleared by the admin change.
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: byBackupData(adminK3)}))

	require.NoError(t, f.apply(DualsigsModule{}, action.ProposeByBoth{Client: client, Backup: backupB, FunctionData: fd}))
	key := account.ProposalKey{Proposer: client, Selector: action.SelChangeAdminKeyWithoutDelay}
	p, ok := f.account(t, client).Proposal(key)
	require.True(t, ok)
	assert.Equal(t, backupB, p.ProposerBackup)

	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: client, FunctionData: fd}))

	_, err := f.execute(client, fd)
	require.NoError(t, err)

	a := f.account(t, client)
	assert.Equal(t, adminK2, a.Admin.Address)
	assert.Empty(t, a.Proposals)
}

func TestApproveRequiresDistinctBackup(t *testing.T) {
	f := newFixture(t)
	fd := byBackupData(adminK3)
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd}))

	err := f.apply(AccountModule{}, action.ApproveProposal{Backup: backupB, Client: client, Proposer: backupB, FunctionData: fd})
	assert.ErrorIs(t, err, account.ErrSelfApproval)

	err = f.apply(AccountModule{}, action.ApproveProposal{Backup: adminK2, Client: client, Proposer: backupB, FunctionData: fd})
	assert.ErrorIs(t, err, account.ErrBackupNotFound)

	err = f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: byBackupData(adminK2)})
	assert.ErrorIs(t, err, account.ErrHashMismatch)

	err = f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: adminK2, FunctionData: fd})
	assert.ErrorIs(t, err, account.ErrNoPendingOperation)

	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd}))
	err = f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd})
	assert.ErrorIs(t, err, account.ErrDuplicatePendingOperation)
}

func TestApproveRejectsLapsedProposer(t *testing.T) {
	f := newFixture(t)
	fd := byBackupData(adminK3)
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd}))
	require.NoError(t, f.apply(AccountModule{}, action.RemoveBackup{Account: client, Backup: backupB}))

	f.clock.Advance(f.params.BackupRemoveDelay)
	err := f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd})
	assert.ErrorIs(t, err, account.ErrBackupExpired)
}

func TestProposeValidation(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	tests := []struct {
		name    string
		act     action.Action
		module  Module
		wantErr error
	}{
		{
			name:    "non-backup proposer",
			module:  AccountModule{},
			act:     action.ProposeAsBackup{Backup: other, Client: client, FunctionData: byBackupData(adminK3)},
			wantErr: account.ErrBackupNotFound,
		},
		{
			name:    "action not proposable by a backup",
			module:  AccountModule{},
			act:     action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: withoutDelayData(adminK3)},
			wantErr: account.ErrInvalidProposalAction,
		},
		{
			name:    "arbitrary action",
			module:  AccountModule{},
			act:     action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: action.MustEncode(action.Freeze{Account: client})},
			wantErr: account.ErrInvalidProposalAction,
		},
		{
			name:    "garbage function data",
			module:  AccountModule{},
			act:     action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: []byte{1, 2, 3}},
			wantErr: account.ErrInvalidProposalAction,
		},
		{
			name:   "function data for another account",
			module: AccountModule{},
			act: action.ProposeAsBackup{Backup: backupB, Client: client,
				FunctionData: action.MustEncode(action.ChangeAdminKeyByBackup{Account: other, PkNew: adminK3})},
			wantErr: account.ErrInvalidAccount,
		},
		{
			name:    "dual proposal of a delayed action",
			module:  DualsigsModule{},
			act:     action.ProposeByBoth{Client: client, Backup: backupB, FunctionData: byBackupData(adminK3)},
			wantErr: account.ErrInvalidProposalAction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.apply(tt.module, tt.act)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.account(t, client).Proposals)
		})
	}
}

func TestReproposeClearsApproval(t *testing.T) {
	f := newFixture(t)
	fd := byBackupData(adminK3)
	key := account.ProposalKey{Proposer: backupB, Selector: action.SelChangeAdminKeyByBackup}

	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd}))
	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd}))

	fd2 := byBackupData(adminK2)
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd2}))
	p, ok := f.account(t, client).Proposal(key)
	require.True(t, ok)
	assert.False(t, p.Approved())
	assert.Equal(t, action.Hash(fd2), p.DataHash)
}

func TestCancelProposal(t *testing.T) {
	f := newFixture(t)
	fd := byBackupData(adminK3)
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd}))
	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd}))

	cancel := action.CancelProposal{Client: client, Proposer: backupB, ActionID: action.SelChangeAdminKeyByBackup}
	require.NoError(t, f.apply(AccountModule{}, cancel))
	assert.Empty(t, f.account(t, client).Proposals)

	assert.ErrorIs(t, f.apply(AccountModule{}, cancel), account.ErrNoPendingOperation)

	_, err := f.execute(backupB, fd)
	assert.ErrorIs(t, err, account.ErrNoPendingOperation)
}

func TestAddBackupLifecycle(t *testing.T) {
	f := newFixture(t)
	newBackup := common.HexToAddress("0x000000000000000000000000000000000000dd01")

	err := f.apply(DualsigsModule{}, action.AddBackup{Account: client, Backup: client})
	assert.ErrorIs(t, err, account.ErrSelfBackupNotAllowed)

	err = f.apply(DualsigsModule{}, action.AddBackup{Account: client, Backup: backupB})
	assert.ErrorIs(t, err, account.ErrDuplicateBackup)

	require.NoError(t, f.apply(DualsigsModule{}, action.AddBackup{Account: client, Backup: newBackup}))
	b, ok := f.account(t, client).Backup(newBackup)
	require.True(t, ok)
	assert.Equal(t, epoch.Add(f.params.BackupAddDelay), b.EffectiveAt)

	err = f.apply(AccountModule{}, action.ProposeAsBackup{Backup: newBackup, Client: client, FunctionData: byBackupData(adminK3)})
	assert.ErrorIs(t, err, account.ErrBackupNotEffective)

	f.clock.Advance(f.params.BackupAddDelay)
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: newBackup, Client: client, FunctionData: byBackupData(adminK3)}))
}

func TestBackupRemovalRace(t *testing.T) {
	f := newFixture(t)
	remove := action.RemoveBackup{Account: client, Backup: backupB}
	cancel := action.CancelRemoveBackup{Account: client, Backup: backupB}

	require.NoError(t, f.apply(AccountModule{}, remove))
	assert.ErrorIs(t, f.apply(AccountModule{}, remove), account.ErrDuplicatePendingOperation)

	f.clock.Advance(f.params.BackupRemoveDelay - time.Minute)
	require.NoError(t, f.apply(AccountModule{}, cancel))
	b, _ := f.account(t, client).Backup(backupB)
	assert.True(t, b.ExpiryAt.IsZero())

	f.clock.Advance(365 * 24 * time.Hour)
	assert.NoError(t, f.account(t, client).CheckBackup(backupB, f.clock.Now()))

	require.NoError(t, f.apply(AccountModule{}, remove))
	f.clock.Advance(f.params.BackupRemoveDelay)
	assert.ErrorIs(t, f.apply(AccountModule{}, cancel), account.ErrBackupExpired)

	err := f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: byBackupData(adminK3)})
	assert.ErrorIs(t, err, account.ErrBackupExpired)

	missing := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	err = f.apply(AccountModule{}, action.RemoveBackup{Account: client, Backup: missing})
	assert.ErrorIs(t, err, account.ErrBackupNotFound)
	err = f.apply(AccountModule{}, action.CancelRemoveBackup{Account: client, Backup: missing})
	assert.ErrorIs(t, err, account.ErrBackupNotFound)
}

func TestClientNonceOptional(t *testing.T) {
	assert.True(t, ClientNonceOptional(action.ProposeByBoth{Client: client, Backup: backupB, FunctionData: withoutDelayData(adminK2)}))
	assert.False(t, ClientNonceOptional(action.ProposeByBoth{Client: client, Backup: backupB, FunctionData: byBackupData(adminK2)}))
	assert.False(t, ClientNonceOptional(action.AddBackup{Account: client, Backup: backupB}))
}

func TestExecuteArmsOnlyValidCandidate(t *testing.T) {
	f := newFixture(t)
	fd := byBackupData(adminK1) // current admin
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: fd}))
	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: fd}))

	_, err := f.execute(backupB, fd)
	assert.ErrorIs(t, err, account.ErrInvalidKeyValue)
	_, ok := f.account(t, client).Proposal(account.ProposalKey{Proposer: backupB, Selector: action.SelChangeAdminKeyByBackup})
	assert.True(t, ok, "failed execution leaves the proposal in place")
}

func TestAdminChangeDropsTimelockForSameKey(t *testing.T) {
	f := newFixture(t)
	approve := func(proposer common.Address, fd []byte) {
		t.Helper()
		require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: proposer, FunctionData: fd}))
	}

	// Backups arm a recovery to adminK3.
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: byBackupData(adminK3)}))
	approve(backupB, byBackupData(adminK3))
	_, err := f.execute(backupB, byBackupData(adminK3))
	require.NoError(t, err)

	// The client reaches adminK3 first through the dual path.
	require.NoError(t, f.apply(DualsigsModule{}, action.ProposeByBoth{Client: client, Backup: backupB, FunctionData: withoutDelayData(adminK3)}))
	approve(client, withoutDelayData(adminK3))
	_, err = f.execute(client, withoutDelayData(adminK3))
	require.NoError(t, err)

	a := f.account(t, client)
	assert.Equal(t, adminK3, a.Admin.Address)
	_, ok := a.Timelock(action.SelChangeAdminKeyByBackup)
	assert.False(t, ok, "recovery to the current admin is dropped")

	f.clock.Advance(f.params.SecurityDelay)
	err = f.trigger(action.ChangeAdminKeyByBackup{Account: client, PkNew: adminK3})
	assert.ErrorIs(t, err, account.ErrNoPendingOperation)

	// A later recovery can still be armed and completed.
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: byBackupData(adminK2)}))
	approve(backupB, byBackupData(adminK2))
	_, err = f.execute(backupB, byBackupData(adminK2))
	require.NoError(t, err)
	f.clock.Advance(f.params.SecurityDelay)
	require.NoError(t, f.trigger(action.ChangeAdminKeyByBackup{Account: client, PkNew: adminK2}))
	assert.Equal(t, adminK2, f.account(t, client).Admin.Address)
}

func TestAdminChangeKeepsTimelockForOtherKey(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.apply(AccountModule{}, action.ProposeAsBackup{Backup: backupB, Client: client, FunctionData: byBackupData(adminK3)}))
	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: backupB, FunctionData: byBackupData(adminK3)}))
	_, err := f.execute(backupB, byBackupData(adminK3))
	require.NoError(t, err)

	require.NoError(t, f.apply(DualsigsModule{}, action.ProposeByBoth{Client: client, Backup: backupB, FunctionData: withoutDelayData(adminK2)}))
	require.NoError(t, f.apply(AccountModule{}, action.ApproveProposal{Backup: backupC, Client: client, Proposer: client, FunctionData: withoutDelayData(adminK2)}))
	_, err = f.execute(client, withoutDelayData(adminK2))
	require.NoError(t, err)

	_, ok := f.account(t, client).Timelock(action.SelChangeAdminKeyByBackup)
	assert.True(t, ok)
}

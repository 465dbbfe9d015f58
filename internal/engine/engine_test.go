// ABOUTME: Gateway tests with real secp256k1 keys against both store implementations
// ABOUTME: Covers validation order, replay protection and the recovery scenarios

package engine

import (
	"context"
	"crypto/ecdsa"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
	"github.com/2389/keyward/internal/auth"
	"github.com/2389/keyward/internal/logic"
	"github.com/2389/keyward/internal/registry"
	"github.com/2389/keyward/internal/store"
)

var (
	accountModule  = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	dualsigsModule = common.HexToAddress("0x00000000000000000000000000000000000a0002")
	revokedModule  = common.HexToAddress("0x00000000000000000000000000000000000a0003")
	managerAddr    = common.HexToAddress("0x00000000000000000000000000000000000f0001")

	clientAddr = common.HexToAddress("0x00000000000000000000000000000000000c0001")
	backupAddr = common.HexToAddress("0x00000000000000000000000000000000000b0001")
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type key struct {
	priv *ecdsa.PrivateKey
	addr common.Address
}

func newKey(t *testing.T) key {
	t.Helper()
	priv, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return key{priv: priv, addr: ethcrypto.PubkeyToAddress(priv.PublicKey)}
}

type harness struct {
	engine *Engine
	store  store.Store
	clock  *account.ManualClock

	clientAdmin, clientOp, clientAssist key
	backupAdmin, backupOp, backupAssist key
	// bare is an externally owned backup of the client with no account.
	bare key

	nonce uint64
}

func forEachStore(t *testing.T, fn func(t *testing.T, h *harness)) {
	t.Run("mock", func(t *testing.T) {
		fn(t, newHarness(t, store.NewMockStore()))
	})
	t.Run("sqlite", func(t *testing.T) {
		st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "keyward.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		fn(t, newHarness(t, st))
	})
}

func newHarness(t *testing.T, st store.Store) *harness {
	t.Helper()
	reg, err := registry.New(managerAddr, 8,
		registry.Entry{ID: accountModule, Name: logic.NameAccount, Authorized: true},
		registry.Entry{ID: dualsigsModule, Name: logic.NameDualsigs, Authorized: true},
		registry.Entry{ID: revokedModule, Name: logic.NameAccount, Authorized: false},
	)
	require.NoError(t, err)

	h := &harness{
		store:        st,
		clock:        account.NewManualClock(epoch),
		clientAdmin:  newKey(t),
		clientOp:     newKey(t),
		clientAssist: newKey(t),
		backupAdmin:  newKey(t),
		backupOp:     newKey(t),
		backupAssist: newKey(t),
		bare:         newKey(t),
		nonce:        1000,
	}
	h.engine, err = New(st, reg, account.DefaultParams(), h.clock, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = h.engine.InitAccount(ctx, InitRequest{
		Address:  backupAddr,
		Modules:  []common.Address{accountModule, dualsigsModule},
		Keys:     []common.Address{h.backupAdmin.addr, h.backupOp.addr, h.backupAssist.addr},
		Operator: "test",
	})
	require.NoError(t, err)
	_, err = h.engine.InitAccount(ctx, InitRequest{
		Address:  clientAddr,
		Modules:  []common.Address{accountModule, dualsigsModule},
		Keys:     []common.Address{h.clientAdmin.addr, h.clientOp.addr, h.clientAssist.addr},
		Backups:  []common.Address{backupAddr, h.bare.addr},
		Operator: "test",
	})
	require.NoError(t, err)
	return h
}

func (h *harness) nextNonce() *uint256.Int {
	h.nonce++
	return uint256.NewInt(h.nonce)
}

func (h *harness) signed(t *testing.T, module common.Address, act action.Action, k key) SignedCall {
	t.Helper()
	data := action.MustEncode(act)
	nonce := h.nextNonce()
	sig, err := auth.Sign(auth.Digest(module, data, nonce), k.priv)
	require.NoError(t, err)
	return SignedCall{Module: module, CallData: data, Signature: sig, Nonce: nonce}
}

func (h *harness) dual(t *testing.T, act action.Action, first key, firstNonce *uint256.Int, second key) DualSignedCall {
	t.Helper()
	data := action.MustEncode(act)
	secondNonce := h.nextNonce()
	sig1, err := auth.Sign(auth.Digest(dualsigsModule, data, firstNonce), first.priv)
	require.NoError(t, err)
	sig2, err := auth.Sign(auth.Digest(dualsigsModule, data, secondNonce), second.priv)
	require.NoError(t, err)
	return DualSignedCall{
		Module:     dualsigsModule,
		CallData:   data,
		Signatures: [2][]byte{sig1, sig2},
		Nonces:     [2]*uint256.Int{firstNonce, secondNonce},
	}
}

func (h *harness) admin(t *testing.T) common.Address {
	t.Helper()
	a, err := h.engine.Account(context.Background(), clientAddr)
	require.NoError(t, err)
	return a.Admin.Address
}

func TestNewRejectsUnknownModuleName(t *testing.T) {
	reg, err := registry.New(managerAddr, 0, registry.Entry{ID: accountModule, Name: "transfer", Authorized: true})
	require.NoError(t, err)
	_, err = New(store.NewMockStore(), reg, account.DefaultParams(), nil, nil)
	assert.Error(t, err)
}

func TestAdminKeyRotationScenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		newAdmin := newKey(t)
		call := h.signed(t, accountModule, action.ChangeAdminKey{Account: clientAddr, PkNew: newAdmin.addr}, h.clientAdmin)

		res, err := h.engine.Enter(ctx, call)
		require.NoError(t, err)
		assert.Equal(t, clientAddr, res.Account)
		assert.Equal(t, action.MethodChangeAdminKey, res.Method)
		assert.Equal(t, []common.Address{h.clientAdmin.addr}, res.Signers)

		tl, err := h.engine.Timelock(ctx, clientAddr, action.SelChangeAdminKey)
		require.NoError(t, err)
		assert.Equal(t, epoch.Add(h.engine.Params().SecurityDelay), tl.EligibleAt)

		err = h.engine.TriggerChangeAdminKey(ctx, clientAddr, newAdmin.addr)
		assert.ErrorIs(t, err, account.ErrTooEarly)

		h.clock.Advance(h.engine.Params().SecurityDelay)
		err = h.engine.TriggerChangeAdminKey(ctx, clientAddr, h.clientOp.addr)
		assert.ErrorIs(t, err, account.ErrHashMismatch)

		require.NoError(t, h.engine.TriggerChangeAdminKey(ctx, clientAddr, newAdmin.addr))
		assert.Equal(t, newAdmin.addr, h.admin(t))

		_, err = h.engine.Enter(ctx, call)
		assert.ErrorIs(t, err, account.ErrReplayedNonce)

		_, err = h.engine.Timelock(ctx, clientAddr, action.SelChangeAdminKey)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEnterRejectsWrongKey(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		call := h.signed(t, accountModule, action.Freeze{Account: clientAddr}, h.clientOp)

		_, err := h.engine.Enter(ctx, call)
		assert.ErrorIs(t, err, account.ErrUnauthorizedKey)
		assert.Equal(t, "unauthorized_key", ErrorKind(err))

		used, err := h.engine.NonceUsed(ctx, clientAddr, call.Nonce)
		require.NoError(t, err)
		assert.False(t, used, "rejected entry must not consume its nonce")

		a, err := h.engine.Account(ctx, clientAddr)
		require.NoError(t, err)
		assert.False(t, a.Frozen())
	})
}

func TestEnterRejectsBadSignature(t *testing.T) {
	h := newHarness(t, store.NewMockStore())
	call := h.signed(t, accountModule, action.Freeze{Account: clientAddr}, h.clientAdmin)
	call.Signature = call.Signature[:64]

	_, err := h.engine.Enter(context.Background(), call)
	assert.ErrorIs(t, err, account.ErrUnauthorizedKey)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature)
}

func TestEnterModuleChecks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, store.NewMockStore())

	_, err := h.engine.Enter(ctx, h.signed(t, revokedModule, action.Freeze{Account: clientAddr}, h.clientAdmin))
	assert.ErrorIs(t, err, account.ErrModuleNotAuthorized)

	unknown := common.HexToAddress("0x00000000000000000000000000000000000a00ff")
	_, err = h.engine.Enter(ctx, h.signed(t, unknown, action.Freeze{Account: clientAddr}, h.clientAdmin))
	assert.ErrorIs(t, err, account.ErrModuleNotAuthorized)

	_, err = h.engine.Enter(ctx, h.signed(t, dualsigsModule, action.Freeze{Account: clientAddr}, h.clientAdmin))
	assert.ErrorIs(t, err, logic.ErrUnsupportedAction)

	_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.Freeze{Account: h.bare.addr}, h.bare))
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestModuleMustBeEnabledOnAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, store.NewMockStore())
	admin, op, assist := newKey(t), newKey(t), newKey(t)
	single := common.HexToAddress("0x00000000000000000000000000000000000c0002")
	_, err := h.engine.InitAccount(ctx, InitRequest{
		Address: single,
		Modules: []common.Address{accountModule},
		Keys:    []common.Address{admin.addr, op.addr, assist.addr},
	})
	require.NoError(t, err)

	call := h.dual(t, action.AddBackup{Account: single, Backup: h.bare.addr}, admin, h.nextNonce(), h.bare)
	_, err = h.engine.EnterDual(ctx, call)
	assert.ErrorIs(t, err, account.ErrModuleNotAuthorized)
}

func TestEnterRequiresNonce(t *testing.T) {
	h := newHarness(t, store.NewMockStore())
	data := action.MustEncode(action.Freeze{Account: clientAddr})
	sig, err := auth.Sign(auth.Digest(accountModule, data, nil), h.clientAdmin.priv)
	require.NoError(t, err)

	_, err = h.engine.Enter(context.Background(), SignedCall{Module: accountModule, CallData: data, Signature: sig})
	assert.ErrorIs(t, err, ErrMissingNonce)
}

func TestFrozenOperationKeyCannotSign(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, store.NewMockStore())
	extra := newKey(t)

	_, err := h.engine.Enter(ctx, h.signed(t, accountModule, action.Freeze{Account: clientAddr}, h.clientAdmin))
	require.NoError(t, err)

	_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.AddOperationKey{Account: clientAddr, PkNew: extra.addr}, h.clientOp))
	assert.ErrorIs(t, err, account.ErrUnauthorizedKey)

	_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.Unfreeze{Account: clientAddr}, h.clientAdmin))
	require.NoError(t, err)
	h.clock.Advance(h.engine.Params().SecurityDelay)
	require.NoError(t, h.engine.TriggerUnfreeze(ctx, clientAddr))

	_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.AddOperationKey{Account: clientAddr, PkNew: extra.addr}, h.clientOp))
	require.NoError(t, err)
	k, role, err := h.engine.Key(ctx, clientAddr, 2)
	require.NoError(t, err)
	assert.Equal(t, extra.addr, k.Address)
	assert.Equal(t, account.RoleOperation, role)
}

func TestAddBackupWithBareAddress(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		newBackup := newKey(t)
		act := action.AddBackup{Account: clientAddr, Backup: newBackup.addr}

		// The wrong second signer is rejected.
		_, err := h.engine.EnterDual(ctx, h.dual(t, act, h.clientAdmin, h.nextNonce(), h.bare))
		assert.ErrorIs(t, err, account.ErrUnauthorizedKey)

		res, err := h.engine.EnterDual(ctx, h.dual(t, act, h.clientAdmin, h.nextNonce(), newBackup))
		require.NoError(t, err)
		assert.Equal(t, []common.Address{h.clientAdmin.addr, newBackup.addr}, res.Signers)

		b, err := h.engine.Backup(ctx, clientAddr, 2)
		require.NoError(t, err)
		assert.Equal(t, newBackup.addr, b.Address)
		assert.Equal(t, epoch.Add(h.engine.Params().BackupAddDelay), b.EffectiveAt)

		_, err = h.engine.Enter(ctx, h.signed(t, dualsigsModule, act, h.clientAdmin))
		assert.ErrorIs(t, err, logic.ErrUnsupportedAction)
	})
}

func TestBackupRecoveryScenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		recovered := newKey(t)
		fd := action.MustEncode(action.ChangeAdminKeyByBackup{Account: clientAddr, PkNew: recovered.addr})

		// The registered backup signs with its assist key, not its admin key.
		propose := action.ProposeAsBackup{Backup: backupAddr, Client: clientAddr, FunctionData: fd}
		_, err := h.engine.Enter(ctx, h.signed(t, accountModule, propose, h.backupAdmin))
		assert.ErrorIs(t, err, account.ErrUnauthorizedKey)
		_, err = h.engine.Enter(ctx, h.signed(t, accountModule, propose, h.backupAssist))
		require.NoError(t, err)

		p, err := h.engine.Proposal(ctx, clientAddr, backupAddr, action.SelChangeAdminKeyByBackup)
		require.NoError(t, err)
		assert.Equal(t, backupAddr, p.ProposerBackup)
		assert.False(t, p.Approved())

		_, err = h.engine.ExecuteProposal(ctx, clientAddr, backupAddr, fd)
		assert.ErrorIs(t, err, account.ErrProposalNotApproved)

		approve := action.ApproveProposal{Backup: h.bare.addr, Client: clientAddr, Proposer: backupAddr, FunctionData: fd}
		_, err = h.engine.Enter(ctx, h.signed(t, accountModule, approve, h.bare))
		require.NoError(t, err)

		inner, err := h.engine.ExecuteProposal(ctx, clientAddr, backupAddr, fd)
		require.NoError(t, err)
		assert.Equal(t, action.MethodChangeAdminKeyByBackup, inner.Method())

		err = h.engine.TriggerChangeAdminKeyByBackup(ctx, clientAddr, recovered.addr)
		assert.ErrorIs(t, err, account.ErrTooEarly)

		h.clock.Advance(h.engine.Params().SecurityDelay)
		require.NoError(t, h.engine.TriggerChangeAdminKeyByBackup(ctx, clientAddr, recovered.addr))
		assert.Equal(t, recovered.addr, h.admin(t))

		// The old admin lost control; the new one signs.
		_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.Freeze{Account: clientAddr}, h.clientAdmin))
		assert.ErrorIs(t, err, account.ErrUnauthorizedKey)
		_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.Freeze{Account: clientAddr}, recovered))
		require.NoError(t, err)
	})
}

func TestDualWithoutDelayScenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		newAdmin := newKey(t)
		fd := action.MustEncode(action.ChangeAdminKeyWithoutDelay{Account: clientAddr, PkNew: newAdmin.addr})
		act := action.ProposeByBoth{Client: clientAddr, Backup: backupAddr, FunctionData: fd}

		// The client signs without a nonce; the same signature is reusable.
		call := h.dual(t, act, h.clientAdmin, nil, h.backupAssist)
		_, err := h.engine.EnterDual(ctx, call)
		require.NoError(t, err)

		again := h.dual(t, act, h.clientAdmin, nil, h.backupAssist)
		assert.Equal(t, call.Signatures[0], again.Signatures[0])
		_, err = h.engine.EnterDual(ctx, again)
		require.NoError(t, err)

		_, err = h.engine.EnterDual(ctx, call)
		assert.ErrorIs(t, err, account.ErrReplayedNonce, "the backup nonce still guards replay")

		p, err := h.engine.Proposal(ctx, clientAddr, clientAddr, action.SelChangeAdminKeyWithoutDelay)
		require.NoError(t, err)
		assert.Equal(t, backupAddr, p.ProposerBackup)

		approve := action.ApproveProposal{Backup: h.bare.addr, Client: clientAddr, Proposer: clientAddr, FunctionData: fd}
		_, err = h.engine.Enter(ctx, h.signed(t, accountModule, approve, h.bare))
		require.NoError(t, err)

		_, err = h.engine.ExecuteProposal(ctx, clientAddr, clientAddr, fd)
		require.NoError(t, err)
		assert.Equal(t, newAdmin.addr, h.admin(t))

		_, err = h.engine.Proposal(ctx, clientAddr, clientAddr, action.SelChangeAdminKeyWithoutDelay)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDelayedDualProposalNeedsClientNonce(t *testing.T) {
	h := newHarness(t, store.NewMockStore())
	fd := action.MustEncode(action.ChangeAdminKeyByBackup{Account: clientAddr, PkNew: h.clientOp.addr})
	act := action.ProposeByBoth{Client: clientAddr, Backup: backupAddr, FunctionData: fd}

	_, err := h.engine.EnterDual(context.Background(), h.dual(t, act, h.clientAdmin, nil, h.backupAssist))
	assert.ErrorIs(t, err, ErrMissingNonce)
}

func TestInitAccountValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, store.NewMockStore())
	k := newKey(t)

	_, err := h.engine.InitAccount(ctx, InitRequest{
		Address: clientAddr,
		Modules: []common.Address{accountModule},
		Keys:    []common.Address{k.addr, k.addr, k.addr},
	})
	assert.ErrorIs(t, err, account.ErrAlreadyInitialized)

	_, err = h.engine.InitAccount(ctx, InitRequest{
		Address: common.HexToAddress("0x00000000000000000000000000000000000c0003"),
		Modules: []common.Address{revokedModule},
		Keys:    []common.Address{k.addr, k.addr, k.addr},
	})
	assert.ErrorIs(t, err, account.ErrModuleNotAuthorized)

	a, err := h.engine.Account(ctx, clientAddr)
	require.NoError(t, err)
	assert.Equal(t, managerAddr, a.Manager)
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, store.NewMockStore())

	_, err := h.engine.Enter(ctx, h.signed(t, accountModule, action.Freeze{Account: clientAddr}, h.clientAdmin))
	require.NoError(t, err)
	_, err = h.engine.Enter(ctx, h.signed(t, accountModule, action.Freeze{Account: clientAddr}, h.clientAdmin))
	require.Error(t, err)

	acct := clientAddr
	entries, err := h.engine.AuditLog(ctx, store.AuditFilter{Account: &acct})
	require.NoError(t, err)
	require.Len(t, entries, 2, "init and one accepted entry")

	var methods []string
	for _, e := range entries {
		methods = append(methods, e.Method)
	}
	assert.ElementsMatch(t, []string{"initAccount", action.MethodFreeze}, methods)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{account.ErrTooEarly, "too_early"},
		{account.ErrReplayedNonce, "replayed_nonce"},
		{ErrNotFound, "not_found"},
		{action.ErrMalformedCallData, "malformed_call_data"},
		{assert.AnError, "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}

func TestConcurrentReplayAcceptsOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		call := h.signed(t, accountModule, action.AddOperationKey{Account: clientAddr, PkNew: newKey(t).addr}, h.clientOp)

		const workers = 16
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = h.engine.Enter(ctx, call)
			}()
		}
		wg.Wait()

		accepted := 0
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.ErrorIs(t, err, account.ErrReplayedNonce)
		}
		assert.Equal(t, 1, accepted)

		a, err := h.engine.Account(ctx, clientAddr)
		require.NoError(t, err)
		assert.Len(t, a.OperationKeys(), 2)
	})
}

func TestDualEntryIsAtomic(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		newBackup := newKey(t)
		act := action.AddBackup{Account: clientAddr, Backup: newBackup.addr}
		clientNonce := h.nextNonce()

		// The client signature is valid; the backup signature is not.
		call := h.dual(t, act, h.clientAdmin, clientNonce, h.bare)
		_, err := h.engine.EnterDual(ctx, call)
		require.ErrorIs(t, err, account.ErrUnauthorizedKey)

		used, err := h.engine.NonceUsed(ctx, clientAddr, clientNonce)
		require.NoError(t, err)
		assert.False(t, used, "client nonce survives a failed second signature")
		used, err = h.engine.NonceUsed(ctx, newBackup.addr, call.Nonces[1])
		require.NoError(t, err)
		assert.False(t, used)

		_, err = h.engine.Backup(ctx, clientAddr, 2)
		assert.ErrorIs(t, err, ErrNotFound)

		// The same client signature is still accepted with a good backup signature.
		data := action.MustEncode(act)
		backupNonce := h.nextNonce()
		sig, err := auth.Sign(auth.Digest(dualsigsModule, data, backupNonce), newBackup.priv)
		require.NoError(t, err)
		call.Signatures[1] = sig
		call.Nonces[1] = backupNonce
		_, err = h.engine.EnterDual(ctx, call)
		require.NoError(t, err)

		used, err = h.engine.NonceUsed(ctx, clientAddr, clientNonce)
		require.NoError(t, err)
		assert.True(t, used)
	})
}

func TestForeignRegistryCannotDriveAccount(t *testing.T) {
	forEachStore(t, func(t *testing.T, h *harness) {
		ctx := context.Background()
		otherManager := common.HexToAddress("0x00000000000000000000000000000000000f0002")
		reg, err := registry.New(otherManager, 8,
			registry.Entry{ID: accountModule, Name: logic.NameAccount, Authorized: true},
			registry.Entry{ID: dualsigsModule, Name: logic.NameDualsigs, Authorized: true},
		)
		require.NoError(t, err)
		other, err := New(h.store, reg, account.DefaultParams(), h.clock, nil)
		require.NoError(t, err)

		act := action.ChangeAdminKey{Account: clientAddr, PkNew: newKey(t).addr}
		call := h.signed(t, accountModule, act, h.clientAdmin)
		_, err = other.Enter(ctx, call)
		assert.ErrorIs(t, err, account.ErrModuleNotAuthorized)
		used, err := other.NonceUsed(ctx, clientAddr, call.Nonce)
		require.NoError(t, err)
		assert.False(t, used)

		// Armed through the governing engine, the trigger still belongs to it.
		_, err = h.engine.Enter(ctx, call)
		require.NoError(t, err)
		h.clock.Advance(h.engine.Params().SecurityDelay)
		assert.ErrorIs(t, other.Trigger(ctx, act), account.ErrModuleNotAuthorized)
		require.NoError(t, h.engine.Trigger(ctx, act))

		_, err = other.ExecuteProposal(ctx, clientAddr, backupAddr,
			action.MustEncode(action.ChangeAdminKeyByBackup{Account: clientAddr, PkNew: newKey(t).addr}))
		assert.ErrorIs(t, err, account.ErrModuleNotAuthorized)
	})
}

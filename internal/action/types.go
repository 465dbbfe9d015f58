// ABOUTME: Concrete action variants for key management, backups and recovery proposals
// ABOUTME: Encode produces canonical ABI call data including the selector

package action

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/2389/keyward/internal/account"
)

// ChangeAdminKey replaces the admin key after the security delay.
type ChangeAdminKey struct {
	Account common.Address
	PkNew   common.Address
}

func (ChangeAdminKey) Method() string             { return MethodChangeAdminKey }
func (ChangeAdminKey) Selector() account.Selector { return SelChangeAdminKey }
func (a ChangeAdminKey) Target() common.Address   { return a.Account }
func (a ChangeAdminKey) Encode() ([]byte, error)  { return methods.Pack(a.Method(), a.Account, a.PkNew) }

// AddOperationKey fills the next empty operation slot.
type AddOperationKey struct {
	Account common.Address
	PkNew   common.Address
}

func (AddOperationKey) Method() string             { return MethodAddOperationKey }
func (AddOperationKey) Selector() account.Selector { return SelAddOperationKey }
func (a AddOperationKey) Target() common.Address   { return a.Account }
func (a AddOperationKey) Encode() ([]byte, error)  { return methods.Pack(a.Method(), a.Account, a.PkNew) }

// ChangeAllOperationKeys replaces every operation key after the security delay.
type ChangeAllOperationKeys struct {
	Account common.Address
	Pks     []common.Address
}

func (ChangeAllOperationKeys) Method() string             { return MethodChangeAllOperationKeys }
func (ChangeAllOperationKeys) Selector() account.Selector { return SelChangeAllOperationKeys }
func (a ChangeAllOperationKeys) Target() common.Address   { return a.Account }
func (a ChangeAllOperationKeys) Encode() ([]byte, error) {
	pks := a.Pks
	if pks == nil {
		pks = []common.Address{}
	}
	return methods.Pack(a.Method(), a.Account, pks)
}

// Freeze suspends every operation key immediately.
type Freeze struct {
	Account common.Address
}

func (Freeze) Method() string             { return MethodFreeze }
func (Freeze) Selector() account.Selector { return SelFreeze }
func (a Freeze) Target() common.Address   { return a.Account }
func (a Freeze) Encode() ([]byte, error)  { return methods.Pack(a.Method(), a.Account) }

// Unfreeze restores the operation keys after the security delay.
type Unfreeze struct {
	Account common.Address
}

func (Unfreeze) Method() string             { return MethodUnfreeze }
func (Unfreeze) Selector() account.Selector { return SelUnfreeze }
func (a Unfreeze) Target() common.Address   { return a.Account }
func (a Unfreeze) Encode() ([]byte, error)  { return methods.Pack(a.Method(), a.Account) }

// CancelDelay drops a pending timelock entry.
type CancelDelay struct {
	Account  common.Address
	ActionID account.Selector
}

func (CancelDelay) Method() string             { return MethodCancelDelay }
func (CancelDelay) Selector() account.Selector { return SelCancelDelay }
func (a CancelDelay) Target() common.Address   { return a.Account }
func (a CancelDelay) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Account, [4]byte(a.ActionID))
}

// AddBackup registers a backup; requires the admin and the backup to sign.
type AddBackup struct {
	Account common.Address
	Backup  common.Address
}

func (AddBackup) Method() string             { return MethodAddBackup }
func (AddBackup) Selector() account.Selector { return SelAddBackup }
func (a AddBackup) Target() common.Address   { return a.Account }
func (a AddBackup) Encode() ([]byte, error)  { return methods.Pack(a.Method(), a.Account, a.Backup) }

// RemoveBackup schedules a backup to lapse.
type RemoveBackup struct {
	Account common.Address
	Backup  common.Address
}

func (RemoveBackup) Method() string             { return MethodRemoveBackup }
func (RemoveBackup) Selector() account.Selector { return SelRemoveBackup }
func (a RemoveBackup) Target() common.Address   { return a.Account }
func (a RemoveBackup) Encode() ([]byte, error)  { return methods.Pack(a.Method(), a.Account, a.Backup) }

// CancelRemoveBackup keeps a backup whose removal is still pending.
type CancelRemoveBackup struct {
	Account common.Address
	Backup  common.Address
}

func (CancelRemoveBackup) Method() string             { return MethodCancelRemoveBackup }
func (CancelRemoveBackup) Selector() account.Selector { return SelCancelRemoveBackup }
func (a CancelRemoveBackup) Target() common.Address   { return a.Account }
func (a CancelRemoveBackup) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Account, a.Backup)
}

// ProposeAsBackup records a recovery proposal signed by one backup.
type ProposeAsBackup struct {
	Backup       common.Address
	Client       common.Address
	FunctionData []byte
}

func (ProposeAsBackup) Method() string             { return MethodProposeAsBackup }
func (ProposeAsBackup) Selector() account.Selector { return SelProposeAsBackup }
func (a ProposeAsBackup) Target() common.Address   { return a.Client }
func (a ProposeAsBackup) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Backup, a.Client, nonNil(a.FunctionData))
}

// ProposeByBoth records a proposal signed by the client admin and one backup.
type ProposeByBoth struct {
	Client       common.Address
	Backup       common.Address
	FunctionData []byte
}

func (ProposeByBoth) Method() string             { return MethodProposeByBoth }
func (ProposeByBoth) Selector() account.Selector { return SelProposeByBoth }
func (a ProposeByBoth) Target() common.Address   { return a.Client }
func (a ProposeByBoth) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Client, a.Backup, nonNil(a.FunctionData))
}

// ApproveProposal adds a second backup's approval to a proposal.
type ApproveProposal struct {
	Backup       common.Address
	Client       common.Address
	Proposer     common.Address
	FunctionData []byte
}

func (ApproveProposal) Method() string             { return MethodApproveProposal }
func (ApproveProposal) Selector() account.Selector { return SelApproveProposal }
func (a ApproveProposal) Target() common.Address   { return a.Client }
func (a ApproveProposal) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Backup, a.Client, a.Proposer, nonNil(a.FunctionData))
}

// CancelProposal lets the client admin drop a proposal.
type CancelProposal struct {
	Client   common.Address
	Proposer common.Address
	ActionID account.Selector
}

func (CancelProposal) Method() string             { return MethodCancelProposal }
func (CancelProposal) Selector() account.Selector { return SelCancelProposal }
func (a CancelProposal) Target() common.Address   { return a.Client }
func (a CancelProposal) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Client, a.Proposer, [4]byte(a.ActionID))
}

// ChangeAdminKeyByBackup is the backup-proposable admin change. Executing the
// proposal arms a timelock instead of applying it.
type ChangeAdminKeyByBackup struct {
	Account common.Address
	PkNew   common.Address
}

func (ChangeAdminKeyByBackup) Method() string             { return MethodChangeAdminKeyByBackup }
func (ChangeAdminKeyByBackup) Selector() account.Selector { return SelChangeAdminKeyByBackup }
func (a ChangeAdminKeyByBackup) Target() common.Address   { return a.Account }
func (a ChangeAdminKeyByBackup) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Account, a.PkNew)
}

// ChangeAdminKeyWithoutDelay is the dual-proposable admin change applied on execution.
type ChangeAdminKeyWithoutDelay struct {
	Account common.Address
	PkNew   common.Address
}

func (ChangeAdminKeyWithoutDelay) Method() string             { return MethodChangeAdminKeyWithoutDelay }
func (ChangeAdminKeyWithoutDelay) Selector() account.Selector { return SelChangeAdminKeyWithoutDelay }
func (a ChangeAdminKeyWithoutDelay) Target() common.Address   { return a.Account }
func (a ChangeAdminKeyWithoutDelay) Encode() ([]byte, error) {
	return methods.Pack(a.Method(), a.Account, a.PkNew)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

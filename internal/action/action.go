// ABOUTME: Tagged action variants decoded from call data
// ABOUTME: Each variant knows its method name, selector and canonical encoding

package action

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/2389/keyward/internal/account"
)

// Codec errors
var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrMalformedCallData = errors.New("malformed call data")
)

// Action is a decoded call.
type Action interface {
	Method() string
	Selector() account.Selector
	// Target is the account whose state the action reads or mutates first:
	// the account argument, or the client for recovery actions.
	Target() common.Address
	Encode() ([]byte, error)
}

// Selectors, derived from the ABI definitions.
var (
	SelChangeAdminKey             = SelectorOf(MethodChangeAdminKey)
	SelAddOperationKey            = SelectorOf(MethodAddOperationKey)
	SelChangeAllOperationKeys     = SelectorOf(MethodChangeAllOperationKeys)
	SelFreeze                     = SelectorOf(MethodFreeze)
	SelUnfreeze                   = SelectorOf(MethodUnfreeze)
	SelCancelDelay                = SelectorOf(MethodCancelDelay)
	SelAddBackup                  = SelectorOf(MethodAddBackup)
	SelRemoveBackup               = SelectorOf(MethodRemoveBackup)
	SelCancelRemoveBackup         = SelectorOf(MethodCancelRemoveBackup)
	SelProposeAsBackup            = SelectorOf(MethodProposeAsBackup)
	SelProposeByBoth              = SelectorOf(MethodProposeByBoth)
	SelApproveProposal            = SelectorOf(MethodApproveProposal)
	SelCancelProposal             = SelectorOf(MethodCancelProposal)
	SelChangeAdminKeyByBackup     = SelectorOf(MethodChangeAdminKeyByBackup)
	SelChangeAdminKeyWithoutDelay = SelectorOf(MethodChangeAdminKeyWithoutDelay)
)

// SelectorOf returns the selector of a known method. It panics on unknown names.
func SelectorOf(method string) account.Selector {
	m, ok := methods.Methods[method]
	if !ok {
		panic("action: unknown method " + method)
	}
	var sel account.Selector
	copy(sel[:], m.ID)
	return sel
}

// MethodName returns the method name for sel.
func MethodName(sel account.Selector) (string, bool) {
	m, err := methods.MethodById(sel[:])
	if err != nil {
		return "", false
	}
	return m.Name, true
}

// Hash returns the keccak256 commitment of call data, as stored in timelock
// and proposal entries.
func Hash(data []byte) common.Hash {
	return ethcrypto.Keccak256Hash(data)
}

// HashOf encodes a and hashes the result.
func HashOf(a Action) (common.Hash, error) {
	data, err := a.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return Hash(data), nil
}

// MustEncode encodes a and panics on failure. For fixed, known-good values.
func MustEncode(a Action) []byte {
	data, err := a.Encode()
	if err != nil {
		panic(fmt.Sprintf("action: encoding %s: %v", a.Method(), err))
	}
	return data
}

// Decode parses call data into its action. Encodings that do not round-trip
// byte for byte are rejected so a hash of the input always identifies one action.
func Decode(data []byte) (Action, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedCallData, len(data))
	}
	m, err := methods.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: selector %x", ErrUnknownAction, data[:4])
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCallData, m.Name, err)
	}
	a, err := fromArgs(m.Name, args)
	if err != nil {
		return nil, err
	}
	canonical, err := a.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCallData, m.Name, err)
	}
	if !bytes.Equal(canonical, data) {
		return nil, fmt.Errorf("%w: %s: non-canonical encoding", ErrMalformedCallData, m.Name)
	}
	return a, nil
}

type argReader struct {
	method string
	args   []any
	err    error
}

func (r *argReader) value(i int) any {
	if r.err != nil {
		return nil
	}
	if i >= len(r.args) {
		r.err = fmt.Errorf("%w: %s: missing argument %d", ErrMalformedCallData, r.method, i)
		return nil
	}
	return r.args[i]
}

func (r *argReader) address(i int) common.Address {
	v, ok := r.value(i).(common.Address)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %s: argument %d is not an address", ErrMalformedCallData, r.method, i)
	}
	return v
}

func (r *argReader) addresses(i int) []common.Address {
	v, ok := r.value(i).([]common.Address)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %s: argument %d is not an address list", ErrMalformedCallData, r.method, i)
	}
	return v
}

func (r *argReader) bytes(i int) []byte {
	v, ok := r.value(i).([]byte)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %s: argument %d is not bytes", ErrMalformedCallData, r.method, i)
	}
	return v
}

func (r *argReader) selector(i int) account.Selector {
	v, ok := r.value(i).([4]byte)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %s: argument %d is not bytes4", ErrMalformedCallData, r.method, i)
	}
	return account.Selector(v)
}

func fromArgs(method string, args []any) (Action, error) {
	r := &argReader{method: method, args: args}
	var a Action
	switch method {
	case MethodChangeAdminKey:
		a = ChangeAdminKey{Account: r.address(0), PkNew: r.address(1)}
	case MethodAddOperationKey:
		a = AddOperationKey{Account: r.address(0), PkNew: r.address(1)}
	case MethodChangeAllOperationKeys:
		a = ChangeAllOperationKeys{Account: r.address(0), Pks: r.addresses(1)}
	case MethodFreeze:
		a = Freeze{Account: r.address(0)}
	case MethodUnfreeze:
		a = Unfreeze{Account: r.address(0)}
	case MethodCancelDelay:
		a = CancelDelay{Account: r.address(0), ActionID: r.selector(1)}
	case MethodAddBackup:
		a = AddBackup{Account: r.address(0), Backup: r.address(1)}
	case MethodRemoveBackup:
		a = RemoveBackup{Account: r.address(0), Backup: r.address(1)}
	case MethodCancelRemoveBackup:
		a = CancelRemoveBackup{Account: r.address(0), Backup: r.address(1)}
	case MethodProposeAsBackup:
		a = ProposeAsBackup{Backup: r.address(0), Client: r.address(1), FunctionData: r.bytes(2)}
	case MethodProposeByBoth:
		a = ProposeByBoth{Client: r.address(0), Backup: r.address(1), FunctionData: r.bytes(2)}
	case MethodApproveProposal:
		a = ApproveProposal{Backup: r.address(0), Client: r.address(1), Proposer: r.address(2), FunctionData: r.bytes(3)}
	case MethodCancelProposal:
		a = CancelProposal{Client: r.address(0), Proposer: r.address(1), ActionID: r.selector(2)}
	case MethodChangeAdminKeyByBackup:
		a = ChangeAdminKeyByBackup{Account: r.address(0), PkNew: r.address(1)}
	case MethodChangeAdminKeyWithoutDelay:
		a = ChangeAdminKeyWithoutDelay{Account: r.address(0), PkNew: r.address(1)}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, method)
	}
	if r.err != nil {
		return nil, r.err
	}
	return a, nil
}

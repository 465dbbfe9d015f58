// ABOUTME: ABI definitions for every action understood by keyward
// ABOUTME: Call data is a 4-byte selector followed by ABI-encoded arguments

package action

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const definitions = `[
	{"type":"function","name":"changeAdminKey","inputs":[{"name":"account","type":"address"},{"name":"pkNew","type":"address"}]},
	{"type":"function","name":"addOperationKey","inputs":[{"name":"account","type":"address"},{"name":"pkNew","type":"address"}]},
	{"type":"function","name":"changeAllOperationKeys","inputs":[{"name":"account","type":"address"},{"name":"pks","type":"address[]"}]},
	{"type":"function","name":"freeze","inputs":[{"name":"account","type":"address"}]},
	{"type":"function","name":"unfreeze","inputs":[{"name":"account","type":"address"}]},
	{"type":"function","name":"cancelDelay","inputs":[{"name":"account","type":"address"},{"name":"actionId","type":"bytes4"}]},
	{"type":"function","name":"addBackup","inputs":[{"name":"account","type":"address"},{"name":"backup","type":"address"}]},
	{"type":"function","name":"removeBackup","inputs":[{"name":"account","type":"address"},{"name":"backup","type":"address"}]},
	{"type":"function","name":"cancelRemoveBackup","inputs":[{"name":"account","type":"address"},{"name":"backup","type":"address"}]},
	{"type":"function","name":"proposeAsBackup","inputs":[{"name":"backup","type":"address"},{"name":"client","type":"address"},{"name":"functionData","type":"bytes"}]},
	{"type":"function","name":"proposeByBoth","inputs":[{"name":"client","type":"address"},{"name":"backup","type":"address"},{"name":"functionData","type":"bytes"}]},
	{"type":"function","name":"approveProposal","inputs":[{"name":"backup","type":"address"},{"name":"client","type":"address"},{"name":"proposer","type":"address"},{"name":"functionData","type":"bytes"}]},
	{"type":"function","name":"cancelProposal","inputs":[{"name":"client","type":"address"},{"name":"proposer","type":"address"},{"name":"proposedActionId","type":"bytes4"}]},
	{"type":"function","name":"changeAdminKeyByBackup","inputs":[{"name":"account","type":"address"},{"name":"pkNew","type":"address"}]},
	{"type":"function","name":"changeAdminKeyWithoutDelay","inputs":[{"name":"account","type":"address"},{"name":"pkNew","type":"address"}]}
]`

// Method names as they appear in call data.
const (
	MethodChangeAdminKey             = "changeAdminKey"
	MethodAddOperationKey            = "addOperationKey"
	MethodChangeAllOperationKeys     = "changeAllOperationKeys"
	MethodFreeze                     = "freeze"
	MethodUnfreeze                   = "unfreeze"
	MethodCancelDelay                = "cancelDelay"
	MethodAddBackup                  = "addBackup"
	MethodRemoveBackup               = "removeBackup"
	MethodCancelRemoveBackup         = "cancelRemoveBackup"
	MethodProposeAsBackup            = "proposeAsBackup"
	MethodProposeByBoth              = "proposeByBoth"
	MethodApproveProposal            = "approveProposal"
	MethodCancelProposal             = "cancelProposal"
	MethodChangeAdminKeyByBackup     = "changeAdminKeyByBackup"
	MethodChangeAdminKeyWithoutDelay = "changeAdminKeyWithoutDelay"
)

var methods = mustParse(definitions)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("action: invalid ABI definitions: " + err.Error())
	}
	return parsed
}

// ABOUTME: Dual-signer module for actions the client admin and a backup co-sign
// ABOUTME: Covers backup registration and client-plus-backup proposals

package logic

import (
	"github.com/2389/keyward/internal/action"
)

// DualsigsModule handles actions entered with two signatures. The first
// signature is the client's admin key, the second the backup's.
type DualsigsModule struct{}

func (DualsigsModule) Name() string { return NameDualsigs }

func (m DualsigsModule) Signers(act action.Action) ([]Signer, error) {
	switch a := act.(type) {
	case action.AddBackup:
		return []Signer{admin(a.Account), backup(a.Backup)}, nil
	case action.ProposeByBoth:
		return []Signer{admin(a.Client), backup(a.Backup)}, nil
	default:
		return nil, unsupported(m, act)
	}
}

func (m DualsigsModule) Apply(s *Session, act action.Action) error {
	switch a := act.(type) {
	case action.AddBackup:
		return addBackup(s, a)
	case action.ProposeByBoth:
		return proposeByBoth(s, a)
	default:
		return unsupported(m, act)
	}
}

// ABOUTME: Deployment-wide security parameters shared by every account
// ABOUTME: Delays for timelocks and backup changes plus slot capacities

package account

import (
	"fmt"
	"time"
)

// Params are the deployment-wide knobs applied to every account.
type Params struct {
	// SecurityDelay gates changeAdminKey, changeAllOperationKeys, unfreeze and
	// backup-driven admin changes.
	SecurityDelay time.Duration

	// BackupAddDelay is the grace period before a newly added backup becomes usable.
	BackupAddDelay time.Duration

	// BackupRemoveDelay is how long a backup stays usable after removal starts.
	BackupRemoveDelay time.Duration

	OperationKeySlots int
	MaxBackups        int
}

// DefaultParams returns the parameters used when configuration leaves them unset.
func DefaultParams() Params {
	return Params{
		SecurityDelay:     48 * time.Hour,
		BackupAddDelay:    24 * time.Hour,
		BackupRemoveDelay: 72 * time.Hour,
		OperationKeySlots: 3,
		MaxBackups:        6,
	}
}

// Validate rejects parameter sets that would make accounts unusable.
func (p Params) Validate() error {
	if p.SecurityDelay < 0 || p.BackupAddDelay < 0 || p.BackupRemoveDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if p.OperationKeySlots < 1 {
		return fmt.Errorf("operation_key_slots must be at least 1, got %d", p.OperationKeySlots)
	}
	if p.MaxBackups < 1 {
		return fmt.Errorf("max_backups must be at least 1, got %d", p.MaxBackups)
	}
	return nil
}

// ABOUTME: Backup registry with effective/expiry windows per backup address
// ABOUTME: Handles delayed addition, delayed removal and removal cancellation

package account

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Backup is one entry of the backup registry. A zero ExpiryAt means the
// backup never expires.
type Backup struct {
	Address     common.Address
	EffectiveAt time.Time
	ExpiryAt    time.Time
}

// Expired reports whether the backup has lapsed at now.
func (b Backup) Expired(now time.Time) bool {
	return !b.ExpiryAt.IsZero() && !now.Before(b.ExpiryAt)
}

// RemovalPending reports whether a removal has been scheduled but not yet taken effect.
func (b Backup) RemovalPending(now time.Time) bool {
	return !b.ExpiryAt.IsZero() && now.Before(b.ExpiryAt)
}

// Usable returns nil when effectiveAt <= now < expiryAt.
func (b Backup) Usable(now time.Time) error {
	if now.Before(b.EffectiveAt) {
		return fmt.Errorf("%w: %s until %s", ErrBackupNotEffective, b.Address.Hex(), b.EffectiveAt.Format(time.RFC3339))
	}
	if b.Expired(now) {
		return fmt.Errorf("%w: %s", ErrBackupExpired, b.Address.Hex())
	}
	return nil
}

func (a *Account) findBackup(addr common.Address) (int, bool) {
	for i, b := range a.Backups {
		if b.Address == addr {
			return i, true
		}
	}
	return -1, false
}

// Backup returns the registry record for addr.
func (a *Account) Backup(addr common.Address) (Backup, bool) {
	i, ok := a.findBackup(addr)
	if !ok {
		return Backup{}, false
	}
	return a.Backups[i], true
}

// BackupAt returns the record at index in registry order.
func (a *Account) BackupAt(index int) (Backup, bool) {
	if index < 0 || index >= len(a.Backups) {
		return Backup{}, false
	}
	return a.Backups[index], true
}

// CheckBackup reports whether addr is a usable backup at now.
func (a *Account) CheckBackup(addr common.Address, now time.Time) error {
	b, ok := a.Backup(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, addr.Hex())
	}
	return b.Usable(now)
}

func (a *Account) checkNewBackup(addr common.Address) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero backup address", ErrInvalidKeyValue)
	}
	if addr == a.Address {
		return ErrSelfBackupNotAllowed
	}
	return nil
}

// AddBackup registers addr, usable from now+delay. A lapsed record for the
// same address, or any lapsed slot, is reused before the list grows.
func (a *Account) AddBackup(addr common.Address, now time.Time, delay time.Duration, maxBackups int) error {
	if err := a.checkNewBackup(addr); err != nil {
		return err
	}
	entry := Backup{Address: addr, EffectiveAt: now.Add(delay)}

	if i, ok := a.findBackup(addr); ok {
		if !a.Backups[i].Expired(now) {
			return fmt.Errorf("%w: %s", ErrDuplicateBackup, addr.Hex())
		}
		a.Backups[i] = entry
		return nil
	}
	for i, b := range a.Backups {
		if b.Expired(now) {
			a.Backups[i] = entry
			return nil
		}
	}
	if len(a.Backups) >= maxBackups {
		return fmt.Errorf("%w: limit is %d", ErrTooManyBackups, maxBackups)
	}
	a.Backups = append(a.Backups, entry)
	return nil
}

// RemoveBackup schedules addr to lapse at now+delay.
func (a *Account) RemoveBackup(addr common.Address, now time.Time, delay time.Duration) error {
	i, ok := a.findBackup(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, addr.Hex())
	}
	b := a.Backups[i]
	if b.Expired(now) {
		return fmt.Errorf("%w: %s", ErrBackupExpired, addr.Hex())
	}
	if b.RemovalPending(now) {
		return fmt.Errorf("%w: removal of %s", ErrDuplicatePendingOperation, addr.Hex())
	}
	a.Backups[i].ExpiryAt = now.Add(delay)
	return nil
}

// CancelRemoveBackup clears a pending removal of addr.
func (a *Account) CancelRemoveBackup(addr common.Address, now time.Time) error {
	i, ok := a.findBackup(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, addr.Hex())
	}
	b := a.Backups[i]
	if b.ExpiryAt.IsZero() {
		return fmt.Errorf("%w: no removal scheduled for %s", ErrNoPendingOperation, addr.Hex())
	}
	if b.Expired(now) {
		return fmt.Errorf("%w: %s", ErrBackupExpired, addr.Hex())
	}
	a.Backups[i].ExpiryAt = time.Time{}
	return nil
}

// ABOUTME: Engine-level sentinel errors and the stable error-kind labels
// ABOUTME: Kinds are shared by the HTTP API responses and the metrics labels

package engine

import (
	"errors"

	"github.com/2389/keyward/internal/account"
	"github.com/2389/keyward/internal/action"
	"github.com/2389/keyward/internal/auth"
	"github.com/2389/keyward/internal/logic"
)

var (
	// ErrMissingNonce is returned when a signature that must carry a nonce has none.
	ErrMissingNonce = errors.New("nonce required")

	// ErrNotFound is returned by queries for an empty index, timelock or proposal.
	ErrNotFound = errors.New("not found")
)

// Error kinds. Order matters: the first match wins, so wrapping errors are
// listed before the causes they wrap.
var kinds = []struct {
	err  error
	kind string
}{
	{account.ErrUnauthorizedKey, "unauthorized_key"},
	{auth.ErrInvalidSignature, "unauthorized_key"},
	{account.ErrReplayedNonce, "replayed_nonce"},
	{account.ErrModuleNotAuthorized, "module_not_authorized"},
	{account.ErrNoPendingOperation, "no_pending_operation"},
	{account.ErrDuplicatePendingOperation, "duplicate_pending_operation"},
	{account.ErrTooEarly, "too_early"},
	{account.ErrHashMismatch, "hash_mismatch"},
	{account.ErrBackupNotFound, "backup_not_found"},
	{account.ErrBackupNotEffective, "backup_not_effective"},
	{account.ErrBackupExpired, "backup_expired"},
	{account.ErrDuplicateBackup, "duplicate_backup"},
	{account.ErrSelfBackupNotAllowed, "self_backup_not_allowed"},
	{account.ErrTooManyBackups, "too_many_backups"},
	{account.ErrInvalidProposalAction, "invalid_proposal_action"},
	{account.ErrProposalNotApproved, "proposal_not_approved"},
	{account.ErrSelfApproval, "self_approval"},
	{account.ErrInvalidKeyValue, "invalid_key_value"},
	{account.ErrInvalidKeyCount, "invalid_key_count"},
	{account.ErrAlreadyFrozen, "already_frozen"},
	{account.ErrNotFrozen, "not_frozen"},
	{account.ErrAccountNotFound, "account_not_found"},
	{account.ErrAlreadyInitialized, "already_initialized"},
	{account.ErrInvalidAccount, "invalid_account"},
	{action.ErrUnknownAction, "unknown_action"},
	{action.ErrMalformedCallData, "malformed_call_data"},
	{logic.ErrUnsupportedAction, "unsupported_action"},
	{ErrMissingNonce, "missing_nonce"},
	{ErrNotFound, "not_found"},
}

// ErrorKind returns the snake_case label for err, or "internal" for errors
// outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// ABOUTME: Sentinel errors for account authorization, timelock, backup and proposal failures
// ABOUTME: Callers match them with errors.Is; messages stay stable for API clients

package account

import "errors"

// Authorization errors
var (
	ErrUnauthorizedKey     = errors.New("unauthorized key")
	ErrReplayedNonce       = errors.New("nonce already used")
	ErrModuleNotAuthorized = errors.New("module not authorized")
)

// Timelock errors
var (
	ErrNoPendingOperation        = errors.New("no pending operation")
	ErrDuplicatePendingOperation = errors.New("operation already pending")
	ErrTooEarly                  = errors.New("too early")
	ErrHashMismatch              = errors.New("data hash mismatch")
)

// Backup errors
var (
	ErrBackupNotFound       = errors.New("backup not found")
	ErrBackupNotEffective   = errors.New("backup not yet effective")
	ErrBackupExpired        = errors.New("backup expired")
	ErrDuplicateBackup      = errors.New("backup already registered")
	ErrSelfBackupNotAllowed = errors.New("account cannot be its own backup")
	ErrTooManyBackups       = errors.New("too many backups")
)

// Proposal errors
var (
	ErrInvalidProposalAction = errors.New("action not allowed in proposal")
	ErrProposalNotApproved   = errors.New("proposal not approved")
	ErrSelfApproval          = errors.New("proposer backup cannot approve its own proposal")
)

// Key and account errors
var (
	ErrInvalidKeyValue    = errors.New("invalid key value")
	ErrInvalidKeyCount    = errors.New("invalid key count")
	ErrAlreadyFrozen      = errors.New("operation keys already frozen")
	ErrNotFrozen          = errors.New("operation keys not frozen")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAlreadyInitialized = errors.New("account already initialized")
	ErrInvalidAccount     = errors.New("invalid account")
)

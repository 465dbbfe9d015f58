// ABOUTME: Audit log entity and store methods for accepted authorization operations
// ABOUTME: Records which signer did what to which account through which module

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// AuditAction represents the path through which an operation entered.
type AuditAction string

const (
	AuditInitAccount     AuditAction = "init_account"
	AuditEnter           AuditAction = "enter"
	AuditEnterDual       AuditAction = "enter_dual"
	AuditTrigger         AuditAction = "trigger"
	AuditExecuteProposal AuditAction = "execute_proposal"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditInitAccount,
	AuditEnter,
	AuditEnterDual,
	AuditTrigger,
	AuditExecuteProposal,
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID        string         // UUID v4
	Account   common.Address // account whose state changed
	Actor     string         // signer address(es), operator name, or "anyone"
	Module    common.Address // zero for permissionless operations
	Action    AuditAction    // entry path
	Method    string         // decoded action method
	Timestamp time.Time      // when it happened
	Detail    map[string]any // additional context
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since   *time.Time      // entries at or after this time
	Until   *time.Time      // entries at or before this time
	Account *common.Address // filter by account
	Action  *AuditAction    // filter by entry path
	Method  *string         // filter by action method
	Limit   int             // max results (default 100, max 1000)
}

// appendAuditLog inserts e, filling ID and Timestamp if unset.
func appendAuditLog(ctx context.Context, q querier, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	var module any
	if e.Module != (common.Address{}) {
		module = e.Module.Hex()
	}

	query := `
		INSERT INTO audit_log (audit_id, account, actor, module, action, method, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		e.ID,
		e.Account.Hex(),
		e.Actor,
		module,
		e.Action,
		e.Method,
		e.Timestamp.UTC().Format(time.RFC3339),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// auditQueryArgs holds the string forms of optional filter fields.
type auditQueryArgs struct {
	sinceStr   *string
	untilStr   *string
	accountStr *string
	actionStr  *string
}

// buildAuditQueryArgs converts filter fields to query args.
func buildAuditQueryArgs(f AuditFilter) auditQueryArgs {
	var args auditQueryArgs
	if f.Since != nil {
		s := f.Since.UTC().Format(time.RFC3339)
		args.sinceStr = &s
	}
	if f.Until != nil {
		s := f.Until.UTC().Format(time.RFC3339)
		args.untilStr = &s
	}
	if f.Account != nil {
		a := f.Account.Hex()
		args.accountStr = &a
	}
	if f.Action != nil {
		a := string(*f.Action)
		args.actionStr = &a
	}
	return args
}

// scanAuditEntry scans a row into an AuditEntry.
func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (AuditEntry, error) {
	var e AuditEntry
	var accountStr, actionStr, tsStr string
	var moduleStr, detailJSON *string

	if err := scanner.Scan(
		&e.ID,
		&accountStr,
		&e.Actor,
		&moduleStr,
		&actionStr,
		&e.Method,
		&tsStr,
		&detailJSON,
	); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Account = common.HexToAddress(accountStr)
	if moduleStr != nil {
		e.Module = common.HexToAddress(*moduleStr)
	}
	e.Action = AuditAction(actionStr)
	var err error
	e.Timestamp, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

const auditLogQuery = `
	SELECT audit_id, account, actor, module, action, method, ts, detail_json
	FROM audit_log
	WHERE (? IS NULL OR ts >= ?)
	  AND (? IS NULL OR ts <= ?)
	  AND (? IS NULL OR account = ?)
	  AND (? IS NULL OR action = ?)
	  AND (? IS NULL OR method = ?)
	ORDER BY ts DESC, rowid DESC
	LIMIT ?
`

// ListAuditLog returns audit entries matching the filter criteria.
// Results are returned newest first.
func (s *SQLiteStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	limit := normalizeAuditLimit(f.Limit)
	args := buildAuditQueryArgs(f)

	rows, err := s.db.QueryContext(ctx, auditLogQuery,
		args.sinceStr, args.sinceStr,
		args.untilStr, args.untilStr,
		args.accountStr, args.accountStr,
		args.actionStr, args.actionStr,
		f.Method, f.Method,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}

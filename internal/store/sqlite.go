// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists account aggregates in normalized tables with serialized transactions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"

	"github.com/2389/keyward/internal/account"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection serializes every transaction against the ledger.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			address         TEXT PRIMARY KEY,
			manager         TEXT NOT NULL,
			storage         TEXT NOT NULL,
			operation_slots INTEGER NOT NULL,
			created_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS account_modules (
			account  TEXT NOT NULL,
			position INTEGER NOT NULL,
			module   TEXT NOT NULL,
			PRIMARY KEY (account, position),
			FOREIGN KEY (account) REFERENCES accounts(address) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS account_keys (
			account TEXT NOT NULL,
			slot    INTEGER NOT NULL,
			address TEXT NOT NULL,
			status  TEXT NOT NULL,
			PRIMARY KEY (account, slot),
			FOREIGN KEY (account) REFERENCES accounts(address) ON DELETE CASCADE,
			CHECK (status IN ('active', 'frozen'))
		);

		CREATE TABLE IF NOT EXISTS backups (
			account      TEXT NOT NULL,
			position     INTEGER NOT NULL,
			address      TEXT NOT NULL,
			effective_at INTEGER NOT NULL,
			expiry_at    INTEGER,
			PRIMARY KEY (account, position),
			FOREIGN KEY (account) REFERENCES accounts(address) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_backups_address ON backups(address);

		CREATE TABLE IF NOT EXISTS timelocks (
			account     TEXT NOT NULL,
			selector    TEXT NOT NULL,
			data_hash   TEXT NOT NULL,
			eligible_at INTEGER NOT NULL,
			PRIMARY KEY (account, selector),
			FOREIGN KEY (account) REFERENCES accounts(address) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS proposals (
			client          TEXT NOT NULL,
			proposer        TEXT NOT NULL,
			selector        TEXT NOT NULL,
			data_hash       TEXT NOT NULL,
			proposer_backup TEXT NOT NULL,
			approver_backup TEXT,
			created_at      INTEGER NOT NULL,
			PRIMARY KEY (client, proposer, selector),
			FOREIGN KEY (client) REFERENCES accounts(address) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS nonces (
			signer TEXT NOT NULL,
			nonce  TEXT NOT NULL,
			PRIMARY KEY (signer, nonce)
		);

		CREATE TABLE IF NOT EXISTS audit_log (
			audit_id    TEXT PRIMARY KEY,
			account     TEXT NOT NULL,
			actor       TEXT NOT NULL,
			module      TEXT,
			action      TEXT NOT NULL,
			method      TEXT NOT NULL,
			ts          TEXT NOT NULL,
			detail_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_account_ts ON audit_log(account, ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// WithTx runs fn inside a database transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&sqliteTx{tx: sqlTx, logger: s.logger}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("rolling back transaction", "error", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetAccount loads an account outside of any transaction.
func (s *SQLiteStore) GetAccount(ctx context.Context, addr common.Address) (*account.Account, error) {
	return loadAccount(ctx, s.db, addr)
}

// NonceUsed reports whether signer has consumed nonce.
func (s *SQLiteStore) NonceUsed(ctx context.Context, signer common.Address, nonce *uint256.Int) (bool, error) {
	return nonceUsed(ctx, s.db, signer, nonce)
}

// sqliteTx implements Tx on a *sql.Tx.
type sqliteTx struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (t *sqliteTx) GetAccount(ctx context.Context, addr common.Address) (*account.Account, error) {
	return loadAccount(ctx, t.tx, addr)
}

func (t *sqliteTx) NonceUsed(ctx context.Context, signer common.Address, nonce *uint256.Int) (bool, error) {
	return nonceUsed(ctx, t.tx, signer, nonce)
}

func (t *sqliteTx) CreateAccount(ctx context.Context, a *account.Account) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (address, manager, storage, operation_slots, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.Address.Hex(), a.Manager.Hex(), a.Storage.Hex(), len(a.Operation), toNanos(a.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", account.ErrAlreadyInitialized, a.Address.Hex())
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	if err := writeChildren(ctx, t.tx, a); err != nil {
		return err
	}
	t.logger.Debug("created account", "account", a.Address.Hex())
	return nil
}

func (t *sqliteTx) SaveAccount(ctx context.Context, a *account.Account) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts SET manager = ?, storage = ?, operation_slots = ?
		WHERE address = ?
	`, a.Manager.Hex(), a.Storage.Hex(), len(a.Operation), a.Address.Hex())
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", account.ErrAccountNotFound, a.Address.Hex())
	}
	return writeChildren(ctx, t.tx, a)
}

func (t *sqliteTx) ConsumeNonce(ctx context.Context, signer common.Address, nonce *uint256.Int) error {
	used, err := nonceUsed(ctx, t.tx, signer, nonce)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %s by %s", account.ErrReplayedNonce, nonce.Dec(), signer.Hex())
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO nonces (signer, nonce) VALUES (?, ?)`,
		signer.Hex(), nonceKey(nonce),
	); err != nil {
		return fmt.Errorf("recording nonce: %w", err)
	}
	return nil
}

func (t *sqliteTx) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if err := appendAuditLog(ctx, t.tx, e); err != nil {
		return err
	}
	t.logger.Debug("appended audit log",
		"id", e.ID,
		"account", e.Account.Hex(),
		"action", e.Action,
		"method", e.Method,
	)
	return nil
}

func nonceUsed(ctx context.Context, q querier, signer common.Address, nonce *uint256.Int) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM nonces WHERE signer = ? AND nonce = ?`,
		signer.Hex(), nonceKey(nonce),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying nonce: %w", err)
	}
	return true, nil
}

func loadAccount(ctx context.Context, q querier, addr common.Address) (*account.Account, error) {
	var manager, storage string
	var slots int
	var created int64
	err := q.QueryRowContext(ctx, `
		SELECT manager, storage, operation_slots, created_at
		FROM accounts WHERE address = ?
	`, addr.Hex()).Scan(&manager, &storage, &slots, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", account.ErrAccountNotFound, addr.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	a := &account.Account{
		Address:   addr,
		Manager:   common.HexToAddress(manager),
		Storage:   common.HexToAddress(storage),
		Operation: make([]account.KeySlot, slots),
		Timelocks: make(map[account.Selector]account.Timelock),
		Proposals: make(map[account.ProposalKey]account.Proposal),
		CreatedAt: fromNanos(created),
	}

	err = queryEach(ctx, q, `SELECT module FROM account_modules WHERE account = ? ORDER BY position`,
		[]any{addr.Hex()}, func(rows *sql.Rows) error {
			var module string
			if err := rows.Scan(&module); err != nil {
				return err
			}
			a.Modules = append(a.Modules, common.HexToAddress(module))
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading modules: %w", err)
	}

	err = queryEach(ctx, q, `SELECT slot, address, status FROM account_keys WHERE account = ? ORDER BY slot`,
		[]any{addr.Hex()}, func(rows *sql.Rows) error {
			var slot int
			var keyAddr, status string
			if err := rows.Scan(&slot, &keyAddr, &status); err != nil {
				return err
			}
			k := account.KeySlot{Address: common.HexToAddress(keyAddr), Status: parseKeyStatus(status)}
			switch {
			case slot == 0:
				a.Admin = k
			case slot >= 1 && slot <= slots:
				a.Operation[slot-1] = k
			case slot == slots+1:
				a.Assist = k
			default:
				return fmt.Errorf("key slot %d out of range", slot)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading keys: %w", err)
	}

	err = queryEach(ctx, q, `SELECT address, effective_at, expiry_at FROM backups WHERE account = ? ORDER BY position`,
		[]any{addr.Hex()}, func(rows *sql.Rows) error {
			var backupAddr string
			var effective int64
			var expiry sql.NullInt64
			if err := rows.Scan(&backupAddr, &effective, &expiry); err != nil {
				return err
			}
			b := account.Backup{Address: common.HexToAddress(backupAddr), EffectiveAt: fromNanos(effective)}
			if expiry.Valid {
				b.ExpiryAt = fromNanos(expiry.Int64)
			}
			a.Backups = append(a.Backups, b)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading backups: %w", err)
	}

	err = queryEach(ctx, q, `SELECT selector, data_hash, eligible_at FROM timelocks WHERE account = ?`,
		[]any{addr.Hex()}, func(rows *sql.Rows) error {
			var selStr, hash string
			var eligible int64
			if err := rows.Scan(&selStr, &hash, &eligible); err != nil {
				return err
			}
			sel, err := account.ParseSelector(selStr)
			if err != nil {
				return err
			}
			a.Timelocks[sel] = account.Timelock{Selector: sel, DataHash: common.HexToHash(hash), EligibleAt: fromNanos(eligible)}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loading timelocks: %w", err)
	}

	err = queryEach(ctx, q, `
		SELECT proposer, selector, data_hash, proposer_backup, approver_backup, created_at
		FROM proposals WHERE client = ?
	`, []any{addr.Hex()}, func(rows *sql.Rows) error {
		var proposer, selStr, hash, proposerBackup string
		var approver sql.NullString
		var created int64
		if err := rows.Scan(&proposer, &selStr, &hash, &proposerBackup, &approver, &created); err != nil {
			return err
		}
		sel, err := account.ParseSelector(selStr)
		if err != nil {
			return err
		}
		p := account.Proposal{
			ProposalKey:    account.ProposalKey{Proposer: common.HexToAddress(proposer), Selector: sel},
			DataHash:       common.HexToHash(hash),
			ProposerBackup: common.HexToAddress(proposerBackup),
			CreatedAt:      fromNanos(created),
		}
		if approver.Valid {
			p.ApproverBackup = common.HexToAddress(approver.String)
		}
		a.Proposals[p.ProposalKey] = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading proposals: %w", err)
	}

	return a, nil
}

// writeChildren replaces every child row of a with its current state.
func writeChildren(ctx context.Context, q querier, a *account.Account) error {
	owner := a.Address.Hex()

	for _, table := range []string{"account_modules", "account_keys", "backups", "timelocks"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE account = ?", owner); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM proposals WHERE client = ?", owner); err != nil {
		return fmt.Errorf("clearing proposals: %w", err)
	}

	for i, m := range a.Modules {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO account_modules (account, position, module) VALUES (?, ?, ?)`,
			owner, i, m.Hex(),
		); err != nil {
			return fmt.Errorf("inserting module: %w", err)
		}
	}

	slots := make([]account.KeySlot, 0, a.KeyCount())
	slots = append(slots, a.Admin)
	slots = append(slots, a.Operation...)
	slots = append(slots, a.Assist)
	for i, k := range slots {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO account_keys (account, slot, address, status) VALUES (?, ?, ?, ?)`,
			owner, i, k.Address.Hex(), k.Status.String(),
		); err != nil {
			return fmt.Errorf("inserting key slot %d: %w", i, err)
		}
	}

	for i, b := range a.Backups {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO backups (account, position, address, effective_at, expiry_at) VALUES (?, ?, ?, ?, ?)`,
			owner, i, b.Address.Hex(), toNanos(b.EffectiveAt), nullNanos(b.ExpiryAt),
		); err != nil {
			return fmt.Errorf("inserting backup: %w", err)
		}
	}

	for sel, tl := range a.Timelocks {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO timelocks (account, selector, data_hash, eligible_at) VALUES (?, ?, ?, ?)`,
			owner, sel.String(), tl.DataHash.Hex(), toNanos(tl.EligibleAt),
		); err != nil {
			return fmt.Errorf("inserting timelock: %w", err)
		}
	}

	for key, p := range a.Proposals {
		var approver any
		if p.Approved() {
			approver = p.ApproverBackup.Hex()
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO proposals (client, proposer, selector, data_hash, proposer_backup, approver_backup, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, owner, key.Proposer.Hex(), key.Selector.String(), p.DataHash.Hex(),
			p.ProposerBackup.Hex(), approver, toNanos(p.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting proposal: %w", err)
		}
	}

	return nil
}

// queryEach runs query and calls fn for every row.
func queryEach(ctx context.Context, q querier, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// isConstraintViolation checks if the error is a SQLite constraint violation.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

func parseKeyStatus(s string) account.KeyStatus {
	if s == account.KeyFrozen.String() {
		return account.KeyFrozen
	}
	return account.KeyActive
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func nullNanos(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixNano()
}

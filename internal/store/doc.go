// Package store persists keyward state.
//
// # Architecture
//
// The Store interface exposes read queries and a single write path, WithTx.
// The engine performs every signed entry, trigger and proposal execution
// inside one transaction: the account rows it changes, the nonce it consumes
// and the audit entry it appends commit or roll back together.
//
// Two implementations are provided:
//
//   - SQLiteStore: durable storage on modernc.org/sqlite. The pool is limited
//     to one connection, so transactions are serialized.
//   - MockStore: in-memory maps guarded by a mutex, staging writes until commit.
//
// # Tables
//
//   - accounts: address, manager, storage, operation slot count, created_at
//   - account_modules: enabled modules per account, in order
//   - account_keys: key slots (0 admin, 1..N operation, N+1 assist) with status
//   - backups: backup registry with effective/expiry times
//   - timelocks: pending delayed actions per (account, selector)
//   - proposals: recovery proposals per (client, proposer, selector)
//   - nonces: consumed (signer, nonce) pairs; signers need not be accounts
//   - audit_log: append-only record of accepted operations
//
// Times are stored as Unix nanoseconds; a NULL expiry means "never".
package store

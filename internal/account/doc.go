// Package account holds the per-account authorization state of keyward.
//
// # Overview
//
// An Account aggregates everything the signature gateway consults or mutates
// for one self-custodied account:
//
//   - Keys: one Admin slot, a fixed number of Operation slots and one Assist slot
//   - Backups: addresses allowed to drive recovery, with effective/expiry windows
//   - Timelocks: at most one pending delayed action per selector
//   - Proposals: recovery proposals keyed by (proposer, selector)
//
// The aggregate is a plain value. Persistence, nonce bookkeeping and
// transactional atomicity live in the store package; signature checks and
// action dispatch live in the engine and logic packages.
//
// # Key slots
//
// Slot indices are stable and exposed by the query API:
//
//	0          admin
//	1..N       operation keys (N = Params.OperationKeySlots, empty slots hold the zero address)
//	N+1        assist
//
// Only operation keys can be frozen. Freezing never touches the admin key, so
// the admin can always unfreeze after the security delay.
//
// # Time
//
// Every mutator takes the current time explicitly. Callers obtain it from a
// Clock so tests can drive timelock and backup windows with ManualClock.
package account

// Package logic implements the state transitions behind keyward's modules.
//
// # Modules
//
// A Module is a stateless strategy bound to a registry entry by name:
//
//   - account: single-signer actions (key management, freeze, timelock
//     cancellation, backup removal and backup-driven proposals)
//   - dualsigs: actions that need the client admin and a backup to co-sign
//     (addBackup, proposeByBoth)
//
// Signers tells the gateway which keys must have signed an action. Apply
// performs the action against a Session once those signatures were accepted.
//
// # Delayed actions
//
// changeAdminKey, changeAllOperationKeys and unfreeze arm a timelock when
// entered. changeAdminKeyByBackup arms one when its recovery proposal is
// executed. Trigger completes any of them after the security delay; it needs
// no signature because the stored hash already commits to the parameters.
//
// # Recovery proposals
//
// A backup proposes with proposeAsBackup, or the client and a backup propose
// together with proposeByBoth. A second, distinct backup approves. Anyone may
// then execute: changeAdminKeyWithoutDelay applies at once, while
// changeAdminKeyByBackup hands off to the timelock.
package logic

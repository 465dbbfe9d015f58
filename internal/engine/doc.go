// Package engine is keyward's signature gateway.
//
// Enter and EnterDual accept signed call data for a registered module. For
// each required signer the engine checks, in order:
//
//  1. the module is authorized in the registry and enabled on the account
//  2. the nonce has not been consumed by that signer (it is consumed now)
//  3. the signature recovers to the key the role requires, and that key is active
//
// The module then applies the action. All of it happens in one store
// transaction, so a rejected entry consumes no nonce and changes no state.
//
// Triggers, proposal execution and account creation take no signatures.
// Queries read committed state only.
package engine

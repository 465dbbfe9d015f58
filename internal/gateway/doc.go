// Package gateway is the keyward HTTP server.
//
// # Overview
//
// The gateway opens the SQLite store, builds the module registry from
// configuration and serves the engine over a JSON API:
//
//	POST /api/accounts                                          create an account (operator token)
//	POST /api/enter                                             single-signature entry
//	POST /api/enter/dual                                        dual-signature entry
//	POST /api/trigger                                           complete a delayed action
//	POST /api/proposals/execute                                 execute an approved proposal
//	GET  /api/accounts/{address}                                account snapshot
//	GET  /api/accounts/{address}/keys/{index}                   key slot
//	GET  /api/accounts/{address}/backups/{index}                backup record
//	GET  /api/accounts/{address}/timelocks/{selector}           pending delayed action
//	GET  /api/accounts/{address}/proposals/{proposer}/{selector} pending proposal
//	GET  /api/nonces/{signer}/{nonce}                           replay guard lookup
//	GET  /api/modules/{address}                                 registry authorization
//	GET  /api/audit                                             audit log
//
// Addresses, call data and signatures are 0x-hex strings. Nonces are decimal
// or 0x-hex; an empty nonce means none was signed.
//
// # Errors
//
// Failures are returned as {"error": "...", "kind": "..."}. The kind is the
// engine's stable error label, or "bad_request" for input the gateway could
// not parse. Kinds map to status codes: authorization failures are 403,
// missing entries 404, replays and duplicates 409, early triggers 425 and
// other rule violations 422.
//
// # Authentication
//
// With auth.jwt_secret set, account creation requires an HS256 bearer token
// whose subject names the operator. Signed entries authenticate themselves.
//
// # Metrics
//
// When metrics are enabled, keyward_operations_total counts every mutating
// request by operation and result kind.
package gateway

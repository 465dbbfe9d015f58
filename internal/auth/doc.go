// Package auth verifies who is allowed to drive keyward.
//
// # Entry signatures
//
// Every signed entry carries a 65-byte r||s||v secp256k1 signature over
//
//	TextHash(keccak256(0x19 || 0x00 || module || callData || nonce))
//
// where module is the 20-byte identity of the logic module being entered and
// nonce is the 32-byte big-endian replay nonce (omitted when zero). Recovery
// ids 0/1 are normalized to 27/28 and high-s signatures are rejected, so each
// (key, digest) pair has exactly one accepted encoding.
//
//	digest := auth.Digest(module, callData, nonce)
//	signer, err := auth.Recover(digest, sig)
//
// Which key the recovered address must match is decided by the engine from
// the action's role requirements.
//
// # Operator tokens
//
// Account creation over HTTP is restricted to operators holding an HS256 JWT
// signed with auth.jwt_secret. Tokens carry iss "keyward", the operator name
// in sub and a space-separated scope claim; POST /api/accounts needs the
// init_account scope. Tokens are minted with `keyward token`.
package auth

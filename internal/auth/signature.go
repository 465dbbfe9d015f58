// ABOUTME: Recoverable secp256k1 signature verification for gateway entries
// ABOUTME: Builds the domain-separated digest and recovers the signing address

package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SignatureLength is the size of an r||s||v signature.
const SignatureLength = 65

// ErrInvalidSignature is returned for signatures that cannot be recovered.
var ErrInvalidSignature = errors.New("invalid signature")

// digestPrefix separates entry digests from other signed payloads.
var digestPrefix = []byte{0x19, 0x00}

// Digest returns the hash a key signs to enter through module with callData.
// The preimage is 0x19 0x00 || module || callData || nonce (32 bytes), hashed
// with keccak256 and wrapped as an Ethereum signed message. A nil or zero
// nonce is left out of the preimage.
func Digest(module common.Address, callData []byte, nonce *uint256.Int) common.Hash {
	preimage := make([]byte, 0, len(digestPrefix)+common.AddressLength+len(callData)+32)
	preimage = append(preimage, digestPrefix...)
	preimage = append(preimage, module.Bytes()...)
	preimage = append(preimage, callData...)
	if nonce != nil && !nonce.IsZero() {
		word := nonce.Bytes32()
		preimage = append(preimage, word[:]...)
	}
	return common.BytesToHash(accounts.TextHash(ethcrypto.Keccak256(preimage)))
}

// NormalizeSignature returns a copy of sig with a recovery id of 0/1 shifted to 27/28.
func NormalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	if out[64] < 27 {
		out[64] += 27
	}
	if out[64] != 27 && out[64] != 28 {
		return nil, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig[64])
	}
	return out, nil
}

// Recover returns the address whose key produced sig over digest.
// Signatures with a high s value are rejected.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	norm, err := NormalizeSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	v := norm[64] - 27
	r := new(big.Int).SetBytes(norm[:32])
	s := new(big.Int).SetBytes(norm[32:64])
	if !ethcrypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, fmt.Errorf("%w: signature values out of range", ErrInvalidSignature)
	}
	norm[64] = v
	pub, err := ethcrypto.SigToPub(digest.Bytes(), norm)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Sign produces a 27/28-style signature over digest.
func Sign(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := ethcrypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("signing digest: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// Package keccak wraps the Keccak-256 hash used throughout Ethereum: for
// address derivation, EIP-712 digests, ABI function selectors, and
// transaction hashing. It exists so every caller shares one adapter with
// a uniform bytes-to-32-byte-digest contract, instead of reaching for
// golang.org/x/crypto/sha3 directly.
package keccak

import "golang.org/x/crypto/sha3"

// Sum256 returns the 32-byte Keccak-256 digest of data. Note this is the
// original Keccak submission, not NIST SHA-3 (which pads differently).
func Sum256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sum256Slice is Sum256 with a []byte return, for callers that would
// otherwise immediately slice the array.
func Sum256Slice(data ...[]byte) []byte {
	d := Sum256(data...)
	return d[:]
}

// Package secp wraps secp256k1 ECDSA signing over a 32-byte digest,
// producing a canonical low-S signature plus Ethereum-style recovery
// parameter. It exists so every caller (account signing, EIP-712
// signing) shares one adapter with a uniform digest×privkey→(v,r,s)
// contract.
package secp

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	secpecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Signature is a secp256k1 ECDSA signature in Ethereum's (v, r, s) shape.
// V is the recovery parameter plus 27 (i.e. 27 or 28); callers applying
// EIP-155 replay protection derive their own v from the recovery id.
type Signature struct {
	V byte
	R [32]byte
	S [32]byte
}

// RecoveryID returns the raw 0/1 recovery id encoded in V.
func (sig Signature) RecoveryID() byte {
	return sig.V - 27
}

// Sign produces a canonical-low-S ECDSA signature over digest (which must
// be 32 bytes, the output of a hash function — this package never hashes
// on the caller's behalf) using a raw 32-byte private key.
func Sign(digest []byte, privKeyBytes []byte) (Signature, error) {
	if len(digest) != 32 {
		return Signature{}, fmt.Errorf("secp: digest must be 32 bytes, got %d", len(digest))
	}

	btcPriv, _ := btcec.PrivKeyFromBytes(privKeyBytes)

	// SignCompact produces a canonical low-S signature with the recovery
	// id folded into the leading byte: 27+recid for an uncompressed key.
	compact := secpecdsa.SignCompact(btcPriv, digest, false)
	if len(compact) != 65 {
		return Signature{}, fmt.Errorf("secp: unexpected compact signature length %d", len(compact))
	}

	var sig Signature
	sig.V = compact[0]
	copy(sig.R[:], compact[1:33])
	copy(sig.S[:], compact[33:65])
	return sig, nil
}

// PublicKeyFromPrivateKey derives the uncompressed (65-byte, 0x04-prefixed)
// and compressed (33-byte) public key encodings for a raw private key.
func PublicKeyFromPrivateKey(privKeyBytes []byte) (uncompressed []byte, compressed []byte) {
	_, pub := btcec.PrivKeyFromBytes(privKeyBytes)
	return pub.SerializeUncompressed(), pub.SerializeCompressed()
}

// DecompressPublicKey expands a compressed or already-uncompressed public
// key into its 65-byte uncompressed form.
func DecompressPublicKey(pubKeyBytes []byte) ([]byte, error) {
	pub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("secp: parse public key: %w", err)
	}
	return pub.SerializeUncompressed(), nil
}

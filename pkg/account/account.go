// Package account holds Ethereum key material and produces secp256k1
// signatures over arbitrary 32-byte digests.
package account

import (
	"encoding/hex"
	"fmt"

	"github.com/chainkit/usdc-go/internal/secp"
	"github.com/chainkit/usdc-go/pkg/addrutil"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

// Signature is a secp256k1 ECDSA signature in Ethereum's (v, r, s) shape,
// with v already resolved to {27, 28} and r/s canonical low-S, hex-encoded
// as 32-byte big-endian values.
type Signature struct {
	V byte
	R string // 0x-prefixed 32-byte hex
	S string // 0x-prefixed 32-byte hex
}

// Account holds a private/public keypair and the checksum address derived
// from it. Zero value is not usable; construct with New or FromPrivateKey.
type Account struct {
	privKey []byte // 32 bytes, never logged or printed
	pubKey  []byte // uncompressed, 65 bytes, 0x04-prefixed
	address string // EIP-55 checksum, 0x-prefixed
}

// New builds an Account from a 32-byte private key and a public key
// (compressed 33 bytes or uncompressed 65 bytes, either accepted).
func New(privKey, pubKey []byte) (*Account, error) {
	if len(privKey) != 32 {
		return nil, &werrors.InvalidParameter{Field: "privKey", Reason: "must be 32 bytes"}
	}

	uncompressed := pubKey
	if len(pubKey) == 33 {
		var err error
		uncompressed, err = secp.DecompressPublicKey(pubKey)
		if err != nil {
			return nil, err
		}
	} else if len(pubKey) != 65 {
		return nil, &werrors.InvalidParameter{Field: "pubKey", Reason: "must be 33 or 65 bytes"}
	}

	address, err := addrutil.AddressFromUncompressedPubKey(uncompressed)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		privKey: append([]byte(nil), privKey...),
		pubKey:  append([]byte(nil), uncompressed...),
		address: address,
	}
	return acc, nil
}

// FromPrivateKey derives the public key and address from privKey alone.
func FromPrivateKey(privKey []byte) (*Account, error) {
	if len(privKey) != 32 {
		return nil, &werrors.InvalidParameter{Field: "privKey", Reason: "must be 32 bytes"}
	}
	uncompressed, _ := secp.PublicKeyFromPrivateKey(privKey)
	return New(privKey, uncompressed)
}

// Address returns the EIP-55 checksum address, 0x-prefixed.
func (a *Account) Address() string { return a.address }

// PublicKeyHex returns the uncompressed public key as 0x-prefixed hex.
func (a *Account) PublicKeyHex() string { return "0x" + hex.EncodeToString(a.pubKey) }

// PrivateKeyHex returns the private key as 0x-prefixed hex. This is the
// only surface that exposes key material; callers must treat the result
// as sensitive.
func (a *Account) PrivateKeyHex() string { return "0x" + hex.EncodeToString(a.privKey) }

// PrivateKeyBytes returns a copy of the raw 32-byte private key.
func (a *Account) PrivateKeyBytes() []byte { return append([]byte(nil), a.privKey...) }

// String redacts private key material, matching the debug/enumeration
// surface rule: private keys are never printed.
func (a *Account) String() string {
	return fmt.Sprintf("Account{address: %s}", a.address)
}

// Sign computes a secp256k1 ECDSA signature over a 32-byte digest with
// canonical low-S, returning v in {27, 28}.
func (a *Account) Sign(digest []byte) (Signature, error) {
	if len(digest) != 32 {
		return Signature{}, &werrors.InvalidParameter{Field: "digest", Reason: "must be 32 bytes"}
	}
	sig, err := secp.Sign(digest, a.privKey)
	if err != nil {
		return Signature{}, fmt.Errorf("account: sign: %w", err)
	}
	return Signature{
		V: sig.V,
		R: "0x" + hex.EncodeToString(sig.R[:]),
		S: "0x" + hex.EncodeToString(sig.S[:]),
	}, nil
}

// Package addrutil implements Ethereum address validation and EIP-55
// checksum casing.
package addrutil

import (
	"strings"

	"github.com/chainkit/usdc-go/internal/keccak"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

// IsValidAddress reports whether s is 20 hex bytes (with or without a
// "0x" prefix) and is either all one case or correctly EIP-55 checksummed.
func IsValidAddress(s string) bool {
	hexPart := strings.TrimPrefix(s, "0x")
	if len(hexPart) != 40 {
		return false
	}
	if !isAllHex(hexPart) {
		return false
	}
	lower := strings.ToLower(hexPart)
	upper := strings.ToUpper(hexPart)
	if hexPart == lower || hexPart == upper {
		return true
	}
	return hexPart == checksumCasing(lower)
}

func isAllHex(s string) bool {
	for _, r := range s {
		isDigit := r >= '0' && r <= '9'
		isLower := r >= 'a' && r <= 'f'
		isUpper := r >= 'A' && r <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// ChecksumAddress rewrites any valid address to EIP-55 mixed-case form,
// with a "0x" prefix.
func ChecksumAddress(s string) (string, error) {
	hexPart := strings.TrimPrefix(s, "0x")
	if len(hexPart) != 40 || !isAllHex(hexPart) {
		return "", &werrors.InvalidAddress{Value: s}
	}
	return "0x" + checksumCasing(strings.ToLower(hexPart)), nil
}

// checksumCasing implements EIP-55: the hash of the lowercase hex address
// determines, nibble by nibble, whether each hex letter is upper- or
// lower-cased.
func checksumCasing(lowerHex string) string {
	hash := keccak.Sum256([]byte(lowerHex))
	out := make([]byte, len(lowerHex))
	for i, c := range []byte(lowerHex) {
		if c >= 'a' && c <= 'f' {
			// hash nibble i: high nibble of byte i/2 when i even, low when odd
			var nibble byte
			if i%2 == 0 {
				nibble = hash[i/2] >> 4
			} else {
				nibble = hash[i/2] & 0x0f
			}
			if nibble >= 8 {
				out[i] = c - 'a' + 'A'
				continue
			}
		}
		out[i] = c
	}
	return string(out)
}

// EnsureValidAddress validates and normalizes s to EIP-55 checksum form,
// failing with InvalidAddress if s is not a valid address.
func EnsureValidAddress(s string) (string, error) {
	if !IsValidAddress(s) {
		return "", &werrors.InvalidAddress{Value: s}
	}
	return ChecksumAddress(s)
}

// AddressFromUncompressedPubKey derives the checksum Ethereum address from
// an uncompressed secp256k1 public key (65 bytes, 0x04-prefixed): the last
// 20 bytes of Keccak-256 of the public key with its prefix byte stripped.
func AddressFromUncompressedPubKey(pubKey []byte) (string, error) {
	if len(pubKey) != 65 || pubKey[0] != 0x04 {
		return "", &werrors.InvalidParameter{Field: "pubKey", Reason: "expected 65-byte uncompressed key with 0x04 prefix"}
	}
	hash := keccak.Sum256(pubKey[1:])
	addrHex := hash[12:]
	return ChecksumAddress(string(hexChars(addrHex)))
}

func hexChars(b []byte) []byte {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return out
}

// Package numeric implements the hex/byte/decimal conversions that every
// other package in this module builds on: arbitrary-precision integers,
// fixed-width big-endian byte strings, decimal strings with configurable
// fractional precision, and hexadecimal strings.
package numeric

import (
	"encoding/hex"
	"math/big"
	"regexp"
	"strings"

	"github.com/chainkit/usdc-go/pkg/werrors"
)

// MaxSafeInteger is the largest integer value this module will decode
// without raising Overflow, matching JavaScript's Number.MAX_SAFE_INTEGER
// (2^53 - 1) since downstream callers historically relied on that bound.
const MaxSafeInteger = 1<<53 - 1

var decimalPattern = regexp.MustCompile(`^\d*(\.\d*)?$`)

// IsHex reports whether s is the empty string or an optionally
// "0x"-prefixed run of hex digits.
func IsHex(s string) bool {
	stripped := strings.TrimPrefix(s, "0x")
	if stripped == "" {
		return true
	}
	for _, r := range stripped {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// EnsureHex validates s as hex and returns a normalized form: "0x"-prefixed
// unless addPrefix is false, and left-padded by a single zero nibble when
// evenLength is requested and the stripped hex has odd length.
func EnsureHex(s string, name string, addPrefix bool, evenLength bool) (string, error) {
	if !IsHex(s) {
		return "", &werrors.InvalidHex{Value: s, Name: name}
	}
	stripped := strings.TrimPrefix(s, "0x")
	if evenLength && len(stripped)%2 == 1 {
		stripped = "0" + stripped
	}
	if addPrefix {
		return "0x" + stripped, nil
	}
	return stripped, nil
}

// BytesFromHex strips an optional "0x" prefix, left-pads a single zero
// nibble if the remaining string has odd length, then decodes it.
func BytesFromHex(s string) ([]byte, error) {
	if !IsHex(s) {
		return nil, &werrors.InvalidHex{Value: s}
	}
	stripped := strings.TrimPrefix(s, "0x")
	if len(stripped)%2 == 1 {
		stripped = "0" + stripped
	}
	b, err := hex.DecodeString(stripped)
	if err != nil {
		return nil, &werrors.InvalidHex{Value: s}
	}
	return b, nil
}

// HexFromBytes renders b as lowercase hex, "0x"-prefixed unless addPrefix
// is false.
func HexFromBytes(b []byte, addPrefix bool) string {
	s := hex.EncodeToString(b)
	if addPrefix {
		return "0x" + s
	}
	return s
}

// BytesFromInt returns the canonical minimal big-endian encoding of n: no
// leading zero bytes, and 0 encodes as the empty slice.
func BytesFromInt(n int64) []byte {
	return BytesFromBigInt(big.NewInt(n))
}

// BytesFromBigInt returns the canonical minimal big-endian encoding of n.
// Negative values are encoded by their absolute magnitude; callers needing
// two's-complement representations (ABI intN) must apply that separately.
func BytesFromBigInt(n *big.Int) []byte {
	if n == nil || n.Sign() == 0 {
		return []byte{}
	}
	return new(big.Int).Abs(n).Bytes()
}

// BigIntFromBytes is the inverse of BytesFromBigInt: an unsigned
// big-endian decode.
func BigIntFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// IntFromHex decodes a hex string to an int64, rejecting values beyond
// MaxSafeInteger.
func IntFromHex(s string) (int64, error) {
	b, err := BytesFromHex(s)
	if err != nil {
		return 0, err
	}
	n := new(big.Int).SetBytes(b)
	if !n.IsInt64() || n.Int64() > MaxSafeInteger {
		return 0, &werrors.Overflow{Value: s, Bound: "MAX_SAFE_INTEGER"}
	}
	return n.Int64(), nil
}

// DecimalStringFromBigInt renders n (interpreted as an integer value
// scaled by 10^places) as a decimal string with trailing fractional zeros
// and a trailing "." stripped.
func DecimalStringFromBigInt(n *big.Int, places int) (string, error) {
	if n == nil {
		n = big.NewInt(0)
	}
	if n.Sign() < 0 {
		return "", &werrors.InvalidDecimal{Value: n.String()}
	}
	if n.Sign() == 0 {
		return "0", nil
	}

	digits := n.String()
	if len(digits) < places+1 {
		digits = strings.Repeat("0", places+1-len(digits)) + digits
	}

	if places == 0 {
		return digits, nil
	}

	intPart := digits[:len(digits)-places]
	fracPart := digits[len(digits)-places:]
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart, nil
	}
	return intPart + "." + fracPart, nil
}

// BigIntFromDecimalString parses a non-negative decimal string (at most
// one ".") into an integer scaled by 10^places, truncating or
// zero-padding the fractional part to exactly places digits.
func BigIntFromDecimalString(s string, places int) (*big.Int, error) {
	if strings.HasPrefix(s, "-") {
		return nil, &werrors.InvalidDecimal{Value: s}
	}
	if !decimalPattern.MatchString(s) {
		return nil, &werrors.InvalidDecimal{Value: s}
	}
	if s == "" {
		return big.NewInt(0), nil
	}

	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	if intPart == "" {
		intPart = "0"
	}
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if len(frac) > places {
		frac = frac[:places]
	} else if len(frac) < places {
		frac += strings.Repeat("0", places-len(frac))
	}

	combined := intPart + frac
	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, &werrors.InvalidDecimal{Value: s}
	}
	return n, nil
}

// BlockHeightString renders a block-height selector the way eth_call and
// friends expect it: numeric heights become unpadded hex, and the
// well-known tags pass through unchanged.
func BlockHeightString(h interface{}) string {
	switch v := h.(type) {
	case string:
		return v
	case int64:
		return "0x" + new(big.Int).SetInt64(v).Text(16)
	case uint64:
		return "0x" + new(big.Int).SetUint64(v).Text(16)
	case *big.Int:
		return "0x" + v.Text(16)
	case int:
		return "0x" + new(big.Int).SetInt64(int64(v)).Text(16)
	default:
		return "latest"
	}
}

// UnixTimeFromTimestamp floors a millisecond timestamp to whole seconds.
func UnixTimeFromTimestamp(millis int64) int64 {
	return millis / 1000
}

package abi

import (
	"math/big"
	"strconv"

	"github.com/chainkit/usdc-go/pkg/werrors"
)

// twoExp256 is 2^256, used for two's-complement conversion of signed
// integers.
var twoExp256 = new(big.Int).Lsh(big.NewInt(1), 256)

func encodeUintWord(n *big.Int, bits int) ([]byte, error) {
	if n.Sign() < 0 {
		return nil, &werrors.InvalidParameter{Field: "uint", Reason: "negative value"}
	}
	if n.BitLen() > bits {
		return nil, &werrors.AbiWidthExceeded{Type: uintTypeName(bits)}
	}
	return leftPad32(n.Bytes()), nil
}

func decodeUintWord(word []byte, bits int) (*big.Int, error) {
	n := new(big.Int).SetBytes(word)
	if n.BitLen() > bits {
		return nil, &werrors.AbiWidthExceeded{Type: uintTypeName(bits)}
	}
	return n, nil
}

func encodeIntWord(n *big.Int, bits int) ([]byte, error) {
	lower := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	upper := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
	if n.Cmp(lower) < 0 || n.Cmp(upper) > 0 {
		return nil, &werrors.AbiWidthExceeded{Type: intTypeName(bits)}
	}
	rep := n
	if n.Sign() < 0 {
		rep = new(big.Int).Add(twoExp256, n)
	}
	return leftPad32(rep.Bytes()), nil
}

func decodeIntWord(word []byte, bits int) (*big.Int, error) {
	raw := new(big.Int).SetBytes(word)
	if word[0]&0x80 != 0 {
		raw = new(big.Int).Sub(raw, twoExp256)
	}
	lower := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	upper := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
	if raw.Cmp(lower) < 0 || raw.Cmp(upper) > 0 {
		return nil, &werrors.AbiWidthExceeded{Type: intTypeName(bits)}
	}
	return raw, nil
}

func encodeBytesNWord(b []byte, n int) ([]byte, error) {
	if len(b) > n {
		return nil, &werrors.AbiWidthExceeded{Type: bytesTypeName(n)}
	}
	out := make([]byte, 32)
	copy(out, b)
	return out, nil
}

func decodeBytesNWord(word []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, word[:n])
	return out
}

func leftPad32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func uintTypeName(bits int) string {
	return "uint" + strconv.Itoa(bits)
}

func intTypeName(bits int) string {
	return "int" + strconv.Itoa(bits)
}

func bytesTypeName(n int) string {
	return "bytes" + strconv.Itoa(n)
}

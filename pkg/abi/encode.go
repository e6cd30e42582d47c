// Package abi implements the Ethereum ABI tuple codec: head/tail
// encoding of typed parameter lists, 4-byte function selector derivation,
// and the non-standard "packed" encoding used by soliditySHA3-style
// helpers.
package abi

import (
	"fmt"
	"math/big"

	"github.com/chainkit/usdc-go/pkg/werrors"
)

// Encode ABI-encodes values according to types, producing the head/tail
// layout Solidity uses for call arguments and return data.
func Encode(types []Type, values []interface{}) ([]byte, error) {
	if len(types) != len(values) {
		return nil, &werrors.InvalidParameter{Field: "values", Reason: fmt.Sprintf("expected %d values, got %d", len(types), len(values))}
	}

	headSize := 0
	for _, t := range types {
		headSize += t.MemoryUsage()
	}

	heads := make([][]byte, len(types))
	tails := make([][]byte, len(types))
	tailOffset := headSize

	for i, t := range types {
		enc, err := encodeValue(t, values[i])
		if err != nil {
			return nil, fmt.Errorf("abi: encode argument %d (%s): %w", i, t.Name, err)
		}
		if t.IsDynamic() {
			head, err := encodeUintWord(big.NewInt(int64(tailOffset)), 256)
			if err != nil {
				return nil, err
			}
			heads[i] = head
			tails[i] = enc
			tailOffset += len(enc)
		} else {
			heads[i] = enc
		}
	}

	out := make([]byte, 0, tailOffset)
	for _, h := range heads {
		out = append(out, h...)
	}
	for _, tl := range tails {
		out = append(out, tl...)
	}
	return out, nil
}

func encodeValue(t Type, v interface{}) ([]byte, error) {
	if t.IsArray {
		return encodeArray(t, v)
	}
	return encodeLeaf(t, v)
}

func encodeArray(t Type, v interface{}) ([]byte, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, &werrors.InvalidParameter{Field: t.Name, Reason: fmt.Sprintf("expected []interface{}, got %T", v)}
	}
	if t.ArrayLen != 0 && len(arr) != t.ArrayLen {
		return nil, &werrors.InvalidParameter{Field: t.Name, Reason: fmt.Sprintf("expected %d elements, got %d", t.ArrayLen, len(arr))}
	}

	if t.ArrayLen != 0 && !t.SubArray.IsDynamic() {
		// Static array of static elements: elements packed inline.
		out := make([]byte, 0, 32*len(arr))
		for _, el := range arr {
			enc, err := encodeValue(*t.SubArray, el)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		return out, nil
	}

	// Dynamic-length array (T[]) or array of dynamic elements: encode as a
	// sub-tuple of len(arr) copies of SubArray, prefixed with a length word
	// when the outer array itself is dynamic-length (T[]), bare when it is
	// T[K].
	elemTypes := make([]Type, len(arr))
	for i := range elemTypes {
		elemTypes[i] = *t.SubArray
	}
	encoded, err := Encode(elemTypes, arr)
	if err != nil {
		return nil, err
	}
	if t.ArrayLen == 0 {
		lenWord, err := encodeUintWord(big.NewInt(int64(len(arr))), 256)
		if err != nil {
			return nil, err
		}
		return append(lenWord, encoded...), nil
	}
	return encoded, nil
}

func encodeLeaf(t Type, v interface{}) ([]byte, error) {
	switch {
	case t.isBool:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		n := int64(0)
		if b {
			n = 1
		}
		return encodeUintWord(big.NewInt(n), 8)

	case t.isAddress:
		addr, err := toAddressBytes(v)
		if err != nil {
			return nil, err
		}
		return leftPad32(addr), nil

	case t.isBytesN:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		return encodeBytesNWord(b, t.Size)

	case t.isBytes:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		return encodeDynamicBytes(b), nil

	case t.isString:
		s, ok := v.(string)
		if !ok {
			return nil, &werrors.InvalidParameter{Field: "string", Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		return encodeDynamicBytes([]byte(s)), nil

	case t.isUFixed:
		n, err := fixedPointToScaledInt(v, t.FracBits)
		if err != nil {
			return nil, err
		}
		return encodeUintWord(n, t.Size)

	case t.isFixed:
		n, err := fixedPointToScaledInt(v, t.FracBits)
		if err != nil {
			return nil, err
		}
		return encodeIntWord(n, t.Size)

	case t.isUint:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return encodeUintWord(n, t.Size)

	case t.isInt:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return encodeIntWord(n, t.Size)
	}
	return nil, fmt.Errorf("abi: unhandled leaf type %q", t.Name)
}

func encodeDynamicBytes(b []byte) []byte {
	lenWord, _ := encodeUintWord(big.NewInt(int64(len(b))), 256)
	padLen := (32 - len(b)%32) % 32
	out := make([]byte, 0, 32+len(b)+padLen)
	out = append(out, lenWord...)
	out = append(out, b...)
	out = append(out, make([]byte, padLen)...)
	return out
}

// fixedPointToScaledInt multiplies a decimal value by 2^fracBits, per
// spec, and truncates the product toward zero. *big.Int/int64 values are
// treated as already-scaled and passed through unchanged.
func fixedPointToScaledInt(v interface{}, fracBits int) (*big.Int, error) {
	scale := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(fracBits)))

	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case int64:
		return big.NewInt(n), nil
	case float64:
		scaled := new(big.Float).Mul(big.NewFloat(n), scale)
		out, _ := scaled.Int(nil)
		return out, nil
	case string:
		f, _, err := big.ParseFloat(n, 10, 256, big.ToNearestEven)
		if err != nil {
			return nil, &werrors.InvalidDecimal{Value: n}
		}
		scaled := new(big.Float).Mul(f, scale)
		out, _ := scaled.Int(nil)
		return out, nil
	default:
		return nil, &werrors.InvalidParameter{Field: "fixed", Reason: fmt.Sprintf("unsupported fixed-point value type %T", v)}
	}
}

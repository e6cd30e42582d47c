package abi

import (
	"fmt"
	"math/big"

	"github.com/chainkit/usdc-go/pkg/werrors"
)

// EncodePacked implements Solidity's non-standard "tightly packed"
// encoding (the one `abi.encodePacked`/`soliditySHA3` helpers use): each
// scalar value is emitted at its natural width with no length prefixes
// and no padding between values, while array elements are each padded to
// 32 bytes. The result is not invertible — there is no DecodePacked.
func EncodePacked(types []Type, values []interface{}) ([]byte, error) {
	if len(types) != len(values) {
		return nil, &werrors.InvalidParameter{Field: "values", Reason: fmt.Sprintf("expected %d values, got %d", len(types), len(values))}
	}

	var out []byte
	for i, t := range types {
		enc, err := packValue(t, values[i])
		if err != nil {
			return nil, fmt.Errorf("abi: pack argument %d (%s): %w", i, t.Name, err)
		}
		out = append(out, enc...)
	}
	return out, nil
}

func packValue(t Type, v interface{}) ([]byte, error) {
	if t.IsArray {
		arr, ok := v.([]interface{})
		if !ok {
			return nil, &werrors.InvalidParameter{Field: t.Name, Reason: fmt.Sprintf("expected []interface{}, got %T", v)}
		}
		if t.ArrayLen != 0 && len(arr) != t.ArrayLen {
			return nil, &werrors.InvalidParameter{Field: t.Name, Reason: fmt.Sprintf("expected %d elements, got %d", t.ArrayLen, len(arr))}
		}
		var out []byte
		for _, el := range arr {
			// Array elements are padded to 32 bytes even in packed mode.
			enc, err := encodeValue(*t.SubArray, el)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		return out, nil
	}
	return packLeaf(t, v)
}

func packLeaf(t Type, v interface{}) ([]byte, error) {
	switch {
	case t.isBool:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case t.isAddress:
		return toAddressBytes(v)

	case t.isBytesN:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, &werrors.AbiWidthExceeded{Type: t.Name}
		}
		out := make([]byte, t.Size)
		copy(out, b)
		return out, nil

	case t.isBytes:
		return toBytes(v)

	case t.isString:
		s, ok := v.(string)
		if !ok {
			return nil, &werrors.InvalidParameter{Field: "string", Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		return []byte(s), nil

	case t.isUint:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, &werrors.AbiWidthExceeded{Type: t.Name}
		}
		return packUint(n, t.Size/8), nil

	case t.isInt:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		width := t.Size / 8
		rep := n
		if n.Sign() < 0 {
			mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
			rep = new(big.Int).Add(mod, n)
		}
		return packUint(rep, width), nil
	}
	return nil, fmt.Errorf("abi: unhandled packed leaf type %q", t.Name)
}

func packUint(n *big.Int, width int) []byte {
	b := n.Bytes()
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

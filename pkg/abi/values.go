package abi

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/chainkit/usdc-go/pkg/addrutil"
	"github.com/chainkit/usdc-go/pkg/numeric"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

// toBigInt accepts *big.Int, int, int64, uint64, or a decimal/hex string
// and returns its value as a *big.Int.
func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		return n, nil
	case big.Int:
		return &n, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case bool:
		if n {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		if strings.HasPrefix(n, "0x") || strings.HasPrefix(n, "0X") {
			b, err := numeric.BytesFromHex(n)
			if err != nil {
				return nil, err
			}
			return numeric.BigIntFromBytes(b), nil
		}
		bi, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil, &werrors.InvalidParameter{Field: "value", Reason: fmt.Sprintf("not an integer: %q", n)}
		}
		return bi, nil
	default:
		return nil, &werrors.InvalidParameter{Field: "value", Reason: fmt.Sprintf("unsupported numeric value type %T", v)}
	}
}

// toBytes accepts []byte or a hex string and returns the raw bytes.
func toBytes(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return numeric.BytesFromHex(b)
	default:
		return nil, &werrors.InvalidParameter{Field: "value", Reason: fmt.Sprintf("unsupported byte value type %T", v)}
	}
}

// toBool accepts bool or an integer 0/1.
func toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	default:
		return false, &werrors.InvalidParameter{Field: "value", Reason: fmt.Sprintf("unsupported bool value type %T", v)}
	}
}

// toAddressBytes accepts a checksummed/lowercase hex address string or a
// raw 20-byte slice, returning the 20-byte form.
func toAddressBytes(v interface{}) ([]byte, error) {
	switch a := v.(type) {
	case string:
		if !addrutil.IsValidAddress(a) {
			return nil, &werrors.InvalidAddress{Value: a}
		}
		return numeric.BytesFromHex(a)
	case []byte:
		if len(a) != 20 {
			return nil, &werrors.InvalidParameter{Field: "address", Reason: "expected 20 bytes"}
		}
		return a, nil
	default:
		return nil, &werrors.InvalidParameter{Field: "address", Reason: fmt.Sprintf("unsupported address value type %T", v)}
	}
}

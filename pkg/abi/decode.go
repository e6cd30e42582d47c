package abi

import (
	"fmt"
	"math/big"

	"github.com/chainkit/usdc-go/pkg/addrutil"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

// Decode ABI-decodes data into a value per type, mirroring Encode.
func Decode(types []Type, data []byte) ([]interface{}, error) {
	out := make([]interface{}, len(types))
	cursor := 0

	for i, t := range types {
		if t.IsDynamic() {
			if cursor+32 > len(data) {
				return nil, fmt.Errorf("abi: decode argument %d (%s): truncated head", i, t.Name)
			}
			offsetWord := data[cursor : cursor+32]
			offset := new(big.Int).SetBytes(offsetWord)
			if !offset.IsUint64() || offset.Uint64() > uint64(len(data)) {
				return nil, &werrors.AbiWidthExceeded{Type: t.Name}
			}
			v, err := decodeDynamic(t, data, int(offset.Uint64()))
			if err != nil {
				return nil, fmt.Errorf("abi: decode argument %d (%s): %w", i, t.Name, err)
			}
			out[i] = v
			cursor += 32
			continue
		}

		size := t.MemoryUsage()
		if cursor+size > len(data) {
			return nil, fmt.Errorf("abi: decode argument %d (%s): truncated head", i, t.Name)
		}
		v, err := decodeStatic(t, data[cursor:cursor+size])
		if err != nil {
			return nil, fmt.Errorf("abi: decode argument %d (%s): %w", i, t.Name, err)
		}
		out[i] = v
		cursor += size
	}

	return out, nil
}

func decodeStatic(t Type, chunk []byte) (interface{}, error) {
	if t.IsArray {
		elemSize := t.SubArray.MemoryUsage()
		out := make([]interface{}, t.ArrayLen)
		for i := 0; i < t.ArrayLen; i++ {
			start := i * elemSize
			v, err := decodeStatic(*t.SubArray, chunk[start:start+elemSize])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return decodeLeaf(t, chunk)
}

func decodeDynamic(t Type, data []byte, offset int) (interface{}, error) {
	if t.isBytes || t.isString {
		if offset+32 > len(data) {
			return nil, fmt.Errorf("truncated dynamic length")
		}
		length := new(big.Int).SetBytes(data[offset : offset+32])
		if !length.IsUint64() {
			return nil, &werrors.AbiWidthExceeded{Type: t.Name}
		}
		l := int(length.Uint64())
		start := offset + 32
		if start+l > len(data) {
			return nil, fmt.Errorf("truncated dynamic data")
		}
		raw := data[start : start+l]
		if t.isString {
			return string(raw), nil
		}
		out := make([]byte, l)
		copy(out, raw)
		return out, nil
	}

	if t.IsArray {
		if t.ArrayLen == 0 {
			if offset+32 > len(data) {
				return nil, fmt.Errorf("truncated array length")
			}
			length := new(big.Int).SetBytes(data[offset : offset+32])
			if !length.IsUint64() {
				return nil, &werrors.AbiWidthExceeded{Type: t.Name}
			}
			l := int(length.Uint64())
			elemTypes := make([]Type, l)
			for i := range elemTypes {
				elemTypes[i] = *t.SubArray
			}
			return Decode(elemTypes, data[offset+32:])
		}
		elemTypes := make([]Type, t.ArrayLen)
		for i := range elemTypes {
			elemTypes[i] = *t.SubArray
		}
		return Decode(elemTypes, data[offset:])
	}

	return nil, fmt.Errorf("abi: type %q is not dynamic", t.Name)
}

func decodeLeaf(t Type, word []byte) (interface{}, error) {
	switch {
	case t.isBool:
		return word[31] != 0, nil

	case t.isAddress:
		addrHex := "0x" + hexEncode(word[12:32])
		return addrutil.ChecksumAddress(addrHex)

	case t.isBytesN:
		return decodeBytesNWord(word, t.Size), nil

	case t.isUFixed:
		n, err := decodeUintWord(word, t.Size)
		if err != nil {
			return nil, err
		}
		return scaledIntToFixedPoint(n, t.FracBits), nil

	case t.isFixed:
		n, err := decodeIntWord(word, t.Size)
		if err != nil {
			return nil, err
		}
		return scaledIntToFixedPoint(n, t.FracBits), nil

	case t.isUint:
		return decodeUintWord(word, t.Size)

	case t.isInt:
		return decodeIntWord(word, t.Size)
	}
	return nil, fmt.Errorf("abi: unhandled leaf type %q", t.Name)
}

// scaledIntToFixedPoint divides a decoded ufixedNxM/fixedNxM raw integer
// by 2^fracBits, mirroring the multiply-by-2^M encoding step.
func scaledIntToFixedPoint(raw *big.Int, fracBits int) *big.Float {
	scale := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(fracBits)))
	return new(big.Float).Quo(new(big.Float).SetInt(raw), scale)
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return string(out)
}

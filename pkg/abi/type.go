package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// Type describes a single Ethereum ABI parameter type: a scalar leaf
// (uintN, intN, bytesN, bytes, string, bool, address, ufixedNxM/fixedNxM)
// or an array of one of those; arrays nest (arrays of arrays).
type Type struct {
	Name string // canonical name, e.g. "uint256", "bytes32", "address"

	// Size holds the bit width for uintN/intN/ufixedNxM/fixedNxM (the N),
	// or the byte width for bytesN.
	Size int
	// FracBits holds the M in ufixedNxM/fixedNxM (0 for everything else).
	FracBits int

	IsArray    bool
	ArrayLen   int // 0 for a dynamic array T[]
	SubArray   *Type
	isDynamic  bool
	isUint     bool
	isInt      bool
	isBytesN   bool
	isBytes    bool
	isString   bool
	isBool     bool
	isAddress  bool
	isFixed    bool
	isUFixed   bool
}

// MemoryUsage returns the number of bytes this type contributes to the
// head region of a tuple: 32 for a static leaf, count times the element's
// head size for a static array of statics (32*count for static leaves),
// or 32 for a dynamic pointer slot.
func (t Type) MemoryUsage() int {
	if t.IsArray {
		if t.ArrayLen == 0 || t.SubArray.IsDynamic() {
			return 32
		}
		return t.ArrayLen * t.SubArray.MemoryUsage()
	}
	if t.IsDynamic() {
		return 32
	}
	return 32
}

// IsDynamic reports whether the type's encoding has variable length and
// therefore must live in the tail region with an offset head.
func (t Type) IsDynamic() bool {
	if t.IsArray {
		return t.ArrayLen == 0 || t.SubArray.IsDynamic()
	}
	return t.isBytes || t.isString
}

// ParseType parses a Solidity-style ABI type name such as "uint256",
// "bytes32", "address", "bool", "string", "bytes", "ufixed128x18",
// "uint256[]", or "address[3]".
func ParseType(raw string) (Type, error) {
	raw = strings.TrimSpace(raw)

	if idx := strings.LastIndex(raw, "["); idx != -1 && strings.HasSuffix(raw, "]") {
		inner := raw[:idx]
		lenStr := raw[idx+1 : len(raw)-1]
		sub, err := ParseType(inner)
		if err != nil {
			return Type{}, err
		}
		t := Type{Name: raw, IsArray: true, SubArray: &sub}
		if lenStr != "" {
			n, err := strconv.Atoi(lenStr)
			if err != nil || n <= 0 {
				return Type{}, fmt.Errorf("abi: invalid array length in %q", raw)
			}
			t.ArrayLen = n
		}
		return t, nil
	}

	switch {
	case raw == "address":
		return Type{Name: raw, Size: 160, isAddress: true, isUint: true}, nil
	case raw == "bool":
		return Type{Name: raw, Size: 8, isBool: true, isUint: true}, nil
	case raw == "bytes":
		return Type{Name: raw, isBytes: true}, nil
	case raw == "string":
		return Type{Name: raw, isString: true}, nil
	case strings.HasPrefix(raw, "uint"):
		n, err := parseBitWidth(raw, "uint")
		if err != nil {
			return Type{}, err
		}
		return Type{Name: raw, Size: n, isUint: true}, nil
	case strings.HasPrefix(raw, "int"):
		n, err := parseBitWidth(raw, "int")
		if err != nil {
			return Type{}, err
		}
		return Type{Name: raw, Size: n, isInt: true}, nil
	case strings.HasPrefix(raw, "bytes"):
		n, err := strconv.Atoi(raw[len("bytes"):])
		if err != nil || n < 1 || n > 32 {
			return Type{}, fmt.Errorf("abi: invalid fixed-bytes type %q", raw)
		}
		return Type{Name: raw, Size: n, isBytesN: true}, nil
	case strings.HasPrefix(raw, "ufixed"):
		n, m, err := parseFixedDims(raw, "ufixed")
		if err != nil {
			return Type{}, err
		}
		return Type{Name: raw, Size: n, FracBits: m, isUFixed: true, isUint: true}, nil
	case strings.HasPrefix(raw, "fixed"):
		n, m, err := parseFixedDims(raw, "fixed")
		if err != nil {
			return Type{}, err
		}
		return Type{Name: raw, Size: n, FracBits: m, isFixed: true, isInt: true}, nil
	}

	return Type{}, fmt.Errorf("abi: unsupported type %q", raw)
}

func parseBitWidth(raw, prefix string) (int, error) {
	digits := raw[len(prefix):]
	if digits == "" {
		return 256, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 8 || n > 256 || n%8 != 0 {
		return 0, fmt.Errorf("abi: invalid bit width in %q", raw)
	}
	return n, nil
}

func parseFixedDims(raw, prefix string) (n int, m int, err error) {
	rest := raw[len(prefix):]
	parts := strings.SplitN(rest, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("abi: invalid fixed type %q", raw)
	}
	n, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || n < 8 || n > 256 || n%8 != 0 || m < 0 || m > 80 {
		return 0, 0, fmt.Errorf("abi: invalid fixed type %q", raw)
	}
	return n, m, nil
}

// MustParseTypes parses a list of type names, panicking on the first
// error. It exists for call sites building a fixed, known-good ABI
// signature (e.g. a package-level selector table) where an error would
// indicate a programming mistake, not bad input.
func MustParseTypes(raws ...string) []Type {
	out := make([]Type, len(raws))
	for i, r := range raws {
		t, err := ParseType(r)
		if err != nil {
			panic(err)
		}
		out[i] = t
	}
	return out
}

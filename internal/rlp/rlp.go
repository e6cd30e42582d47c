// Package rlp implements canonical Recursive Length Prefix encoding: the
// wire format legacy Ethereum transactions are serialized into before
// signing and broadcast. Only encoding is implemented; this module never
// needs to decode RLP it did not produce itself.
package rlp

import (
	"fmt"
	"math/big"
)

// Item is either a byte string ([]byte) or a list of Items ([]Item). There
// is no third case in RLP.
type Item interface{}

// Bytes wraps b as a byte-string Item. A nil or empty slice encodes to the
// canonical empty string (0x80).
func Bytes(b []byte) Item { return b }

// BigInt wraps n as a byte-string Item using its canonical minimal
// big-endian representation (zero encodes to the empty string, matching
// Ethereum's convention of never RLP-encoding a leading zero byte).
func BigInt(n *big.Int) Item {
	if n == nil || n.Sign() == 0 {
		return []byte{}
	}
	return n.Bytes()
}

// Uint wraps n as a byte-string Item via BigInt.
func Uint(n uint64) Item {
	return BigInt(new(big.Int).SetUint64(n))
}

// List wraps items as a list Item.
func List(items ...Item) Item {
	return items
}

// Encode RLP-encodes item, recursing through nested lists.
func Encode(item Item) ([]byte, error) {
	switch v := item.(type) {
	case []byte:
		return encodeBytes(v), nil
	case []Item:
		return encodeList(v)
	case nil:
		return encodeBytes(nil), nil
	default:
		return nil, fmt.Errorf("rlp: unsupported item type %T", item)
	}
}

func encodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(lengthPrefix(0x80, len(b)), b...)
}

func encodeList(items []Item) ([]byte, error) {
	var payload []byte
	for i, it := range items {
		enc, err := Encode(it)
		if err != nil {
			return nil, fmt.Errorf("rlp: encode list element %d: %w", i, err)
		}
		payload = append(payload, enc...)
	}
	return append(lengthPrefix(0xc0, len(payload)), payload...), nil
}

// lengthPrefix builds the RLP length header for a byte-string (base 0x80)
// or list (base 0xc0) payload of the given length: the short form
// (base+len) for payloads up to 55 bytes, the long form
// (base+55+lenOfLen, length bytes) otherwise.
func lengthPrefix(base byte, length int) []byte {
	if length <= 55 {
		return []byte{base + byte(length)}
	}
	lenBytes := minimalBigEndian(uint64(length))
	prefix := make([]byte, 0, 1+len(lenBytes))
	prefix = append(prefix, base+55+byte(len(lenBytes)))
	prefix = append(prefix, lenBytes...)
	return prefix
}

func minimalBigEndian(n uint64) []byte {
	if n == 0 {
		return []byte{0}
	}
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

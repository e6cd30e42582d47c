// Package eip712 computes EIP-712 structured-data digests from an
// already-known domain separator (callers typically fetch this from a
// contract's DOMAIN_SEPARATOR() method) plus a type signature and its
// parameters.
package eip712

import (
	"sync"

	"github.com/chainkit/usdc-go/internal/keccak"
	"github.com/chainkit/usdc-go/pkg/abi"
)

var typeHashCache sync.Map // typeSig string -> [32]byte

// TypeHash returns keccak256(typeSig), e.g.
// TypeHash("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)").
// When memoize is true the result is cached across calls for that exact
// signature string.
func TypeHash(typeSig string, memoize bool) [32]byte {
	if memoize {
		if cached, ok := typeHashCache.Load(typeSig); ok {
			return cached.([32]byte)
		}
	}
	hash := keccak.Sum256([]byte(typeSig))
	if memoize {
		typeHashCache.Store(typeSig, hash)
	}
	return hash
}

// Hash computes the EIP-712 digest keccak256(0x19 0x01 || domainSeparator
// || structHash), where structHash = keccak256(abi.encode(["bytes32",
// paramTypes...], [typeHash(typeSig), paramValues...])).
func Hash(domainSeparator [32]byte, typeSig string, paramTypes []abi.Type, paramValues []interface{}, memoize bool) ([32]byte, error) {
	typeHash := TypeHash(typeSig, memoize)

	types := make([]abi.Type, 0, len(paramTypes)+1)
	types = append(types, abi.MustParseTypes("bytes32")[0])
	types = append(types, paramTypes...)

	values := make([]interface{}, 0, len(paramValues)+1)
	values = append(values, typeHash[:])
	values = append(values, paramValues...)

	encoded, err := abi.Encode(types, values)
	if err != nil {
		return [32]byte{}, err
	}
	structHash := keccak.Sum256(encoded)

	prefixed := make([]byte, 0, 2+32+32)
	prefixed = append(prefixed, 0x19, 0x01)
	prefixed = append(prefixed, domainSeparator[:]...)
	prefixed = append(prefixed, structHash[:]...)
	return keccak.Sum256(prefixed), nil
}

package abi

import (
	"sync"

	"github.com/chainkit/usdc-go/internal/keccak"
)

var selectorCache sync.Map // signature string -> [4]byte

// FunctionSelector returns the first 4 bytes of keccak256(signature),
// e.g. FunctionSelector("transfer(address,uint256)") == 0xa9059cbb. The
// result is memoized across calls; the cache is additive and never
// invalidated.
func FunctionSelector(signature string) [4]byte {
	if cached, ok := selectorCache.Load(signature); ok {
		return cached.([4]byte)
	}
	digest := keccak.Sum256([]byte(signature))
	var sel [4]byte
	copy(sel[:], digest[:4])
	selectorCache.Store(signature, sel)
	return sel
}

// FunctionSelectorBytes is FunctionSelector with a []byte return, for
// callers building call-data by concatenation.
func FunctionSelectorBytes(signature string) []byte {
	sel := FunctionSelector(signature)
	return sel[:]
}

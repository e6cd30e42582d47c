package eip712

import (
	"math/big"
	"testing"

	"github.com/chainkit/usdc-go/internal/keccak"
	"github.com/chainkit/usdc-go/pkg/abi"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	domain := [32]byte{1, 2, 3}
	types := abi.MustParseTypes("address", "address", "uint256", "uint256", "uint256")
	values := []interface{}{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		big.NewInt(1000),
		big.NewInt(0),
		big.NewInt(9999),
	}
	sig := "Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"

	h1, err := Hash(domain, sig, types, values, true)
	require.NoError(t, err)
	h2, err := Hash(domain, sig, types, values, true)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHashChangesWithDomainSeparator(t *testing.T) {
	types := abi.MustParseTypes("uint256")
	values := []interface{}{big.NewInt(1)}
	sig := "Dummy(uint256 x)"

	h1, err := Hash([32]byte{1}, sig, types, values, false)
	require.NoError(t, err)
	h2, err := Hash([32]byte{2}, sig, types, values, false)
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestTypeHashMemoizationDoesNotAffectOutput(t *testing.T) {
	domain := [32]byte{9}
	types := abi.MustParseTypes("uint256")
	values := []interface{}{big.NewInt(42)}
	sig := "Dummy(uint256 x)"

	memoized, err := Hash(domain, sig, types, values, true)
	require.NoError(t, err)
	unmemoized, err := Hash(domain, sig, types, values, false)
	require.NoError(t, err)
	require.Equal(t, memoized, unmemoized)
}

func TestTypeHashIsKeccakOfSignature(t *testing.T) {
	sig := "Dummy(uint256 x)"
	th := TypeHash(sig, false)
	require.Len(t, th, 32)
	require.Equal(t, keccak.Sum256([]byte(sig)), th)
}

package abi

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionSelectorVectors(t *testing.T) {
	tests := []struct {
		sig  string
		want string
	}{
		{"decimals()", "313ce567"},
		{"name()", "06fdde03"},
		{"symbol()", "95d89b41"},
		{"transfer(address,uint256)", "a9059cbb"},
	}
	for _, tt := range tests {
		sel := FunctionSelector(tt.sig)
		require.Equal(t, tt.want, hex.EncodeToString(sel[:]), "selector for %s", tt.sig)
	}
}

func TestFunctionSelectorMemoizedSameValue(t *testing.T) {
	a := FunctionSelector("approve(address,uint256)")
	b := FunctionSelector("approve(address,uint256)")
	require.Equal(t, a, b)
}

func TestUSDCTransferCalldata(t *testing.T) {
	types := MustParseTypes("address", "uint256")
	scaledAmount, ok := new(big.Int).SetString("12340000000000000000", 10) // 12.34 USDC scaled to 18 decimals
	require.True(t, ok)

	amount, err := Encode(types, []interface{}{
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		scaledAmount,
	})
	require.NoError(t, err)

	data := append(FunctionSelectorBytes("transfer(address,uint256)"), amount...)
	want := "a9059cbb" +
		"000000000000000000000000aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" +
		"000000000000000000000000000000000000000000000000ab407c9eb0520000"
	require.Equal(t, want, hex.EncodeToString(data))
}

func TestBalanceDecoding(t *testing.T) {
	types := MustParseTypes("uint256")
	raw, err := hex.DecodeString("0000000000000000000000000000000000000000000000000de0b6b3a7640000")
	require.NoError(t, err)

	values, err := Decode(types, raw)
	require.NoError(t, err)
	require.Len(t, values, 1)

	n := values[0].(*big.Int)
	require.Equal(t, "1000000000000000000", n.String())
}

func TestAbiRoundTripStaticTypes(t *testing.T) {
	types := MustParseTypes("uint256", "int256", "bool", "address", "bytes32")
	fixed32 := make([]byte, 32)
	for i := range fixed32 {
		fixed32[i] = byte(i)
	}
	values := []interface{}{
		big.NewInt(42),
		big.NewInt(-7),
		true,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		fixed32,
	}

	encoded, err := Encode(types, values)
	require.NoError(t, err)

	decoded, err := Decode(types, encoded)
	require.NoError(t, err)
	require.Equal(t, 0, values[0].(*big.Int).Cmp(decoded[0].(*big.Int)))
	require.Equal(t, 0, values[1].(*big.Int).Cmp(decoded[1].(*big.Int)))
	require.Equal(t, values[2], decoded[2])
	require.Equal(t, values[3], decoded[3])
}

func TestAbiRoundTripDynamicTypes(t *testing.T) {
	types := MustParseTypes("string", "bytes", "uint256[]")
	values := []interface{}{
		"hello world",
		[]byte{0xde, 0xad, 0xbe, 0xef},
		[]interface{}{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
	}

	encoded, err := Encode(types, values)
	require.NoError(t, err)

	decoded, err := Decode(types, encoded)
	require.NoError(t, err)
	require.Equal(t, "hello world", decoded[0])
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, decoded[1])

	arr := decoded[2].([]interface{})
	require.Len(t, arr, 3)
	for i, want := range []int64{1, 2, 3} {
		require.Equal(t, 0, arr[i].(*big.Int).Cmp(big.NewInt(want)))
	}
}

func TestAbiRejectsOverwideUint(t *testing.T) {
	types := MustParseTypes("uint8")
	_, err := Encode(types, []interface{}{big.NewInt(256)})
	require.Error(t, err)
}

func TestAbiRejectsNegativeUint(t *testing.T) {
	types := MustParseTypes("uint256")
	_, err := Encode(types, []interface{}{big.NewInt(-1)})
	require.Error(t, err)
}

func TestEncodePackedNoPadding(t *testing.T) {
	types := MustParseTypes("uint8", "uint8")
	out, err := EncodePacked(types, []interface{}{big.NewInt(1), big.NewInt(2)})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, out)
}

func TestEncodePackedAddress(t *testing.T) {
	types := MustParseTypes("address")
	out, err := EncodePacked(types, []interface{}{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"})
	require.NoError(t, err)
	require.Len(t, out, 20)
}

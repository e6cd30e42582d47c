package erc20

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainkit/usdc-go/pkg/abi"
	"github.com/chainkit/usdc-go/pkg/account"
	"github.com/chainkit/usdc-go/pkg/rpc"
	"github.com/stretchr/testify/require"
)

func testAccount(t *testing.T) *account.Account {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 3)
	}
	acc, err := account.FromPrivateKey(key)
	require.NoError(t, err)
	return acc
}

type fakeNodeConfig struct {
	decimalsResult string // hex-encoded return data for decimals()
	balanceResult  string // hex-encoded return data for balanceOf()
	chainIDHex     string
	nonceHex       string
	gasPriceHex    string
	estimateGasHex string
	sendResult     string
}

func newFakeNode(t *testing.T, cfg fakeNodeConfig) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")

		var result interface{}
		switch req.Method {
		case "eth_call":
			callObj, _ := req.Params[0].(map[string]interface{})
			data, _ := callObj["data"].(string)
			switch {
			case len(data) >= 10 && data[:10] == "0x313ce567": // decimals()
				result = cfg.decimalsResult
			case len(data) >= 10 && data[:10] == "0x70a08231": // balanceOf(address)
				result = cfg.balanceResult
			default:
				t.Fatalf("fake node: unexpected eth_call data %s", data)
			}
		case "eth_chainId":
			result = cfg.chainIDHex
		case "eth_getTransactionCount":
			result = cfg.nonceHex
		case "eth_gasPrice":
			result = cfg.gasPriceHex
		case "eth_estimateGas":
			result = cfg.estimateGasHex
		case "eth_sendRawTransaction":
			result = cfg.sendResult
		default:
			t.Fatalf("fake node: unexpected method %s", req.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": result})
	}))
}

func TestDecimalsFetchedOnceAndCached(t *testing.T) {
	calls := 0
	cfg := fakeNodeConfig{decimalsResult: "0x0000000000000000000000000000000000000000000000000000000000000006"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": cfg.decimalsResult})
	}))
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	d1, err := client.Decimals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, d1)

	d2, err := client.Decimals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, d2)
	require.Equal(t, 1, calls, "decimals() should only be called once")
}

func TestBalanceOfDecodesUint256(t *testing.T) {
	cfg := fakeNodeConfig{
		balanceResult: "0x00000000000000000000000000000000000000000000000000000002540be400",
	}
	srv := newFakeNode(t, cfg)
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	balance, err := client.BalanceOf(context.Background(), "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10_000_000_000), balance)
}

func TestTransferSubmitsAndReturnsNodeTxHash(t *testing.T) {
	cfg := fakeNodeConfig{
		decimalsResult: "0x0000000000000000000000000000000000000000000000000000000000000006",
		chainIDHex:     "0x1", nonceHex: "0x0", gasPriceHex: "0x4a817c800", estimateGasHex: "0x5208",
		sendResult: "0xdeadbeef",
	}
	srv := newFakeNode(t, cfg)
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	handle, err := client.Transfer(context.Background(), "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "1.5")
	require.NoError(t, err)
	require.Equal(t, "0xdeadbeef", handle.TxHash)
}

func TestNewRejectsInvalidContractAddress(t *testing.T) {
	_, err := New(rpc.New("http://example.invalid"), testAccount(t), "not-an-address")
	require.Error(t, err)
}

func TestSelectorConstantsMatchKnownSignatures(t *testing.T) {
	require.Equal(t, "70a08231", hexSelector(abi.FunctionSelectorBytes("balanceOf(address)")))
	require.Equal(t, "313ce567", hexSelector(abi.FunctionSelectorBytes("decimals()")))
}

func hexSelector(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}

package usdc

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chainkit/usdc-go/pkg/account"
	"github.com/chainkit/usdc-go/pkg/rpc"
	"github.com/chainkit/usdc-go/pkg/werrors"
	"github.com/stretchr/testify/require"
)

func bigThousand() *big.Int { return big.NewInt(1000) }
func bigZero() *big.Int     { return big.NewInt(0) }

func testAccount(t *testing.T) *account.Account {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 11)
	}
	acc, err := account.FromPrivateKey(key)
	require.NoError(t, err)
	return acc
}

func TestContractAddressForKnownChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "0x89"}) // 137
	}))
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "")
	require.NoError(t, err)

	addr, err := client.ContractAddressFor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", addr)
}

func TestContractAddressForUnknownChainFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "0x3e7"}) // 999
	}))
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "")
	require.NoError(t, err)

	_, err = client.ContractAddressFor(context.Background())
	require.Error(t, err)
	_, ok := err.(*werrors.UnsupportedChain)
	require.True(t, ok, "expected *werrors.UnsupportedChain, got %T", err)
}

func TestContractAddressOverrideTakesPrecedence(t *testing.T) {
	client, err := New(rpc.New("http://unused.invalid"), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	addr, err := client.ContractAddressFor(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa", addr) // EIP-55 form of the override
}

func TestDomainSeparatorFetchedOnceAndCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_chainId":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "0x1"})
		case "eth_call":
			calls++
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": "0x1111111111111111111111111111111111111111111111111111111111111111",
			})
		}
	}))
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "")
	require.NoError(t, err)

	d1, err := client.DomainSeparator(context.Background())
	require.NoError(t, err)
	d2, err := client.DomainSeparator(context.Background())
	require.NoError(t, err)
	require.Equal(t, d1, d2)
	require.Equal(t, 1, calls, "DOMAIN_SEPARATOR() should only be called once")
}

func TestSignPermitRejectsInvalidSpenderAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_chainId":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "0x1"})
		case "eth_call":
			// Serves both DOMAIN_SEPARATOR() and nonces(address).
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": "0x1111111111111111111111111111111111111111111111111111111111111111",
			})
		}
	}))
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	_, err = client.SignPermit(context.Background(), "not-an-address", bigThousand(), bigZero(), nil)
	require.Error(t, err)
}

func TestSignPermitDeterministicForFixedInputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_chainId":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "0x1"})
		case "eth_call":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": "0x1111111111111111111111111111111111111111111111111111111111111111",
			})
		}
	}))
	defer srv.Close()

	sign := func() *SignedPermit {
		client, err := New(rpc.New(srv.URL), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		require.NoError(t, err)
		signed, err := client.SignPermit(context.Background(), "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", bigThousand(), bigZero(), nil)
		require.NoError(t, err)
		return signed
	}

	s1 := sign()
	s2 := sign()
	require.Equal(t, s1.Sig.R, s2.Sig.R)
	require.Equal(t, s1.Sig.S, s2.Sig.S)
	require.Equal(t, s1.Sig.V, s2.Sig.V)
}

func TestSignTransferAuthorizationDefaultsAndRandomNonce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "eth_chainId":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": "0x1"})
		case "eth_call":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"result": "0x1111111111111111111111111111111111111111111111111111111111111111",
			})
		}
	}))
	defer srv.Close()

	client, err := New(rpc.New(srv.URL), testAccount(t), "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.NoError(t, err)

	a1, err := client.SignTransferAuthorization(context.Background(), "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", bigThousand(), nil, nil, nil)
	require.NoError(t, err)
	a2, err := client.SignTransferAuthorization(context.Background(), "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", bigThousand(), nil, nil, nil)
	require.NoError(t, err)

	require.NotEqual(t, a1.Nonce, a2.Nonce, "unspecified nonce must be randomized per call")
	require.Equal(t, int64(0), a1.ValidAfter.Int64())
	require.Equal(t, MaxUint256, a1.ValidBefore)
}

// Package usdc specializes the ERC-20 client for USD Coin: chain-keyed
// contract address resolution, EIP-2612 permit signing, and EIP-3009
// transfer-authorization signing.
package usdc

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/chainkit/usdc-go/pkg/abi"
	"github.com/chainkit/usdc-go/pkg/account"
	"github.com/chainkit/usdc-go/pkg/addrutil"
	"github.com/chainkit/usdc-go/pkg/eip712"
	"github.com/chainkit/usdc-go/pkg/erc20"
	"github.com/chainkit/usdc-go/pkg/numeric"
	"github.com/chainkit/usdc-go/pkg/rpc"
	"github.com/chainkit/usdc-go/pkg/txbuilder"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

// MaxUint256 is the largest value representable by the EVM's uint256,
// used as the default deadline/validBefore when the caller leaves one
// unset.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// contractAddressByChainID maps a chain identifier to its canonical USDC
// contract address. Unlisted chains require an explicit override.
var contractAddressByChainID = map[uint64]string{
	1:     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	3:     "0x07865c6E87B9F70255377e024ace6630C1Eaa37F",
	4:     "0x705de9dc3ad85e072ab34cf6850e6b2bd317ccc1",
	5:     "0x2f3a40a3db8a7e3d09b0adfefbce4f6f81927557",
	137:   "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
	80001: "0xe6b8a5CF854791412c1f6EFC7CAf629f5Df1c747",
}

var (
	domainSeparatorReturn  = abi.MustParseTypes("bytes32")
	noncesReturn           = abi.MustParseTypes("uint256")
	permitArgTypes         = abi.MustParseTypes("address", "address", "uint256", "uint256", "uint8", "bytes32", "bytes32")
	transferAuthArgTypes   = abi.MustParseTypes("address", "address", "uint256", "uint256", "uint256", "uint8", "bytes32", "bytes32")
	permitEip712Types      = abi.MustParseTypes("address", "address", "uint256", "uint256", "uint256")
	transferAuthEip712Types = abi.MustParseTypes("address", "address", "uint256", "uint256", "uint256", "bytes32")

	permitTypeSig         = "Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"
	transferAuthTypeSig   = "TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)"
)

// Client specializes erc20.Client with the USDC-only permit and
// transfer-authorization capabilities. Composition, not inheritance: the
// embedded erc20.Client remains fully usable on its own.
type Client struct {
	erc20.Client

	contractOverride string

	addressMu      sync.Mutex
	resolvedChain  uint64
	resolvedAddr   string

	domainSeparatorOnce sync.Once
	domainSeparator     [32]byte
	domainSeparatorErr  error
}

// New constructs a USDC client. contractOverride, when non-empty, is used
// instead of the chain-keyed address map.
func New(client *rpc.Client, acc *account.Account, contractOverride string) (*Client, error) {
	c := &Client{Client: erc20.Client{RPC: client, Account: acc}}
	if contractOverride != "" {
		checksum, err := addrutil.EnsureValidAddress(contractOverride)
		if err != nil {
			return nil, err
		}
		c.contractOverride = checksum
		c.ContractAddress = checksum
	}
	return c, nil
}

// ContractAddressFor resolves and caches the USDC contract address for
// the node's current chainId, invalidating the cache if the chain
// changes.
func (c *Client) ContractAddressFor(ctx context.Context) (string, error) {
	if c.contractOverride != "" {
		return c.contractOverride, nil
	}

	chainID, err := c.RPC.GetChainID(ctx)
	if err != nil {
		return "", err
	}

	c.addressMu.Lock()
	defer c.addressMu.Unlock()
	if c.resolvedAddr != "" && c.resolvedChain == chainID {
		return c.resolvedAddr, nil
	}

	addr, ok := contractAddressByChainID[chainID]
	if !ok {
		return "", &werrors.UnsupportedChain{ChainID: chainID}
	}
	c.resolvedChain = chainID
	c.resolvedAddr = addr
	c.ContractAddress = addr
	return addr, nil
}

// DomainSeparator fetches and caches DOMAIN_SEPARATOR() for the lifetime
// of the client.
func (c *Client) DomainSeparator(ctx context.Context) ([32]byte, error) {
	c.domainSeparatorOnce.Do(func() {
		addr, err := c.ContractAddressFor(ctx)
		if err != nil {
			c.domainSeparatorErr = err
			return
		}
		values, err := c.RPC.EthCall(ctx, addr, "DOMAIN_SEPARATOR()", nil, nil, domainSeparatorReturn, "latest")
		if err != nil {
			c.domainSeparatorErr = err
			return
		}
		raw, ok := values[0].([]byte)
		if !ok || len(raw) != 32 {
			c.domainSeparatorErr = fmt.Errorf("usdc: DOMAIN_SEPARATOR() returned %d bytes, want 32", len(raw))
			return
		}
		copy(c.domainSeparator[:], raw)
	})
	return c.domainSeparator, c.domainSeparatorErr
}

// NextPermitNonce calls nonces(owner). The returned value does not
// account for unconfirmed permits.
func (c *Client) NextPermitNonce(ctx context.Context, owner string) (*big.Int, error) {
	owner, err := addrutil.EnsureValidAddress(owner)
	if err != nil {
		return nil, err
	}
	addr, err := c.ContractAddressFor(ctx)
	if err != nil {
		return nil, err
	}
	values, err := c.RPC.EthCall(ctx, addr, "nonces(address)", abi.MustParseTypes("address"), []interface{}{owner}, noncesReturn, "latest")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// SignedPermit is a signed EIP-2612 permit ready for submission.
type SignedPermit struct {
	Owner    string
	Spender  string
	Value    *big.Int
	Nonce    *big.Int
	Deadline *big.Int
	Sig      account.Signature
}

// SignPermit signs an EIP-2612 permit authorizing spender to draw
// allowance from the client's own account. nonce defaults to
// NextPermitNonce; deadline defaults to MaxUint256.
func (c *Client) SignPermit(ctx context.Context, spender string, allowance *big.Int, nonce *big.Int, deadline *big.Int) (*SignedPermit, error) {
	spender, err := addrutil.EnsureValidAddress(spender)
	if err != nil {
		return nil, err
	}
	owner := c.Account.Address()

	if nonce == nil {
		nonce, err = c.NextPermitNonce(ctx, owner)
		if err != nil {
			return nil, err
		}
	}
	if deadline == nil {
		deadline = MaxUint256
	}

	domainSeparator, err := c.DomainSeparator(ctx)
	if err != nil {
		return nil, err
	}

	digest, err := eip712.Hash(domainSeparator, permitTypeSig, permitEip712Types,
		[]interface{}{owner, spender, allowance, nonce, deadline}, true)
	if err != nil {
		return nil, err
	}

	sig, err := c.Account.Sign(digest[:])
	if err != nil {
		return nil, err
	}

	return &SignedPermit{Owner: owner, Spender: spender, Value: allowance, Nonce: nonce, Deadline: deadline, Sig: sig}, nil
}

// SubmitPermit builds and submits a permit(...) transaction from a
// previously signed permit.
func (c *Client) SubmitPermit(ctx context.Context, p *SignedPermit) (*txbuilder.TxHandle, error) {
	r, err := numeric.BytesFromHex(p.Sig.R)
	if err != nil {
		return nil, err
	}
	s, err := numeric.BytesFromHex(p.Sig.S)
	if err != nil {
		return nil, err
	}

	data, err := abi.Encode(permitArgTypes, []interface{}{
		p.Owner, p.Spender, p.Value, p.Nonce, p.Deadline, uint64(p.Sig.V), r, s,
	})
	if err != nil {
		return nil, err
	}
	calldata := append(abi.FunctionSelectorBytes("permit(address,address,uint256,uint256,uint8,bytes32,bytes32)"), data...)

	return c.submitContractCall(ctx, calldata)
}

// SignedTransferAuthorization is a signed EIP-3009 transfer authorization
// ready for submission.
type SignedTransferAuthorization struct {
	From         string
	To           string
	Value        *big.Int
	ValidAfter   *big.Int
	ValidBefore  *big.Int
	Nonce        [32]byte
	Sig          account.Signature
}

// SignTransferAuthorization signs an EIP-3009 transfer authorization from
// the client's own account to `to`. validAfter defaults to 0, validBefore
// to MaxUint256, and nonce to 32 uniformly random bytes.
func (c *Client) SignTransferAuthorization(ctx context.Context, to string, amount *big.Int, validAfter, validBefore *big.Int, nonce *[32]byte) (*SignedTransferAuthorization, error) {
	to, err := addrutil.EnsureValidAddress(to)
	if err != nil {
		return nil, err
	}
	from := c.Account.Address()

	if validAfter == nil {
		validAfter = big.NewInt(0)
	}
	if validBefore == nil {
		validBefore = MaxUint256
	}
	var nonceBytes [32]byte
	if nonce != nil {
		nonceBytes = *nonce
	} else {
		if _, err := rand.Read(nonceBytes[:]); err != nil {
			return nil, fmt.Errorf("usdc: generate transfer authorization nonce: %w", err)
		}
	}

	domainSeparator, err := c.DomainSeparator(ctx)
	if err != nil {
		return nil, err
	}

	digest, err := eip712.Hash(domainSeparator, transferAuthTypeSig, transferAuthEip712Types,
		[]interface{}{from, to, amount, validAfter, validBefore, nonceBytes[:]}, true)
	if err != nil {
		return nil, err
	}

	sig, err := c.Account.Sign(digest[:])
	if err != nil {
		return nil, err
	}

	return &SignedTransferAuthorization{
		From: from, To: to, Value: amount, ValidAfter: validAfter, ValidBefore: validBefore, Nonce: nonceBytes, Sig: sig,
	}, nil
}

// SubmitTransferAuthorization builds and submits a
// transferWithAuthorization(...) transaction from a previously signed
// authorization.
func (c *Client) SubmitTransferAuthorization(ctx context.Context, a *SignedTransferAuthorization) (*txbuilder.TxHandle, error) {
	r, err := numeric.BytesFromHex(a.Sig.R)
	if err != nil {
		return nil, err
	}
	s, err := numeric.BytesFromHex(a.Sig.S)
	if err != nil {
		return nil, err
	}

	data, err := abi.Encode(transferAuthArgTypes, []interface{}{
		a.From, a.To, a.Value, a.ValidAfter, a.ValidBefore, uint64(a.Sig.V), r, s,
	})
	if err != nil {
		return nil, err
	}
	selector := abi.FunctionSelectorBytes("transferWithAuthorization(address,address,uint256,uint256,uint256,uint8,bytes32,bytes32)")
	calldata := append(selector, data...)

	return c.submitContractCall(ctx, calldata)
}

func (c *Client) submitContractCall(ctx context.Context, calldata []byte) (*txbuilder.TxHandle, error) {
	addr, err := c.ContractAddressFor(ctx)
	if err != nil {
		return nil, err
	}

	b := txbuilder.New(c.Account, c.RPC)
	if err := b.SetTo(addr); err != nil {
		return nil, err
	}
	if err := b.SetData(numeric.HexFromBytes(calldata, true)); err != nil {
		return nil, err
	}
	signed, err := b.Sign(ctx)
	if err != nil {
		return nil, err
	}
	return b.Submit(ctx, signed)
}

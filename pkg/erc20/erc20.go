// Package erc20 implements a client for the ERC-20 fungible token
// interface: balance/allowance queries and transfer/approve/transferFrom
// submission.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/chainkit/usdc-go/pkg/abi"
	"github.com/chainkit/usdc-go/pkg/account"
	"github.com/chainkit/usdc-go/pkg/addrutil"
	"github.com/chainkit/usdc-go/pkg/numeric"
	"github.com/chainkit/usdc-go/pkg/rpc"
	"github.com/chainkit/usdc-go/pkg/txbuilder"
)

var (
	balanceOfReturn     = abi.MustParseTypes("uint256")
	allowanceReturn     = abi.MustParseTypes("uint256")
	decimalsReturn      = abi.MustParseTypes("uint8")
	addressUint256Types = abi.MustParseTypes("address", "uint256")
	twoAddressTypes     = abi.MustParseTypes("address", "address")
	threeArgTypes       = abi.MustParseTypes("address", "address", "uint256")
)

// Client is bound to a single ERC-20 contract and a single signing
// account. Decimal places are fetched lazily and cached for the client's
// lifetime.
type Client struct {
	RPC             *rpc.Client
	Account         *account.Account
	ContractAddress string // EIP-55 checksum

	decimalsOnce sync.Once
	decimals     int
	decimalsErr  error
}

// New binds a Client to contractAddress, normalizing it to checksum form.
func New(client *rpc.Client, acc *account.Account, contractAddress string) (*Client, error) {
	checksum, err := addrutil.EnsureValidAddress(contractAddress)
	if err != nil {
		return nil, err
	}
	return &Client{RPC: client, Account: acc, ContractAddress: checksum}, nil
}

// Decimals fetches and caches decimals() from the contract.
func (c *Client) Decimals(ctx context.Context) (int, error) {
	c.decimalsOnce.Do(func() {
		values, err := c.RPC.EthCall(ctx, c.ContractAddress, "decimals()", nil, nil, decimalsReturn, "latest")
		if err != nil {
			c.decimalsErr = err
			return
		}
		n, ok := values[0].(*big.Int)
		if !ok {
			c.decimalsErr = fmt.Errorf("erc20: unexpected decimals() return type %T", values[0])
			return
		}
		c.decimals = int(n.Int64())
	})
	return c.decimals, c.decimalsErr
}

// BalanceOf returns owner's token balance in the contract's smallest unit.
func (c *Client) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	owner, err := addrutil.EnsureValidAddress(owner)
	if err != nil {
		return nil, err
	}
	values, err := c.RPC.EthCall(ctx, c.ContractAddress, "balanceOf(address)", abi.MustParseTypes("address"), []interface{}{owner}, balanceOfReturn, "latest")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// Allowance returns the amount spender may draw from owner's balance.
func (c *Client) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	owner, err := addrutil.EnsureValidAddress(owner)
	if err != nil {
		return nil, err
	}
	spender, err = addrutil.EnsureValidAddress(spender)
	if err != nil {
		return nil, err
	}
	values, err := c.RPC.EthCall(ctx, c.ContractAddress, "allowance(address,address)", twoAddressTypes, []interface{}{owner, spender}, allowanceReturn, "latest")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// Transfer signs and submits transfer(to, amount) where amount is a
// decimal-string quantity interpreted with the contract's decimal places.
func (c *Client) Transfer(ctx context.Context, to string, amountDecimal string) (*txbuilder.TxHandle, error) {
	to, err := addrutil.EnsureValidAddress(to)
	if err != nil {
		return nil, err
	}
	amount, err := c.decimalAmountToUnits(ctx, amountDecimal)
	if err != nil {
		return nil, err
	}
	return c.submitCall(ctx, "transfer(address,uint256)", addressUint256Types, []interface{}{to, amount})
}

// Approve signs and submits approve(spender, amount).
func (c *Client) Approve(ctx context.Context, spender string, amountDecimal string) (*txbuilder.TxHandle, error) {
	spender, err := addrutil.EnsureValidAddress(spender)
	if err != nil {
		return nil, err
	}
	amount, err := c.decimalAmountToUnits(ctx, amountDecimal)
	if err != nil {
		return nil, err
	}
	return c.submitCall(ctx, "approve(address,uint256)", addressUint256Types, []interface{}{spender, amount})
}

// TransferFrom signs and submits transferFrom(from, to, amount).
func (c *Client) TransferFrom(ctx context.Context, from, to string, amountDecimal string) (*txbuilder.TxHandle, error) {
	from, err := addrutil.EnsureValidAddress(from)
	if err != nil {
		return nil, err
	}
	to, err = addrutil.EnsureValidAddress(to)
	if err != nil {
		return nil, err
	}
	amount, err := c.decimalAmountToUnits(ctx, amountDecimal)
	if err != nil {
		return nil, err
	}
	return c.submitCall(ctx, "transferFrom(address,address,uint256)", threeArgTypes, []interface{}{from, to, amount})
}

func (c *Client) decimalAmountToUnits(ctx context.Context, amountDecimal string) (*big.Int, error) {
	places, err := c.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	return numeric.BigIntFromDecimalString(amountDecimal, places)
}

func (c *Client) submitCall(ctx context.Context, funcSig string, argTypes []abi.Type, args []interface{}) (*txbuilder.TxHandle, error) {
	data, err := abi.Encode(argTypes, args)
	if err != nil {
		return nil, err
	}
	calldata := append(abi.FunctionSelectorBytes(funcSig), data...)

	b := txbuilder.New(c.Account, c.RPC)
	if err := b.SetTo(c.ContractAddress); err != nil {
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

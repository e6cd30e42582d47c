// Package txbuilder implements legacy (pre-EIP-1559) Ethereum transaction
// construction, EIP-155 signing, submission, and receipt polling.
package txbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"github.com/chainkit/usdc-go/internal/keccak"
	"github.com/chainkit/usdc-go/internal/rlp"
	"github.com/chainkit/usdc-go/pkg/account"
	"github.com/chainkit/usdc-go/pkg/addrutil"
	"github.com/chainkit/usdc-go/pkg/numeric"
	"github.com/chainkit/usdc-go/pkg/rpc"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

var (
	maxValueWei    = new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	maxGasPriceWei = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

	knownOrImportedPattern = regexp.MustCompile(`(?i)known|imported`)
)

const (
	minGasLimit     = uint64(21000)
	maxGasLimit     = uint64(20_000_000)
	maxGasPriceGwei = 1000.0
)

// Builder constructs, signs, and submits a single legacy Ethereum
// transaction. Setters validate eagerly; Sign resolves deferred fields
// (each producer runs at most once), fills in defaults from the RPC
// client, and produces the signed RLP bytes.
type Builder struct {
	account *account.Account
	rpc     *rpc.Client
	logger  *slog.Logger

	to        string // checksum address, "" if unset
	toDeferred *Deferred

	valueWei *big.Int // nil if unset

	gasLimit *uint64

	gasPriceWei *big.Int // nil if unset

	data         string // 0x-prefixed, "" if unset
	dataDeferred *Deferred

	nonce *uint64
}

// New returns a Builder that signs as account and talks to client.
func New(acc *account.Account, client *rpc.Client) *Builder {
	return &Builder{
		account: acc,
		rpc:     client,
		logger:  slog.Default().With("component", "txbuilder"),
	}
}

// SetTo validates and stores a recipient address in checksum form. An
// empty string clears it (contract-creation transaction).
func (b *Builder) SetTo(address string) error {
	if address == "" {
		b.to = ""
		b.toDeferred = nil
		return nil
	}
	checksum, err := addrutil.EnsureValidAddress(address)
	if err != nil {
		return err
	}
	b.to = checksum
	b.toDeferred = nil
	return nil
}

// SetToDeferred stores a one-shot producer for the recipient address,
// resolved during Sign.
func (b *Builder) SetToDeferred(d *Deferred) {
	b.to = ""
	b.toDeferred = d
}

// To returns the currently resolved (or not-yet-resolved) recipient.
func (b *Builder) To() string { return b.to }

// SetWeiValue sets the transaction value from a non-negative wei integer
// string, rejecting values at or above 10^6 ether.
func (b *Builder) SetWeiValue(weiDecimalString string) error {
	n, err := numeric.BigIntFromDecimalString(weiDecimalString, 0)
	if err != nil {
		return err
	}
	if n.Cmp(maxValueWei) >= 0 {
		return &werrors.InvalidParameter{Field: "weiValue", Reason: "must be less than 10^6 ether"}
	}
	b.valueWei = n
	return nil
}

// SetEthValue sets the transaction value from a positive decimal ether
// string, applying the same upper bound as SetWeiValue after conversion.
func (b *Builder) SetEthValue(ethDecimalString string) error {
	n, err := numeric.BigIntFromDecimalString(ethDecimalString, 18)
	if err != nil {
		return err
	}
	if n.Sign() <= 0 {
		return &werrors.InvalidParameter{Field: "ethValue", Reason: "must be positive"}
	}
	if n.Cmp(maxValueWei) >= 0 {
		return &werrors.InvalidParameter{Field: "ethValue", Reason: "must be less than 10^6 ether"}
	}
	b.valueWei = n
	return nil
}

// WeiValue returns the stored value in wei, or nil if unset.
func (b *Builder) WeiValue() *big.Int { return b.valueWei }

// EthValue returns the stored value converted to a decimal ether string.
func (b *Builder) EthValue() (string, error) {
	if b.valueWei == nil {
		return "0", nil
	}
	return numeric.DecimalStringFromBigInt(b.valueWei, 18)
}

// SetGasLimit validates n is within [21000, 20000000].
func (b *Builder) SetGasLimit(n uint64) error {
	if n < minGasLimit || n > maxGasLimit {
		return &werrors.InvalidParameter{Field: "gasLimit", Reason: "must be in [21000, 20000000]"}
	}
	b.gasLimit = &n
	return nil
}

// GasLimit returns the stored gas limit, or nil if unset.
func (b *Builder) GasLimit() *uint64 { return b.gasLimit }

// SetGasPriceWei validates wei is within [0, 10^12].
func (b *Builder) SetGasPriceWei(wei *big.Int) error {
	if wei.Sign() < 0 || wei.Cmp(maxGasPriceWei) > 0 {
		return &werrors.InvalidParameter{Field: "gasPriceWei", Reason: "must be in [0, 10^12]"}
	}
	b.gasPriceWei = new(big.Int).Set(wei)
	return nil
}

// SetGasPriceGwei validates gwei is within [0, 1000] and stores it as
// floor(gwei * 10^9) wei.
func (b *Builder) SetGasPriceGwei(gwei float64) error {
	if gwei < 0 || gwei > maxGasPriceGwei {
		return &werrors.InvalidParameter{Field: "gasPriceGwei", Reason: "must be in [0, 1000]"}
	}
	scaled := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9))
	wei, _ := scaled.Int(nil)
	b.gasPriceWei = wei
	return nil
}

// GasPriceWei returns the stored gas price in wei, or nil if unset.
func (b *Builder) GasPriceWei() *big.Int { return b.gasPriceWei }

// GasPriceGwei returns the stored gas price as wei/10^9.
func (b *Builder) GasPriceGwei() float64 {
	if b.gasPriceWei == nil {
		return 0
	}
	f := new(big.Float).SetInt(b.gasPriceWei)
	f.Quo(f, big.NewFloat(1e9))
	out, _ := f.Float64()
	return out
}

// SetData normalizes and stores call-data as 0x-prefixed hex.
func (b *Builder) SetData(hexData string) error {
	normalized, err := numeric.EnsureHex(hexData, "data", true, false)
	if err != nil {
		return err
	}
	b.data = normalized
	b.dataDeferred = nil
	return nil
}

// SetDataDeferred stores a one-shot producer for call-data, resolved
// during Sign.
func (b *Builder) SetDataDeferred(d *Deferred) {
	b.data = ""
	b.dataDeferred = d
}

// Data returns the currently resolved (or not-yet-resolved) call-data.
func (b *Builder) Data() string { return b.data }

// SetNonce validates n is a non-negative integer (always true for
// uint64) and stores it, overriding automatic nonce lookup.
func (b *Builder) SetNonce(n uint64) {
	b.nonce = &n
}

// Nonce returns the stored nonce, or nil if unset.
func (b *Builder) Nonce() *uint64 { return b.nonce }

func (b *Builder) resolveDeferredFields(ctx context.Context) error {
	if b.toDeferred != nil {
		resolved, err := b.toDeferred.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("txbuilder: resolve deferred to: %w", err)
		}
		checksum, err := addrutil.EnsureValidAddress(resolved)
		if err != nil {
			return err
		}
		b.to = checksum
	}
	if b.dataDeferred != nil {
		resolved, err := b.dataDeferred.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("txbuilder: resolve deferred data: %w", err)
		}
		normalized, err := numeric.EnsureHex(resolved, "data", true, false)
		if err != nil {
			return err
		}
		b.data = normalized
	}
	return nil
}

// SignedTransaction is the output of Sign: the raw RLP-encoded signed
// transaction bytes, its precomputed hash, and the chain id it was signed
// for.
type SignedTransaction struct {
	Raw     []byte
	TxHash  string
	ChainID uint64
}

// Sign resolves deferred to/data, fills in nonce/gasPrice/chainId/gasLimit
// defaults from the RPC client, builds the canonical RLP field list, and
// signs it under EIP-155. The emitted bytes are byte-identical across
// repeated calls given unchanged inputs.
func (b *Builder) Sign(ctx context.Context) (*SignedTransaction, error) {
	if err := b.resolveDeferredFields(ctx); err != nil {
		return nil, err
	}

	from := b.account.Address()

	nonce := b.nonce
	if nonce == nil {
		n, err := b.rpc.GetTransactionCount(ctx, from, "latest")
		if err != nil {
			return nil, fmt.Errorf("txbuilder: fetch nonce: %w", err)
		}
		nonce = &n
	}

	gasPriceWei := b.gasPriceWei
	if gasPriceWei == nil {
		gp, err := b.rpc.GetGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("txbuilder: fetch gas price: %w", err)
		}
		gasPriceWei = new(big.Int).SetUint64(gp)
	}

	chainID, err := b.rpc.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: fetch chain id: %w", err)
	}

	gasLimit, err := b.resolveGasLimit(ctx, from)
	if err != nil {
		return nil, err
	}

	valueWei := b.valueWei
	if valueWei == nil {
		valueWei = big.NewInt(0)
	}
	var dataBytes []byte
	if b.data != "" {
		dataBytes, err = numeric.BytesFromHex(b.data)
		if err != nil {
			return nil, err
		}
	}
	var toBytes []byte
	if b.to != "" {
		toBytes, err = numeric.BytesFromHex(b.to)
		if err != nil {
			return nil, err
		}
	}

	unsignedFields := []rlp.Item{
		rlp.Uint(*nonce),
		rlp.BigInt(gasPriceWei),
		rlp.Uint(gasLimit),
		rlp.Bytes(toBytes),
		rlp.BigInt(valueWei),
		rlp.Bytes(dataBytes),
		rlp.Uint(chainID),
		rlp.Bytes(nil),
		rlp.Bytes(nil),
	}
	unsignedEncoded, err := rlp.Encode(rlp.List(unsignedFields...))
	if err != nil {
		return nil, fmt.Errorf("txbuilder: rlp-encode unsigned tx: %w", err)
	}
	digest := keccak.Sum256(unsignedEncoded)

	sig, err := b.account.Sign(digest[:])
	if err != nil {
		return nil, fmt.Errorf("txbuilder: sign digest: %w", err)
	}

	recID := uint64(sig.V) - 27
	v := new(big.Int).Add(new(big.Int).SetUint64(recID), new(big.Int).Mul(big.NewInt(2), new(big.Int).SetUint64(chainID)))
	v.Add(v, big.NewInt(35))

	rBytes, err := numeric.BytesFromHex(sig.R)
	if err != nil {
		return nil, err
	}
	sBytes, err := numeric.BytesFromHex(sig.S)
	if err != nil {
		return nil, err
	}

	signedFields := []rlp.Item{
		rlp.Uint(*nonce),
		rlp.BigInt(gasPriceWei),
		rlp.Uint(gasLimit),
		rlp.Bytes(toBytes),
		rlp.BigInt(valueWei),
		rlp.Bytes(dataBytes),
		rlp.BigInt(v),
		rlp.BigInt(numeric.BigIntFromBytes(rBytes)),
		rlp.BigInt(numeric.BigIntFromBytes(sBytes)),
	}
	signedEncoded, err := rlp.Encode(rlp.List(signedFields...))
	if err != nil {
		return nil, fmt.Errorf("txbuilder: rlp-encode signed tx: %w", err)
	}

	txHashBytes := keccak.Sum256(signedEncoded)
	return &SignedTransaction{
		Raw:     signedEncoded,
		TxHash:  numeric.HexFromBytes(txHashBytes[:], true),
		ChainID: chainID,
	}, nil
}

func (b *Builder) resolveGasLimit(ctx context.Context, from string) (uint64, error) {
	if b.gasLimit != nil {
		return *b.gasLimit, nil
	}

	callObj := map[string]interface{}{"from": from}
	if b.to != "" {
		callObj["to"] = b.to
	}
	if b.valueWei != nil {
		callObj["value"] = numeric.HexFromBytes(numeric.BytesFromBigInt(b.valueWei), true)
	}
	if b.data != "" {
		callObj["data"] = b.data
	}

	estimate, err := b.rpc.EstimateGas(ctx, callObj)
	if err != nil {
		return 0, fmt.Errorf("txbuilder: estimate gas: %w", err)
	}
	if estimate == minGasLimit {
		return minGasLimit, nil
	}
	buffered := uint64(float64(estimate) * 1.5)
	return buffered, nil
}

// TxHandle is returned by Submit: the RPC client the transaction was sent
// through and the (possibly already-known) transaction hash.
type TxHandle struct {
	RPC    *rpc.Client
	TxHash string
}

// Submit broadcasts a signed transaction via eth_sendRawTransaction. An
// RPC error whose message matches /known|imported/i is treated as success
// (the transaction was already submitted) rather than propagated.
func (b *Builder) Submit(ctx context.Context, signed *SignedTransaction) (*TxHandle, error) {
	signedHex := numeric.HexFromBytes(signed.Raw, true)

	nodeTxHash, err := b.rpc.SendRawTransaction(ctx, signedHex)
	if err != nil {
		var rpcErr *werrors.RpcError
		if castRpcError(err, &rpcErr) && knownOrImportedPattern.MatchString(rpcErr.Message) {
			b.logger.Info("submit: transaction already known, treating as success",
				"tx_hash", signed.TxHash)
			return &TxHandle{RPC: b.rpc, TxHash: signed.TxHash}, nil
		}
		return nil, fmt.Errorf("txbuilder: submit: %w", err)
	}

	txHash := signed.TxHash
	if nodeTxHash != "" {
		txHash = nodeTxHash
	}
	return &TxHandle{RPC: b.rpc, TxHash: txHash}, nil
}

// SubmitAndWait submits signed and then polls for its receipt using the
// same parameters as rpc.Client.WaitForReceipt.
func (b *Builder) SubmitAndWait(ctx context.Context, signed *SignedTransaction, ignoreErrors bool, interval, timeout time.Duration) (*rpc.Receipt, error) {
	handle, err := b.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}
	return handle.RPC.WaitForReceipt(ctx, handle.TxHash, ignoreErrors, interval, timeout)
}

func castRpcError(err error, target **werrors.RpcError) bool {
	rpcErr, ok := err.(*werrors.RpcError)
	if ok {
		*target = rpcErr
	}
	return ok
}

// Package rpc implements a minimal JSON-RPC 2.0 client over HTTP for
// talking to an Ethereum node, plus typed helpers for the methods this
// module's codecs and transaction builder need.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chainkit/usdc-go/pkg/abi"
	"github.com/chainkit/usdc-go/pkg/numeric"
	"github.com/chainkit/usdc-go/pkg/werrors"
)

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcErrorBody struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcErrorBody   `json:"error,omitempty"`
}

// Client is a JSON-RPC client bound to a single node URL. The chain-id
// cache is invalidated whenever SetURL replaces the endpoint.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	url     string
	chainID *uint64
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client (e.g. for custom
// timeouts or transport-level instrumentation).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger overrides the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a Client bound to url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     slog.Default().With("component", "rpc"),
		url:        url,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the node endpoint this client is currently bound to.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// SetURL rebinds the client to a new endpoint and invalidates the cached
// chain id.
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
	c.chainID = nil
}

// CallMethod invokes method with params over JSON-RPC 2.0 and returns the
// raw "result" field.
func (c *Client) CallMethod(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("calling rpc method", "method", method)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rpc: request %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	var parsed response
	decodeErr := json.NewDecoder(httpResp.Body).Decode(&parsed)

	if decodeErr == nil && parsed.Error != nil {
		return nil, &werrors.RpcError{
			Message:    parsed.Error.Message,
			Code:       parsed.Error.Code,
			Data:       parsed.Error.Data,
			HTTPStatus: httpResp.StatusCode,
		}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if decodeErr != nil || parsed.Error == nil {
			return nil, &werrors.RpcError{Message: httpResp.Status, Code: 0, HTTPStatus: httpResp.StatusCode}
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("rpc: decode response for %s: %w", method, decodeErr)
	}
	if parsed.Result == nil && parsed.Error == nil {
		return nil, &werrors.RpcError{Message: "Result missing", Code: 0, HTTPStatus: httpResp.StatusCode}
	}
	return parsed.Result, nil
}

// EthCall composes call-data as selector(funcSig) || encode(argTypes,
// args), invokes eth_call against to at the given block, and decodes the
// response under returnType.
func (c *Client) EthCall(ctx context.Context, to string, funcSig string, argTypes []abi.Type, args []interface{}, returnType []abi.Type, block string) ([]interface{}, error) {
	if block == "" {
		block = "latest"
	}
	encodedArgs, err := abi.Encode(argTypes, args)
	if err != nil {
		return nil, fmt.Errorf("rpc: encode eth_call args: %w", err)
	}
	data := append(abi.FunctionSelectorBytes(funcSig), encodedArgs...)

	callObj := map[string]interface{}{
		"to":   to,
		"data": numeric.HexFromBytes(data, true),
	}
	raw, err := c.CallMethod(ctx, "eth_call", []interface{}{callObj, block})
	if err != nil {
		return nil, err
	}

	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return nil, fmt.Errorf("rpc: decode eth_call result: %w", err)
	}
	resultBytes, err := numeric.BytesFromHex(hexResult)
	if err != nil {
		return nil, err
	}
	return abi.Decode(returnType, resultBytes)
}

// GetChainID calls eth_chainId and caches the decoded value until the
// client's URL changes.
func (c *Client) GetChainID(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if c.chainID != nil {
		id := *c.chainID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	raw, err := c.CallMethod(ctx, "eth_chainId", nil)
	if err != nil {
		return 0, err
	}
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return 0, fmt.Errorf("rpc: decode eth_chainId result: %w", err)
	}
	id, err := numeric.IntFromHex(hexResult)
	if err != nil {
		return 0, err
	}
	chainID := uint64(id)

	c.mu.Lock()
	c.chainID = &chainID
	c.mu.Unlock()
	return chainID, nil
}

// GetTransactionCount calls eth_getTransactionCount for address at block.
func (c *Client) GetTransactionCount(ctx context.Context, address, block string) (uint64, error) {
	if block == "" {
		block = "latest"
	}
	raw, err := c.CallMethod(ctx, "eth_getTransactionCount", []interface{}{address, block})
	if err != nil {
		return 0, err
	}
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return 0, fmt.Errorf("rpc: decode eth_getTransactionCount result: %w", err)
	}
	n, err := numeric.IntFromHex(hexResult)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// GetGasPrice calls eth_gasPrice.
func (c *Client) GetGasPrice(ctx context.Context) (uint64, error) {
	raw, err := c.CallMethod(ctx, "eth_gasPrice", nil)
	if err != nil {
		return 0, err
	}
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return 0, fmt.Errorf("rpc: decode eth_gasPrice result: %w", err)
	}
	n, err := numeric.IntFromHex(hexResult)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// EstimateGas calls eth_estimateGas with the given call object.
func (c *Client) EstimateGas(ctx context.Context, callObj map[string]interface{}) (uint64, error) {
	raw, err := c.CallMethod(ctx, "eth_estimateGas", []interface{}{callObj})
	if err != nil {
		return 0, err
	}
	var hexResult string
	if err := json.Unmarshal(raw, &hexResult); err != nil {
		return 0, fmt.Errorf("rpc: decode eth_estimateGas result: %w", err)
	}
	n, err := numeric.IntFromHex(hexResult)
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// SendRawTransaction submits signedTxHex (0x-prefixed) via
// eth_sendRawTransaction and returns the transaction hash reported by the
// node.
func (c *Client) SendRawTransaction(ctx context.Context, signedTxHex string) (string, error) {
	raw, err := c.CallMethod(ctx, "eth_sendRawTransaction", []interface{}{signedTxHex})
	if err != nil {
		return "", err
	}
	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", fmt.Errorf("rpc: decode eth_sendRawTransaction result: %w", err)
	}
	return txHash, nil
}

// Receipt is the subset of an Ethereum transaction receipt this module
// exposes.
type Receipt struct {
	TransactionHash   string          `json:"transactionHash"`
	TransactionIndex  string          `json:"transactionIndex"`
	BlockHash         string          `json:"blockHash"`
	BlockNumber       string          `json:"blockNumber"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	GasUsed           string          `json:"gasUsed"`
	CumulativeGasUsed string          `json:"cumulativeGasUsed"`
	Status            string          `json:"status"`
	Logs              json.RawMessage `json:"logs"`
}

// StatusOK reports whether the receipt's status field indicates success
// ("0x1").
func (r *Receipt) StatusOK() bool { return r.Status == "0x1" }

// GetTransactionReceipt calls eth_getTransactionReceipt. A nil, nil
// result means the transaction is not yet mined.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	raw, err := c.CallMethod(ctx, "eth_getTransactionReceipt", []interface{}{txHash})
	if err != nil {
		return nil, err
	}
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, fmt.Errorf("rpc: decode receipt: %w", err)
	}
	return &receipt, nil
}

// WaitForReceipt polls GetTransactionReceipt every interval until it
// returns a non-nil receipt, the context is cancelled, or timeout
// elapses (timeout <= 0 disables the deadline). When ignoreErrors is
// true, network/RPC errors between polls are swallowed and polling
// continues.
func (c *Client) WaitForReceipt(ctx context.Context, txHash string, ignoreErrors bool, interval, timeout time.Duration) (*Receipt, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := func() (*Receipt, error) {
		receipt, err := c.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			if ignoreErrors {
				c.logger.Debug("waitForReceipt: ignoring poll error", "error", err)
				return nil, nil
			}
			return nil, err
		}
		return receipt, nil
	}

	if receipt, err := poll(); err != nil {
		return nil, err
	} else if receipt != nil {
		return receipt, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, &werrors.Timeout{Operation: "waitForReceipt"}
		case <-ticker.C:
			receipt, err := poll()
			if err != nil {
				return nil, err
			}
			if receipt != nil {
				return receipt, nil
			}
		}
	}
}

// Package evm implements a JSON-RPC 2.0 client for EVM-style chains,
// covering the calls the scanner needs: head block, log queries, block
// headers, and read-only contract calls.
package evm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"launch-radar/internal/ratelimit"
	"launch-radar/internal/retry"
)

// Default configuration values.
const (
	DefaultTimeout = 10 * time.Second

	// erc20 function selectors for the auxiliary metadata reads.
	selectorSymbol = "0x95d89b41"
	selectorName   = "0x06fdde03"

	// pool contract selectors, token0()/token1().
	selectorToken0 = "0x0dfe1681"
	selectorToken1 = "0xd21220a7"
)

// Client is an HTTP JSON-RPC 2.0 client. Every call waits on the shared
// rate gate and retries rate-limit and transport failures with bounded
// backoff; JSON-RPC application errors are terminal unless they themselves
// indicate rate limiting.
type Client struct {
	endpoint  string
	client    *http.Client
	gate      *ratelimit.Gate
	policy    retry.Policy
	requestID atomic.Uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithGate sets the shared minimum-interval gate.
func WithGate(g *ratelimit.Gate) ClientOption {
	return func(c *Client) {
		c.gate = g
	}
}

// WithRetryPolicy sets the retry policy for upstream failures.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new EVM RPC client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		gate:     ratelimit.NewGate(0),
		policy:   retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsRateLimit reports whether the error object indicates provider
// throttling rather than a bad request.
func (e *RPCError) IsRateLimit() bool {
	if e.Code == -32005 { // limit exceeded (EIP-1474)
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// call performs one JSON-RPC call through the gate and the retry policy.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	reqID := c.requestID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var raw json.RawMessage
	err = retry.Do(ctx, c.policy, func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited (429)")
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			if resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		if rpcResp.Error != nil {
			if rpcResp.Error.IsRateLimit() {
				return rpcResp.Error
			}
			return retry.Permanent(rpcResp.Error)
		}

		raw = rpcResp.Result
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if result != nil && raw != nil && string(raw) != "null" {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", method, err)
		}
	}
	return nil
}

// BlockNumber returns the current head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var hexNum string
	if err := c.call(ctx, "eth_blockNumber", nil, &hexNum); err != nil {
		return 0, err
	}
	return ParseHexUint64(hexNum)
}

// Logs queries logs matching the filter.
func (c *Client) Logs(ctx context.Context, filter Filter) ([]Log, error) {
	var logs []Log
	if err := c.call(ctx, "eth_getLogs", []any{filter}, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// BlockByNumber retrieves a block header by number.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	var block *Block
	if err := c.call(ctx, "eth_getBlockByNumber", []any{HexUint64(number), false}, &block); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("block %d not found", number)
	}
	return block, nil
}

// CallContract performs a read-only eth_call against the latest block and
// returns the raw hex return data.
func (c *Client) CallContract(ctx context.Context, to, data string) (string, error) {
	callObj := map[string]string{"to": to, "data": data}
	var out string
	if err := c.call(ctx, "eth_call", []any{callObj, "latest"}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// TokenSymbol reads an erc20 token's symbol, tolerating both the dynamic
// string and legacy bytes32 return shapes.
func (c *Client) TokenSymbol(ctx context.Context, token string) (string, error) {
	return c.tokenString(ctx, token, selectorSymbol)
}

// TokenName reads an erc20 token's display name.
func (c *Client) TokenName(ctx context.Context, token string) (string, error) {
	return c.tokenString(ctx, token, selectorName)
}

// PairTokens reads the two token addresses backing a pool contract.
func (c *Client) PairTokens(ctx context.Context, pair string) (string, string, error) {
	token0, err := c.tokenAddress(ctx, pair, selectorToken0)
	if err != nil {
		return "", "", fmt.Errorf("token0 of %s: %w", pair, err)
	}
	token1, err := c.tokenAddress(ctx, pair, selectorToken1)
	if err != nil {
		return "", "", fmt.Errorf("token1 of %s: %w", pair, err)
	}
	return token0, token1, nil
}

func (c *Client) tokenAddress(ctx context.Context, contract, selector string) (string, error) {
	out, err := c.CallContract(ctx, contract, selector)
	if err != nil {
		return "", err
	}
	raw, err := HexBytes(out)
	if err != nil {
		return "", err
	}
	if len(raw) < 32 {
		return "", fmt.Errorf("address return too short: %d bytes", len(raw))
	}
	return AddressFromWord(raw[:32])
}

func (c *Client) tokenString(ctx context.Context, token, selector string) (string, error) {
	out, err := c.CallContract(ctx, token, selector)
	if err != nil {
		return "", err
	}
	if s, err := DecodeString(out); err == nil && s != "" {
		return strings.TrimSpace(s), nil
	}
	s, err := DecodeBytes32String(out)
	if err != nil {
		return "", fmt.Errorf("decode token string from %s: %w", token, err)
	}
	if s == "" {
		return "", fmt.Errorf("empty token string from %s", token)
	}
	return strings.TrimSpace(s), nil
}

// Package sui implements a client for a Move-style chain's event index,
// queried over JSON-RPC rather than raw logs.
package sui

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

// DefaultTimeout bounds one HTTP round trip.
const DefaultTimeout = 10 * time.Second

// Client is an HTTP JSON-RPC client for the event index. Calls share a
// minimum-interval gate and retry transport and throttling failures.
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

// NewClient creates a new event-index client.
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

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

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

// IsRateLimit reports whether the error indicates provider throttling.
func (e *RPCError) IsRateLimit() bool {
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

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

// QueryEvents queries the event index. filter must be one of the filter
// types in this package; cursor may be nil to start from the newest or
// oldest end depending on descending.
func (c *Client) QueryEvents(ctx context.Context, filter any, cursor *EventID, limit int, descending bool) (*EventPage, error) {
	var cursorParam any
	if cursor != nil {
		cursorParam = cursor
	}

	var page EventPage
	if err := c.call(ctx, "suix_queryEvents", []any{filter, cursorParam, limit, descending}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

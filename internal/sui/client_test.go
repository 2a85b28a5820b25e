package sui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launch-radar/internal/retry"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(handler func(*http.Request) (*http.Response, error)) *Client {
	return NewClient("http://fullnode.local",
		WithHTTPClient(&http.Client{Transport: roundTripFunc(handler)}),
		WithRetryPolicy(retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}),
	)
}

func jsonHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

const samplePage = `{
	"data": [{
		"id": {"txDigest": "9w3Ab", "eventSeq": "0"},
		"packageId": "0xdee9",
		"transactionModule": "factory",
		"sender": "0xsender",
		"type": "0xdee9::factory::PoolCreated",
		"parsedJson": {"pool_id": "0xpool1"},
		"timestampMs": "1724580000000"
	}],
	"nextCursor": {"txDigest": "9w3Ab", "eventSeq": "0"},
	"hasNextPage": false
}`

func TestQueryEvents_TimeRangeFilter(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))

		assert.Equal(t, "suix_queryEvents", req.Method)
		require.Len(t, req.Params, 4)

		filter, err := json.Marshal(req.Params[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"TimeRange":{"startTime":"1724579700000","endTime":"1724580000000"}}`, string(filter))
		assert.Nil(t, req.Params[1], "nil cursor must serialize as null")
		assert.Equal(t, float64(50), req.Params[2])
		assert.Equal(t, true, req.Params[3])

		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(samplePage)}
		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		return jsonHTTPResponse(http.StatusOK, string(raw)), nil
	})

	page, err := client.QueryEvents(context.Background(),
		NewTimeRangeFilter(1724579700000, 1724580000000), nil, 50, true)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	ev := page.Data[0]
	assert.Equal(t, "0xdee9", ev.PackageID)
	assert.Equal(t, "0xdee9::factory::PoolCreated", ev.Type)
	assert.False(t, page.HasNextPage)

	ms, err := ev.TimeMs()
	require.NoError(t, err)
	assert.Equal(t, int64(1724580000000), ms)
}

func TestQueryEvents_EventTypeFilterAndCursor(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))

		filter, err := json.Marshal(req.Params[0])
		require.NoError(t, err)
		assert.JSONEq(t, `{"MoveEventType":"0xdee9::factory::PoolCreated"}`, string(filter))

		cursor, err := json.Marshal(req.Params[1])
		require.NoError(t, err)
		assert.JSONEq(t, `{"txDigest":"9w3Ab","eventSeq":"0"}`, string(cursor))

		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"data":[],"hasNextPage":false}`)}
		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		return jsonHTTPResponse(http.StatusOK, string(raw)), nil
	})

	page, err := client.QueryEvents(context.Background(),
		MoveEventTypeFilter{MoveEventType: "0xdee9::factory::PoolCreated"},
		&EventID{TxDigest: "9w3Ab", EventSeq: "0"}, 25, false)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestQueryEvents_RetriesOn429(t *testing.T) {
	var calls atomic.Int64
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		if calls.Add(1) < 2 {
			return jsonHTTPResponse(http.StatusTooManyRequests, "throttled"), nil
		}
		resp := rpcResponse{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`{"data":[],"hasNextPage":false}`)}
		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		return jsonHTTPResponse(http.StatusOK, string(raw)), nil
	})

	_, err := client.QueryEvents(context.Background(), NewTimeRangeFilter(0, 1), nil, 10, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestEvent_TimeMs_Malformed(t *testing.T) {
	ev := Event{TimestampMs: "not-a-number"}
	if _, err := ev.TimeMs(); err == nil {
		t.Error("TimeMs() should reject a malformed timestamp")
	}

	empty := Event{}
	if _, err := empty.TimeMs(); err == nil {
		t.Error("TimeMs() should reject a missing timestamp")
	}
}

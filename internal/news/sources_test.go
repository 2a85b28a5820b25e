package news

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launch-radar/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubHTTPClient(handler func(*http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: roundTripFunc(handler)}
}

func jsonHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestCryptoPanic_GeneralRequestShape(t *testing.T) {
	src := NewCryptoPanic(CryptoPanicOptions{
		APIKey:  "cp-key",
		BaseURL: "http://cryptopanic.local/api/v1",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			assert.Equal(t, "/api/v1/posts/", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "cp-key", q.Get("auth_token"))
			assert.Equal(t, "true", q.Get("public"))
			assert.Equal(t, "news", q.Get("kind"))
			assert.Equal(t, "5", q.Get("page_size"))
			assert.Empty(t, q.Get("currencies"), "general feed must not filter by currency")
			return jsonHTTPResponse(http.StatusOK, `{"results":[]}`), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 5)
	require.NoError(t, err)
}

func TestCryptoPanic_ChainQueryFiltersCurrencies(t *testing.T) {
	src := NewCryptoPanic(CryptoPanicOptions{
		APIKey: "cp-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			assert.Equal(t, "SUI,CETUS", r.URL.Query().Get("currencies"))
			return jsonHTTPResponse(http.StatusOK, `{"results":[]}`), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainSui, Keywords: []string{"sui", "cetus"}}, 5)
	require.NoError(t, err)
}

func TestCryptoPanic_MapsResults(t *testing.T) {
	body := `{"results":[
		{"id":1,"title":"New DEX Goes Live on Base","url":"https://cp.local/1",
		 "published_at":"2026-08-25T10:00:00Z",
		 "currencies":[{"code":"ETH"},{"code":"BASE"}],
		 "source":{"title":"CoinWire"}},
		{"id":2,"title":"","url":"https://cp.local/2","published_at":"2026-08-25T11:00:00Z"}
	]}`
	src := NewCryptoPanic(CryptoPanicOptions{
		APIKey: "cp-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			return jsonHTTPResponse(http.StatusOK, body), nil
		}),
	})

	items, err := src.Fetch(context.Background(), Query{Chain: domain.ChainBase}, 10)
	require.NoError(t, err)
	require.Len(t, items, 1, "untitled results are dropped")

	item := items[0]
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "New DEX Goes Live on Base", item.Title)
	assert.Equal(t, "new dex goes live on base", item.TitleKey)
	assert.Equal(t, domain.ChainBase, item.Chain)
	assert.Equal(t, "cryptopanic", item.Source)
	assert.Equal(t, "ETH", item.Symbol)
	assert.Equal(t, []string{"ETH", "BASE"}, item.Tags)

	want := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, item.PublishedAt)
}

func TestCryptoPanic_MissingKey(t *testing.T) {
	src := NewCryptoPanic(CryptoPanicOptions{})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestCryptoPanic_HTTPError(t *testing.T) {
	src := NewCryptoPanic(CryptoPanicOptions{
		APIKey: "cp-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			return jsonHTTPResponse(http.StatusInternalServerError, "oops"), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNewsAPI_RequestShape(t *testing.T) {
	src := NewNewsAPI(NewsAPIOptions{
		APIKey: "na-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/everything"))
			q := r.URL.Query()
			assert.Equal(t, "na-key", q.Get("apiKey"))
			assert.Equal(t, defaultNewsAPIQuery, q.Get("q"))
			assert.Equal(t, "en", q.Get("language"))
			assert.Equal(t, "publishedAt", q.Get("sortBy"))
			assert.Equal(t, "3", q.Get("pageSize"))
			return jsonHTTPResponse(http.StatusOK, `{"status":"ok","articles":[]}`), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 3)
	require.NoError(t, err)
}

func TestNewsAPI_StatusError(t *testing.T) {
	body := `{"status":"error","code":"rateLimited","message":"too many requests"}`
	src := NewNewsAPI(NewsAPIOptions{
		APIKey: "na-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			return jsonHTTPResponse(http.StatusOK, body), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rateLimited")
	assert.Contains(t, err.Error(), "too many requests")
}

func TestNewsAPI_MapsArticles(t *testing.T) {
	body := `{"status":"ok","articles":[
		{"source":{"name":"Wire"},"title":"Markets Rally","description":"Broad rally.",
		 "url":"https://na.local/1","publishedAt":"2026-08-25T09:30:00Z"},
		{"source":{"name":"Wire"},"title":"No Timestamp","url":"https://na.local/2"}
	]}`
	src := NewNewsAPI(NewsAPIOptions{
		APIKey: "na-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			return jsonHTTPResponse(http.StatusOK, body), nil
		}),
	})

	items, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Markets Rally", items[0].Title)
	assert.Equal(t, "Broad rally.", items[0].Description)
	assert.Equal(t, "newsapi", items[0].Source)
	want := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, items[0].PublishedAt)

	assert.Zero(t, items[1].PublishedAt, "missing timestamps must not become negative epochs")
}

func TestNewsAPI_MissingKey(t *testing.T) {
	src := NewNewsAPI(NewsAPIOptions{})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestCryptoCompare_WorksWithoutKey(t *testing.T) {
	src := NewCryptoCompare(CryptoCompareOptions{
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Equal(t, "EN", r.URL.Query().Get("lang"))
			return jsonHTTPResponse(http.StatusOK, `{"Type":100,"Data":[]}`), nil
		}),
	})

	items, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCryptoCompare_KeyAndCategories(t *testing.T) {
	src := NewCryptoCompare(CryptoCompareOptions{
		APIKey: "cc-key",
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			assert.Equal(t, "Apikey cc-key", r.Header.Get("Authorization"))
			assert.Equal(t, "BASE,ETH", r.URL.Query().Get("categories"))
			return jsonHTTPResponse(http.StatusOK, `{"Type":100,"Data":[]}`), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainBase, Keywords: []string{"base", "eth"}}, 5)
	require.NoError(t, err)
}

func TestCryptoCompare_MapsData(t *testing.T) {
	body := `{"Type":100,"Data":[
		{"id":"n1","title":"Sui Volume Spikes","url":"https://cc.local/1","body":"Details.",
		 "categories":"SUI|TRADING","published_on":1756116000,
		 "source_info":{"name":"CC"}},
		{"id":"n2","title":"Second","url":"https://cc.local/2","published_on":1756117000},
		{"id":"n3","title":"Third","url":"https://cc.local/3","published_on":1756118000}
	]}`
	src := NewCryptoCompare(CryptoCompareOptions{
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			return jsonHTTPResponse(http.StatusOK, body), nil
		}),
	})

	items, err := src.Fetch(context.Background(), Query{Chain: domain.ChainSui}, 2)
	require.NoError(t, err)
	require.Len(t, items, 2, "limit bounds the mapped results")

	item := items[0]
	assert.Equal(t, "Sui Volume Spikes", item.Title)
	assert.Equal(t, "Details.", item.Description)
	assert.Equal(t, "cryptocompare", item.Source)
	assert.Equal(t, []string{"SUI", "TRADING"}, item.Tags)
	assert.Equal(t, int64(1756116000000), item.PublishedAt)
}

func TestCryptoCompare_APIError(t *testing.T) {
	src := NewCryptoCompare(CryptoCompareOptions{
		HTTPClient: stubHTTPClient(func(r *http.Request) (*http.Response, error) {
			return jsonHTTPResponse(http.StatusOK, `{"Type":2,"Message":"rate limit"}`), nil
		}),
	})

	_, err := src.Fetch(context.Background(), Query{Chain: domain.ChainGeneral}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

// Package markets implements a keyless HTTP client for a DexScreener-style
// market-data API. It serves two jobs: enriching freshly detected launches
// with market numbers, and surfacing externally trending listings as a
// second asset source.
package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"launch-radar/internal/domain"
	"launch-radar/internal/ratelimit"
	"launch-radar/internal/recordid"
	"launch-radar/internal/retry"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.dexscreener.com"
	DefaultTimeout = 15 * time.Second
)

// TokenInfo identifies one side of a trading pair.
type TokenInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// LinkRef is a labelled URL attached to a pair's info block.
type LinkRef struct {
	Label string `json:"label,omitempty"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url"`
}

// PairInfo carries the optional media block of a pair.
type PairInfo struct {
	ImageURL string    `json:"imageUrl,omitempty"`
	Websites []LinkRef `json:"websites,omitempty"`
	Socials  []LinkRef `json:"socials,omitempty"`
}

// Pair is one trading pair as the API reports it. PriceUSD arrives as a
// string on the wire.
type Pair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	URL         string    `json:"url"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   TokenInfo `json:"baseToken"`
	QuoteToken  TokenInfo `json:"quoteToken"`
	PriceUSD    string    `json:"priceUsd"`
	Volume      struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV           float64   `json:"fdv"`
	MarketCap     float64   `json:"marketCap"`
	PairCreatedAt int64     `json:"pairCreatedAt"` // unix ms
	Info          *PairInfo `json:"info,omitempty"`
}

// TokenProfile is one entry of the latest-profiles feed.
type TokenProfile struct {
	URL          string    `json:"url"`
	ChainID      string    `json:"chainId"`
	TokenAddress string    `json:"tokenAddress"`
	Description  string    `json:"description,omitempty"`
	Links        []LinkRef `json:"links,omitempty"`
}

// Client is the HTTP client. Every call waits on the shared rate gate and
// retries rate-limit and transport failures with bounded backoff.
type Client struct {
	baseURL string
	client  *http.Client
	gate    *ratelimit.Gate
	policy  retry.Policy
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

// NewClient creates a market-data client. An empty baseURL selects the
// public endpoint.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		gate:    ratelimit.NewGate(0),
		policy:  retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one GET through the gate and the retry policy, decoding the
// body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	err := retry.Do(ctx, c.policy, func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited (429)")
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if resp.StatusCode >= 500 {
				return err
			}
			return retry.Permanent(err)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

// PairsByToken returns the token's pairs on the given chain, most liquid
// first. Tokens unknown to the API yield an empty slice, not an error.
func (c *Client) PairsByToken(ctx context.Context, chain domain.Chain, address string) ([]Pair, error) {
	var payload struct {
		Pairs []Pair `json:"pairs"`
	}
	if err := c.get(ctx, "/latest/dex/tokens/"+url.PathEscape(address), &payload); err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, len(payload.Pairs))
	for _, p := range payload.Pairs {
		if p.ChainID == string(chain) {
			pairs = append(pairs, p)
		}
	}
	sortByLiquidity(pairs)
	return pairs, nil
}

// SearchPairs runs a free-text pair search.
func (c *Client) SearchPairs(ctx context.Context, query string) ([]Pair, error) {
	var payload struct {
		Pairs []Pair `json:"pairs"`
	}
	path := "/latest/dex/search?q=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Pairs, nil
}

// LatestProfiles returns the newest token profiles across all chains. The
// endpoint answers with a bare array.
func (c *Client) LatestProfiles(ctx context.Context) ([]TokenProfile, error) {
	var profiles []TokenProfile
	if err := c.get(ctx, "/token-profiles/latest/v1", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func sortByLiquidity(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Liquidity.USD > pairs[j].Liquidity.USD
	})
}

// BestPair picks the most liquid pair, nil for an empty slice.
func BestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		if best == nil || pairs[i].Liquidity.USD > best.Liquidity.USD {
			best = &pairs[i]
		}
	}
	return best
}

// priceFromString tolerates the API's string-typed USD price.
func priceFromString(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// Enrich applies a pair's market numbers onto an asset in place, filling
// identity fields only where the detector left them empty.
func Enrich(a *domain.Asset, p *Pair) {
	if a == nil || p == nil {
		return
	}
	a.MarketCap = p.MarketCap
	if a.MarketCap == 0 {
		a.MarketCap = p.FDV
	}
	a.Volume24h = p.Volume.H24
	a.PriceUSD = priceFromString(p.PriceUSD)
	a.PriceChange24h = p.PriceChange.H24
	if p.Liquidity.USD > 0 {
		liq := p.Liquidity.USD
		a.LiquidityUSD = &liq
	}
	if a.Symbol == "" {
		a.Symbol = p.BaseToken.Symbol
	}
	if a.Name == "" {
		a.Name = p.BaseToken.Name
	}
	if a.LaunchedAt == 0 && p.PairCreatedAt > 0 {
		a.LaunchedAt = p.PairCreatedAt
	}
	if len(a.URLs) == 0 {
		a.URLs = pairURLs(p)
	}
}

// AssetFromPair builds a listing asset out of a search or trending pair.
// Callers must check Chain.IsValid, the feed covers chains the radar does
// not watch.
func AssetFromPair(p *Pair, source string) *domain.Asset {
	chain := domain.Chain(p.ChainID)
	address := p.BaseToken.Address
	if chain.IsEVM() {
		address = strings.ToLower(address)
	}

	a := &domain.Asset{
		ID:         recordid.ForAsset(chain, address),
		Symbol:     p.BaseToken.Symbol,
		Name:       p.BaseToken.Name,
		Chain:      chain,
		Address:    address,
		Source:     source,
		LaunchedAt: p.PairCreatedAt,
		CreatedAt:  time.Now().UnixMilli(),
	}
	Enrich(a, p)
	return a
}

func pairURLs(p *Pair) []string {
	var urls []string
	if p.URL != "" {
		urls = append(urls, p.URL)
	}
	if p.Info != nil {
		for _, w := range p.Info.Websites {
			if w.URL != "" {
				urls = append(urls, w.URL)
			}
		}
		for _, s := range p.Info.Socials {
			if s.URL != "" {
				urls = append(urls, s.URL)
			}
		}
	}
	return urls
}

package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launch-radar/internal/domain"
	"launch-radar/internal/recordid"
)

const defaultCryptoCompareURL = "https://min-api.cryptocompare.com"

// CryptoCompareOptions configures a CryptoCompare source. The news endpoint
// is public, so the key is optional and only lifts rate limits.
type CryptoCompareOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// CryptoCompare fetches from the public min-api news feed. It is the
// keyless last resort of the general feed and one of the parallel sources
// for chain-scoped feeds via the categories filter.
type CryptoCompare struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewCryptoCompare(opts CryptoCompareOptions) *CryptoCompare {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultCryptoCompareURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CryptoCompare{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (c *CryptoCompare) Name() string { return "cryptocompare" }

type cryptoCompareResponse struct {
	Type    int    `json:"Type"`
	Message string `json:"Message"`
	Data    []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		Body        string `json:"body"`
		Categories  string `json:"categories"` // pipe-separated
		PublishedOn int64  `json:"published_on"`
		SourceInfo  struct {
			Name string `json:"name"`
		} `json:"source_info"`
	} `json:"Data"`
}

func (c *CryptoCompare) Fetch(ctx context.Context, q Query, limit int) ([]*domain.NewsItem, error) {
	params := url.Values{}
	params.Set("lang", "EN")
	if q.Chain != domain.ChainGeneral && len(q.Keywords) > 0 {
		params.Set("categories", strings.ToUpper(strings.Join(q.Keywords, ",")))
	}

	endpoint := c.baseURL + "/data/v2/news/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cryptocompare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cryptocompare returned status %d", resp.StatusCode)
	}

	var payload cryptoCompareResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cryptocompare decode: %w", err)
	}
	// Type >= 100 is success in the min-api convention
	if payload.Type != 0 && payload.Type < 100 {
		return nil, fmt.Errorf("cryptocompare error type %d: %s", payload.Type, payload.Message)
	}

	items := make([]*domain.NewsItem, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if entry.Title == "" {
			continue
		}
		if limit > 0 && len(items) >= limit {
			break
		}
		item := &domain.NewsItem{
			ID:          recordid.ForNews(entry.Title),
			Title:       entry.Title,
			TitleKey:    domain.NormalizeTitle(entry.Title),
			Description: entry.Body,
			URL:         entry.URL,
			Chain:       q.Chain,
			Source:      c.Name(),
			PublishedAt: entry.PublishedOn * 1000,
			CreatedAt:   time.Now().UnixMilli(),
		}
		if entry.Categories != "" {
			item.Tags = strings.Split(entry.Categories, "|")
		}
		items = append(items, item)
	}
	return items, nil
}

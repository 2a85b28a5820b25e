package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"launch-radar/internal/domain"
	"launch-radar/internal/recordid"
)

const defaultCryptoPanicURL = "https://cryptopanic.com/api/v1"

// CryptoPanicOptions configures a CryptoPanic source.
type CryptoPanicOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// CryptoPanic fetches posts from the CryptoPanic aggregation API. It serves
// both the general feed and chain-scoped feeds via the currencies filter.
type CryptoPanic struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewCryptoPanic(opts CryptoPanicOptions) *CryptoPanic {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultCryptoPanicURL
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CryptoPanic{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (c *CryptoPanic) Name() string { return "cryptopanic" }

type cryptoPanicResponse struct {
	Results []struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		URL        string `json:"url"`
		Published  string `json:"published_at"`
		Currencies []struct {
			Code string `json:"code"`
		} `json:"currencies"`
		Source struct {
			Title string `json:"title"`
		} `json:"source"`
	} `json:"results"`
}

func (c *CryptoPanic) Fetch(ctx context.Context, q Query, limit int) ([]*domain.NewsItem, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("cryptopanic: %w", ErrNotConfigured)
	}

	params := url.Values{}
	params.Set("auth_token", c.apiKey)
	params.Set("public", "true")
	params.Set("kind", "news")
	if limit > 0 {
		params.Set("page_size", strconv.Itoa(limit))
	}
	if q.Chain != domain.ChainGeneral && len(q.Keywords) > 0 {
		params.Set("currencies", strings.ToUpper(strings.Join(q.Keywords, ",")))
	}

	endpoint := c.baseURL + "/posts/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cryptopanic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cryptopanic returned status %d", resp.StatusCode)
	}

	var payload cryptoPanicResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cryptopanic decode: %w", err)
	}

	items := make([]*domain.NewsItem, 0, len(payload.Results))
	for _, result := range payload.Results {
		if result.Title == "" {
			continue
		}

		var publishedAt int64
		if ts, err := time.Parse(time.RFC3339, result.Published); err == nil {
			publishedAt = ts.UnixMilli()
		}

		item := &domain.NewsItem{
			ID:          recordid.ForNews(result.Title),
			Title:       result.Title,
			TitleKey:    domain.NormalizeTitle(result.Title),
			URL:         result.URL,
			Chain:       q.Chain,
			Source:      c.Name(),
			PublishedAt: publishedAt,
			CreatedAt:   time.Now().UnixMilli(),
		}
		if len(result.Currencies) > 0 {
			item.Symbol = result.Currencies[0].Code
			for _, cur := range result.Currencies {
				item.Tags = append(item.Tags, cur.Code)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

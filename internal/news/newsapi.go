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

const (
	defaultNewsAPIURL   = "https://newsapi.org/v2"
	defaultNewsAPIQuery = "cryptocurrency OR blockchain"
)

// NewsAPIOptions configures a NewsAPI source.
type NewsAPIOptions struct {
	APIKey     string
	BaseURL    string
	SearchTerm string // defaults to a broad crypto query
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewsAPI fetches from newsapi.org's everything endpoint. General feed
// fallback only; it has no useful chain-level filter.
type NewsAPI struct {
	apiKey     string
	baseURL    string
	searchTerm string
	client     *http.Client
}

func NewNewsAPI(opts NewsAPIOptions) *NewsAPI {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultNewsAPIURL
	}
	searchTerm := opts.SearchTerm
	if searchTerm == "" {
		searchTerm = defaultNewsAPIQuery
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &NewsAPI{
		apiKey:     opts.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		searchTerm: searchTerm,
		client:     client,
	}
}

func (c *NewsAPI) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (c *NewsAPI) Fetch(ctx context.Context, q Query, limit int) ([]*domain.NewsItem, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("newsapi: %w", ErrNotConfigured)
	}

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("q", c.searchTerm)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	if limit > 0 {
		params.Set("pageSize", strconv.Itoa(limit))
	}

	endpoint := c.baseURL + "/everything?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi returned status %d", resp.StatusCode)
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("newsapi decode: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s: %s", payload.Code, payload.Message)
	}

	items := make([]*domain.NewsItem, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if article.Title == "" {
			continue
		}
		var publishedAt int64
		if !article.PublishedAt.IsZero() {
			publishedAt = article.PublishedAt.UnixMilli()
		}
		items = append(items, &domain.NewsItem{
			ID:          recordid.ForNews(article.Title),
			Title:       article.Title,
			TitleKey:    domain.NormalizeTitle(article.Title),
			Description: article.Description,
			URL:         article.URL,
			Chain:       q.Chain,
			Source:      c.Name(),
			PublishedAt: publishedAt,
			CreatedAt:   time.Now().UnixMilli(),
		})
	}
	return items, nil
}

package prowlarr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Client represents a Prowlarr API client
type Client struct {
	baseURL    string
	apiKey     string
	categories []int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Prowlarr client
func NewClient(baseURL, apiKey string, categories []int, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: URL is required", ErrInvalidConfig)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}

	// Ensure baseURL doesn't have trailing slash
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	client := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		categories: categories,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	// Test the connection
	if err := client.TestConnection(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoConnection, err)
	}

	return client, nil
}

// doRequest performs an HTTP request with authentication
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1%s", c.baseURL, endpoint)
	if len(params) > 0 {
		url += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	return body, nil
}

// TestConnection tests the connection to Prowlarr
func (c *Client) TestConnection(ctx context.Context) error {
	// The health endpoint verifies reachability and the API key
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// Search queries all configured indexers for the given term
func (c *Client) Search(ctx context.Context, query string) ([]Release, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "search")
	for _, cat := range c.categories {
		params.Add("categories", strconv.Itoa(cat))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/search", params)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var releases []Release
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	c.logger.Debug().
		Str("query", query).
		Int("count", len(releases)).
		Msg("Retrieved releases from Prowlarr")

	return releases, nil
}

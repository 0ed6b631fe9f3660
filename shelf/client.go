package shelf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client wraps the AudiobookShelf API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new AudiobookShelf client. The constructor does not
// dial; availability is checked through Ping so a down server does not
// block startup.
func NewClient(baseURL, token string, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("audiobookshelf URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("audiobookshelf API token is required")
	}

	baseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Ping verifies the server is reachable and the token is accepted
func (c *Client) Ping(ctx context.Context) error {
	if err := c.doRequest(ctx, http.MethodGet, "/api/me"); err != nil {
		return fmt.Errorf("audiobookshelf ping failed: %w", err)
	}
	return nil
}

// TriggerScan asks the server to rescan a library for new items
func (c *Client) TriggerScan(ctx context.Context, libraryID string) error {
	if libraryID == "" {
		return fmt.Errorf("library id is required")
	}

	endpoint := fmt.Sprintf("/api/libraries/%s/scan", libraryID)
	if err := c.doRequest(ctx, http.MethodPost, endpoint); err != nil {
		return fmt.Errorf("library scan failed: %w", err)
	}

	c.logger.Debug().Str("library_id", libraryID).Msg("Triggered AudiobookShelf library scan")
	return nil
}

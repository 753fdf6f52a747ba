// Package shortener calls an external URL shortening service.
// The service accepts POST {"url": ...} and answers {"short_url": ...}.
package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dkeye/chatrelay/internal/domain"
)

type shortenRequest struct {
	URL string `json:"url"`
}

type shortenResponse struct {
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	body, err := json.Marshal(shortenRequest{URL: longURL})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrShortenFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrShortenFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrShortenFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", domain.ErrShortenFailed, resp.StatusCode)
	}
	var out shortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %w", domain.ErrShortenFailed, err)
	}
	if out.ShortURL == "" {
		return "", fmt.Errorf("%w: empty short_url", domain.ErrShortenFailed)
	}
	return out.ShortURL, nil
}

// Noop is used when no shortening endpoint is configured.
type Noop struct{}

func (Noop) Shorten(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: not configured", domain.ErrShortenFailed)
}

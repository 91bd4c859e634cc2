// Package assistant calls the site-config generation endpoint: a
// stateless text-generation request producing a generator config file.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"blogsmith/internal/logger"
)

type Client struct {
	url        string
	key        string
	httpClient *http.Client
	log        logger.Logger
}

func New(url, key string, log logger.Logger) *Client {
	return &Client{
		url:        url,
		key:        key,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Enabled reports whether an endpoint is configured at all.
func (c *Client) Enabled() bool { return c.url != "" }

type generateRequest struct {
	Title    string `json:"title"`
	SiteName string `json:"site_name"`
	Prompt   string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// GenerateConfig returns the generated config file text for a site.
func (c *Client) GenerateConfig(ctx context.Context, title, siteName, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Title:    title,
		SiteName: siteName,
		Prompt:   prompt,
	})
	if err != nil {
		return "", fmt.Errorf("assistant marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("assistant request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("assistant call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("assistant decode failed: %w", err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("assistant returned empty config")
	}

	return out.Text, nil
}

// Package cms is the HTTP client for the Directus-style content
// service, consumed only for the practitioner whitelist.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	whitelistPath  = "/items/practitioner_whitelist?limit=1000"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type whitelistEntry struct {
	UserID string `json:"user_id"`
}

type whitelistResponse struct {
	Data []whitelistEntry `json:"data"`
}

// GetWhitelist fetches the allow-list of user ids permitted to obtain
// an access token. The caller decides what a failure means; this
// client just reports it.
func (c *Client) GetWhitelist(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+whitelistPath, nil)
	if err != nil {
		return nil, fmt.Errorf("whitelist request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whitelist fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whitelist fetch: unexpected status %d", resp.StatusCode)
	}

	var payload whitelistResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("whitelist decode: %w", err)
	}

	users := make([]string, 0, len(payload.Data))
	for _, entry := range payload.Data {
		users = append(users, entry.UserID)
	}
	return users, nil
}

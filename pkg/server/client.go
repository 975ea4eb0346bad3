package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running feedpulse server.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Invalidate makes the server drop its stats snapshot through POST /api/init.
// It reports false without an error when nothing is listening at the address.
func (c *Client) Invalidate(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/init", nil)
	if err != nil {
		return false, fmt.Errorf("create init request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return false, nil
		}
		return false, fmt.Errorf("call %s/api/init: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return true, fmt.Errorf("%s/api/init status %d", c.baseURL, resp.StatusCode)
	}
	return true, nil
}

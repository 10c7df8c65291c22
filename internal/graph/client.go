// Package graph provides a minimal Microsoft Graph REST client: single
// requests, batched multi-requests, and a bounded parallel fan-out helper.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qualitymasters/outlook-mcp/internal/auth"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	requestTimeout = 30 * time.Second

	// Upstream error bodies are logged truncated to this many bytes.
	logBodyLimit = 200
)

// Client performs authenticated requests against the Graph API.
type Client struct {
	httpClient *http.Client
	tokens     auth.TokenSource
	baseURL    string
}

// NewClient creates a Graph client using the given token source.
func NewClient(tokens auth.TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL creates a Graph client against a custom base URL.
// Used by tests.
func NewClientWithBaseURL(tokens auth.TokenSource, baseURL string) *Client {
	c := NewClient(tokens)
	c.baseURL = baseURL

	return c
}

// RelativeLink strips the API base from an absolute @odata.nextLink.
func (c *Client) RelativeLink(link string) string {
	return strings.TrimPrefix(link, c.baseURL)
}

// Get performs a GET request and decodes the JSON response into out.
// endpoint may be a path relative to the API base or an absolute URL as
// returned in @odata.nextLink.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := endpoint
	if !strings.HasPrefix(u, "https://") {
		u = c.baseURL + endpoint
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}

	return c.do(req, endpoint, out)
}

// Post performs a POST request with a JSON body and decodes the response
// into out.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return fmt.Errorf("tokens.Token failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("Request failed: %s: %v", endpoint, err)

		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("io.ReadAll failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("API error %d on %s: %s", resp.StatusCode, endpoint, truncateBytes(raw, logBodyLimit))

		return fmt.Errorf("API error %d on %s", resp.StatusCode, endpoint)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %w", err)
	}

	return nil
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}

package netbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/nbchanges/internal/core/domain"
)

// Client fetches change log pages from a NetBox instance. Each Fetch is a
// single GET with no retry; timeouts are left to the transport defaults.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

// NewClient returns a Client for baseURL (scheme and host, optionally with a
// path prefix) that authenticates with token. A nil httpClient falls back to
// http.DefaultClient.
func NewClient(baseURL, token string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  httpClient,
		log:     log,
	}
}

// URL returns the fully-qualified request URL for query.
func (c *Client) URL(query domain.Query) (string, error) {
	u, err := url.Parse(c.baseURL + domain.ObjectChangesPath)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = query.Params.Encode()
	return u.String(), nil
}

// Fetch sends the query and returns the response body unchanged, whatever
// the status code. The following headers are set on every request:
//
//	Authorization:  Token <token>
//	Accept:         application/json
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]byte, error) {
	target, err := c.URL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	c.log.Debug("fetching changes", zap.String("command", query.Command), zap.String("url", target))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrTransport, err)
	}

	fields := []zap.Field{
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.String("request_id", resp.Header.Get("X-Request-ID")),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("change log returned non-success status", fields...)
	} else {
		c.log.Debug("fetched changes", fields...)
	}
	return body, nil
}

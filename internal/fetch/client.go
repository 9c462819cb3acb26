package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tunefetch/internal/config"
	"tunefetch/internal/services"
)

const defaultTimeout = 30 * time.Second

// Client opens remote resources as byte streams.
type Client interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPClient fetches over HTTP(S).
type HTTPClient struct {
	client    *http.Client
	userAgent string
}

// NewHTTPClient builds a client using the fetch timeout and user agent from cfg.
func NewHTTPClient(cfg *config.Config) *HTTPClient {
	timeout := defaultTimeout
	userAgent := ""
	if cfg != nil {
		if t := cfg.FetchTimeout(); t > 0 {
			timeout = t
		}
		userAgent = strings.TrimSpace(cfg.Fetch.UserAgent)
	}
	return &HTTPClient{client: &http.Client{Timeout: timeout}, userAgent: userAgent}
}

// Fetch performs a GET and returns the response body. Non-2xx responses are
// errors. The caller closes the body.
func (c *HTTPClient) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "request", "empty url", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "request", "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCancelled, "fetch", "request", url, err)
		}
		return nil, services.Wrap(services.ErrCollaborator, "fetch", "request", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrCollaborator, "fetch", "request",
			fmt.Sprintf("%s returned %d", url, resp.StatusCode), fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}
	return resp.Body, nil
}

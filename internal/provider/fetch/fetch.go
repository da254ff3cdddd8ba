// Package fetch is the outbound request primitive shared by the provider
// adapters: run one HTTP request with a hard timeout, get raw bytes back.
// Adapters translate its failures into the provider error taxonomy.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client issues provider requests. The zero value is not usable; call New.
type Client struct {
	http *http.Client
}

// New builds a Client with a dedicated transport.
func New() *Client {
	return &Client{
		http: &http.Client{
			Transport: http.DefaultTransport,
		},
	}
}

// PostForm sends one form-encoded POST and returns the response body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, req, timeout)
}

// Get sends one GET with the given query parameters and returns the body.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = query.Encode()
	return c.do(ctx, req, timeout)
}

func (c *Client) do(ctx context.Context, req *http.Request, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// IsTimeout reports whether err came from the request deadline rather than
// a transport failure.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Timeout()
	}
	return false
}

// Package elastic is a minimal client for the three Elasticsearch-compatible
// endpoints the dispatcher uses: the index catalog, cluster health and search.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxResponseSize caps how much of a backend response is read.
	MaxResponseSize = 10 * 1024 * 1024

	DefaultMaxIdleConns    = 50
	DefaultIdleConnTimeout = 90 * time.Second
)

// Config holds transport settings shared by every backend client.
type Config struct {
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	Username        string
	Password        string
}

// DefaultConfig returns the default transport settings.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:    DefaultMaxIdleConns,
		IdleConnTimeout: DefaultIdleConnTimeout,
	}
}

// Client talks to one backend. Timeouts come from the caller's context.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cfg     Config
	logger  *slog.Logger
}

// New creates a client for baseURL.
func New(baseURL string, cfg Config, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: u,
		http: &http.Client{Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			MaxIdleConns:    cfg.MaxIdleConns,
			IdleConnTimeout: cfg.IdleConnTimeout,
		}},
		cfg:    cfg,
		logger: logger,
	}, nil
}

// BaseURL returns the backend's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: classify(err), Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &Error{Kind: classify(err), Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > MaxResponseSize {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: fmt.Errorf("response exceeds %d bytes", MaxResponseSize)}
	}

	c.logger.DebugContext(ctx, "backend call",
		"op", op,
		"method", method,
		"url", u.Redacted(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindStatus, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet(data))}
	}
	return data, nil
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindTransport
}

func snippet(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func decode(op string, data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &Error{Kind: KindMalformed, Op: op, Err: err}
	}
	return nil
}

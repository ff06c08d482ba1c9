// Package client is a typed HTTP client for the TuskTask API. Reads are
// cached in a querycache.Cache and mutations update that cache
// optimistically before the server answers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tusktask/tusktask/pkg/querycache"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = 250 * time.Millisecond
)

var ErrNotSubtask = errors.New("task has no parent task")

type Client struct {
	baseURL    string
	http       *http.Client
	token      string
	cache      *querycache.Cache
	retries    int
	retryDelay time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithCache(cache *querycache.Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithRetries sets how many times a failed read is repeated.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithRetryDelay sets the base delay between read attempts; attempt n
// waits n times the base.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 15 * time.Second},
		cache:      querycache.New(),
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Cache() *querycache.Cache { return c.cache }

func (c *Client) SetToken(token string) { c.token = token }

// Login exchanges credentials for an access token and keeps it for
// later requests.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

// do sends one request and decodes the envelope's result into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var env envelope[json.RawMessage]
		apiErr := &APIError{Status: resp.StatusCode, Code: "unknown_error", Message: http.StatusText(resp.StatusCode)}
		if json.Unmarshal(raw, &env) == nil && env.Code != "" {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// cachedRead returns the fresh cached value under key or fetches it,
// retrying failures that are not client errors.
func cachedRead[T any](ctx context.Context, c *Client, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.cache.Fresh(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	var zero T
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		var v T
		v, err = fetch(ctx)
		if err == nil {
			c.cache.Set(key, v)
			return v, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}
	}
	return zero, err
}

func notFound(what string) error {
	return &APIError{Status: http.StatusNotFound, Code: "not_found", Message: what + " not found"}
}

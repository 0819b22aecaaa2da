// Package apiclient talks to the ecoserv HTTP API. Each Resource satisfies
// store.Resource so it can back a client-side cache.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecoserv/ecoserv/internal/shared"
)

var (
	// ErrNotFound is returned for 404 responses. It matches shared.ErrNotFound.
	ErrNotFound = fmt.Errorf("apiclient: %w", shared.ErrNotFound)
	// ErrNetwork wraps transport failures: refused connections, timeouts, broken bodies.
	ErrNetwork = errors.New("apiclient: network failure")
)

// APIError is any other non-2xx answer.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// Client holds the connection settings shared by every resource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	actorID    int64
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithActor sends X-Actor-ID on every request.
func WithActor(id int64) Option {
	return func(c *Client) { c.actorID = id }
}

// New constructs a client for the API rooted at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks /healthz.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Download fetches a binary export such as a PDF or an xlsx workbook.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	var out []byte
	err := c.send(ctx, http.MethodGet, path, nil, func(resp *http.Response) error {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		out = body
		return nil
	})
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, method, path, in, func(resp *http.Response) error {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", ErrNetwork, method, path, err)
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, method, path string, in any, read func(*http.Response) error) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set(shared.IdempotencyHeader, uuid.NewString())
	}
	if c.actorID > 0 {
		req.Header.Set(shared.ActorHeader, strconv.FormatInt(c.actorID, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return read(resp)
	}
	return decodeError(resp)
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload.Error = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusNotFound {
		if payload.Error == "" {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %s", ErrNotFound, payload.Error)
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Error, Fields: payload.Fields}
}

// Package apiclient talks to the portal REST API. Every list endpoint
// wraps its payload in a {"data": [...]} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tinytelemetry/portal/internal/model"
)

var _ model.PortalAPI = (*Client)(nil)

// maxErrorBody caps how much of a failed response is kept as the error message.
const maxErrorBody = 4096

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// Client implements model.PortalAPI over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New creates a client rooted at baseURL, e.g. "http://127.0.0.1:9643".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: model.DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: http %d", e.Code)
	}
	return fmt.Sprintf("apiclient: http %d: %s", e.Code, e.Message)
}

// Unwrap maps well-known status codes onto the catalog sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusConflict:
		return model.ErrConflict
	case http.StatusBadRequest:
		return model.ErrInvalid
	}
	return nil
}

func (c *Client) GetWidgetsInfo(ctx context.Context) ([]model.WidgetDescriptor, error) {
	var env model.ListEnvelope[model.WidgetDescriptor]
	if err := c.do(ctx, http.MethodGet, "/apis/widgets", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) GetWidgetDefinition(ctx context.Context, name string) (model.WidgetDefinition, error) {
	var env model.ItemEnvelope[model.WidgetDefinition]
	if err := c.do(ctx, http.MethodGet, "/apis/widgets/"+url.PathEscape(name), nil, &env); err != nil {
		return model.WidgetDefinition{}, err
	}
	return env.Data, nil
}

func (c *Client) GetDashboardList(ctx context.Context) ([]model.DashboardDescriptor, error) {
	var env model.ListEnvelope[model.DashboardDescriptor]
	if err := c.do(ctx, http.MethodGet, "/apis/dashboards", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) GetDashboard(ctx context.Context, dashURL string) (model.DashboardDescriptor, error) {
	var env model.ItemEnvelope[model.DashboardDescriptor]
	if err := c.do(ctx, http.MethodGet, "/apis/dashboards/"+url.PathEscape(dashURL), nil, &env); err != nil {
		return model.DashboardDescriptor{}, err
	}
	return env.Data, nil
}

func (c *Client) CreateDashboard(ctx context.Context, d model.DashboardDescriptor) (model.DashboardDescriptor, error) {
	var env model.ItemEnvelope[model.DashboardDescriptor]
	if err := c.do(ctx, http.MethodPost, "/apis/dashboards", d, &env); err != nil {
		return model.DashboardDescriptor{}, err
	}
	return env.Data, nil
}

// do sends one request and decodes a 2xx JSON body into dest.
func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusError prefers the server's {"error": "..."} message over the raw body.
func statusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

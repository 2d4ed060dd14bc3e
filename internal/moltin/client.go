package moltin

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/moltin/transfer-flow-data/pkg/metrics"
)

// ErrDecode marks a 2xx response whose body could not be decoded.
var ErrDecode = errors.New("decoding platform response")

type Config struct {
	BaseURL      string
	APIVersion   string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// APIError is one entry of the platform's "errors" array.
type APIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type Response struct {
	StatusCode int
	Errors     []APIError
}

// Message summarises the platform errors carried by a non-2xx response.
func (r *Response) Message() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		switch {
		case e.Detail != "" && e.Title != "":
			parts = append(parts, e.Title+": "+e.Detail)
		case e.Detail != "":
			parts = append(parts, e.Detail)
		default:
			parts = append(parts, e.Title)
		}
	}
	return strings.Join(parts, "; ")
}

// Client is a thin request wrapper over the platform's REST API. It is safe
// for concurrent use; the bearer token is fetched lazily and shared.
type Client struct {
	httpClient *http.Client
	apiURL     string
	metrics    *metrics.Collector
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	metrics    *metrics.Collector
}

// WithHTTPClient sets the client used for both token and API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// New builds a client authenticated with the client-credentials grant.
// ctx governs token refreshes for the lifetime of the client.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("moltin: base URL, client id and client secret are required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	base := o.httpClient
	if base == nil {
		base = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/oauth/access_token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	httpClient := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = cfg.Timeout

	apiURL := baseURL
	if v := strings.Trim(cfg.APIVersion, "/"); v != "" {
		apiURL += "/" + v
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     apiURL,
		metrics:    o.metrics,
	}, nil
}

// Get reads path and decodes the "data" member of the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Put sends in wrapped as {"data": in} and decodes the "data" member of the
// response into out, if out is non-nil.
func (c *Client) Put(ctx context.Context, path string, in, out any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, in, out)
}

type envelope struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []APIError      `json:"errors,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*Response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(map[string]any{"data": in})
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observe(method, path, resp, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	result := &Response{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return result, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		return result, nil
	}
	result.Errors = env.Errors

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return result, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}

	return result, nil
}

func (c *Client) observe(method, path string, resp *http.Response, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	resource := resourceOf(path)
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	c.metrics.PlatformRequestsTotal.WithLabelValues(method, resource, status).Inc()
	c.metrics.PlatformRequestDuration.WithLabelValues(method, resource).Observe(elapsed.Seconds())
}

// resourceOf keeps metric label cardinality bounded: "orders/123/items" -> "orders".
func resourceOf(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

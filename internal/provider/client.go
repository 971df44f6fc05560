package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imrishuroy/checkout-orderflow/internal/circuitbreaker"
)

const (
	DefaultBaseURL = "https://api.stripe.com"
	// APIVersion pins the provider API revision that still serves orders and SKUs.
	APIVersion = "2018-02-06"

	maxResponseBytes = 1 << 20
)

// Client is a form-encoded REST client for the payment provider.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// NewClient returns a Client authenticated with the provider secret key. By default upstream
// faults trip a breaker after 5 consecutive failures for 30 seconds.
func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second,
			circuitbreaker.WithFailureClassifier(IsUpstreamFault)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ API = (*Client)(nil)

func (c *Client) CreateOrder(ctx context.Context, params OrderParams) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", params.values(), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id string, params OrderUpdateParams) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders/"+url.PathEscape(id), params.values(), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) ListProducts(ctx context.Context) (*ProductList, error) {
	var l ProductList
	if err := c.do(ctx, http.MethodGet, "/v1/products", nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, params ProductParams) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodPost, "/v1/products", params.values(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateSKU(ctx context.Context, params SKUParams) (*SKU, error) {
	var s SKU
	if err := c.do(ctx, http.MethodPost, "/v1/skus", params.values(), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) GetSource(ctx context.Context, id string) (*Source, error) {
	var s Source
	if err := c.do(ctx, http.MethodGet, "/v1/sources/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error) {
	var ch Charge
	if err := c.do(ctx, http.MethodPost, "/v1/charges", params.values(), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	return c.breaker.Execute(ctx, func() error {
		return c.send(ctx, method, path, form, out)
	})
}

func (c *Client) send(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if method != http.MethodGet && form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Stripe-Version", APIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if key := IdempotencyKeyFrom(ctx); key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == nil {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
	}
	envelope.Error.StatusCode = status
	return envelope.Error
}

// ErrorMessage returns the human readable provider message inside err, or err.Error().
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

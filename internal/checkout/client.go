package checkout

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

	"github.com/google/uuid"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/payment"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
)

// Config is the store configuration served at GET /config.
type Config struct {
	PublishableKey string           `json:"publishable_key"`
	Country        string           `json:"country"`
	Currency       string           `json:"currency"`
	PaymentMethods []payment.Method `json:"payment_methods"`
}

var (
	// ErrRequestInProgress is a 202 replay: an earlier submission under the same key is still running.
	ErrRequestInProgress = errors.New("checkout api: request already in progress")
	// ErrNoOrder is a success response that carries no order.
	ErrNoOrder = errors.New("checkout api: response has no order")
)

// ServiceError is a non-2xx answer from the checkout API.
type ServiceError struct {
	StatusCode int
	Code       string `json:"error"`
	Detail     string `json:"detail"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("checkout api: %d %s: %s", e.StatusCode, e.Code, e.Detail)
}

// Client talks to the checkout HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	newKey     func() string
}

type ClientOption func(*Client)

func WithClientHTTP(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithKeyFunc replaces the generator of Idempotency-Key values.
func WithKeyFunc(f func() string) ClientOption {
	return func(c *Client) { c.newKey = f }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		newKey:     uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if _, err := c.do(ctx, "get config", http.MethodGet, "/config", nil, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) ListProducts(ctx context.Context) (*provider.ProductList, error) {
	var list provider.ProductList
	if _, err := c.do(ctx, "list products", http.MethodGet, "/products", nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateOrder submits a new order under a fresh idempotency key.
func (c *Client) CreateOrder(ctx context.Context, req validation.CreateOrderRequest) (*provider.Order, error) {
	var out struct {
		Order *provider.Order `json:"order"`
	}
	headers := map[string]string{"Idempotency-Key": c.newKey()}
	status, err := c.do(ctx, "create order", http.MethodPost, "/orders", req, headers, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return nil, fmt.Errorf("create order: %w", ErrRequestInProgress)
	}
	if out.Order == nil {
		return nil, fmt.Errorf("create order: %w", ErrNoOrder)
	}
	return out.Order, nil
}

// PayOrder charges the order with source. An order that was already processed is
// returned as is, not as an error.
func (c *Client) PayOrder(ctx context.Context, orderID string, source *provider.Source) (*orders.PayResult, error) {
	var out orders.PayResult
	body := validation.PayOrderRequest{Source: source}
	_, err := c.do(ctx, "pay order", http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/pay", body, nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, fmt.Errorf("pay order: %w", ErrNoOrder)
	}
	return &out, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (*provider.Order, error) {
	var out struct {
		Order *provider.Order `json:"order"`
	}
	if _, err := c.do(ctx, "get order", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, fmt.Errorf("get order: %w", ErrNoOrder)
	}
	return out.Order, nil
}

// do sends the request and decodes a successful body into out. It returns the HTTP status.
func (c *Client) do(ctx context.Context, op, method, path string, in interface{}, headers map[string]string, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: read: %w", op, err)
	}

	// 403 on pay carries the order as it stands
	ok := resp.StatusCode < 300 || (resp.StatusCode == http.StatusForbidden && strings.HasSuffix(path, "/pay"))
	if !ok {
		return resp.StatusCode, serviceErr(op, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s: decode: %w", op, err)
	}
	return resp.StatusCode, nil
}

func serviceErr(op string, status int, raw []byte) error {
	se := &ServiceError{StatusCode: status}
	if err := json.Unmarshal(raw, se); err != nil || se.Code == "" {
		se.Code = http.StatusText(status)
		se.Detail = strings.TrimSpace(string(raw))
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, orders.ErrNotFound)
	case se.Code == "upstream_error":
		return &orders.UpstreamError{Op: op, Err: &provider.APIError{StatusCode: status, Message: se.Detail}}
	}
	return fmt.Errorf("%s: %w", op, se)
}

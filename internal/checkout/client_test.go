package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_CreateOrderSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody validation.CreateOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusCreated, map[string]interface{}{"order": orderWithStatus(orders.StatusCreated)})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithKeyFunc(func() string { return "key-1" }))
	order, err := c.CreateOrder(context.Background(), validation.CreateOrderRequest{Currency: "gbp", Email: "jenny@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "or_1", order.ID)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "jenny@example.com", gotBody.Email)
}

func TestClient_PayOrderForbiddenIsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/or_1/pay", r.URL.Path)
		writeJSON(w, http.StatusForbidden, orders.PayResult{
			Order:  orderWithStatus(orders.StatusPaid),
			Source: &provider.Source{ID: "src_1", Status: provider.SourceStatusConsumed},
		})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).PayOrder(context.Background(), "or_1", &provider.Source{ID: "src_1"})
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, orders.Status(res.Order))
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/missing":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "detail": "order not found"})
		case "/orders/broken":
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream_error", "detail": "provider timed out"})
		case "/orders/bad/pay":
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_source", "detail": "payment source is required"})
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.GetOrderStatus(ctx, "missing")
	assert.ErrorIs(t, err, orders.ErrNotFound)

	_, err = c.GetOrderStatus(ctx, "broken")
	var ue *orders.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "provider timed out", ue.Message())
	assert.Equal(t, http.StatusBadGateway, ue.HTTPStatus())

	_, err = c.PayOrder(ctx, "bad", nil)
	var se *ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "missing_source", se.Code)

	_, err = c.GetConfig(ctx)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Detail)
}

func TestClient_ConfigAndProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/config":
			writeJSON(w, http.StatusOK, map[string]interface{}{"publishable_key": "pk_test", "country": "GB", "currency": "gbp"})
		case "/products":
			writeJSON(w, http.StatusOK, provider.ProductList{Data: []provider.Product{
				{ID: "heets", SKUs: &provider.SKUList{Data: []provider.SKU{{ID: "heets-mix", Price: 2400}}}},
				{ID: "iqos", SKUs: &provider.SKUList{Data: []provider.SKU{{ID: "iqos-navy"}, {ID: "iqos-white"}}}},
			}})
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL)

	cfg, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pk_test", cfg.PublishableKey)

	list, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2400), OrderTotal(list, OrderItems("navy")))
}

func TestClient_CreateOrderReplayWithoutOrder(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]string
		wantErr error
	}{
		{"in progress", http.StatusAccepted, map[string]string{"message": "request already in progress", "request_id": "r1"}, ErrRequestInProgress},
		{"done without body", http.StatusOK, map[string]string{"request_id": "r1"}, ErrNoOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			order, err := NewClient(srv.URL, WithKeyFunc(func() string { return "k" })).
				CreateOrder(context.Background(), validation.CreateOrderRequest{Currency: "gbp"})
			assert.Nil(t, order)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_ResponsesWithoutOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"request_id": "r1"})
	}))
	defer srv.Close()
	c := NewClient(srv.URL)

	order, err := c.GetOrderStatus(context.Background(), "or_1")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrNoOrder)

	res, err := c.PayOrder(context.Background(), "or_1", &provider.Source{ID: "src_1"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoOrder)
}

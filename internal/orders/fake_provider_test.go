package orders

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// fakeProvider is an in-memory provider.API for service tests.
type fakeProvider struct {
	mu       sync.Mutex
	orders   map[string]*provider.Order
	sources  map[string]*provider.Source
	products []provider.Product

	created     []provider.OrderParams
	charges     []provider.ChargeParams
	chargeKeys  []string
	updateKeys  []string
	chargeErr   error
	chargeState string
	createErr   error
	listCalls   int
	nextID      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		orders:      map[string]*provider.Order{},
		sources:     map[string]*provider.Source{},
		chargeState: provider.ChargeStatusSucceeded,
	}
}

func notFound(kind, id string) error {
	return &provider.APIError{StatusCode: http.StatusNotFound, Code: provider.CodeResourceMissing, Message: fmt.Sprintf("No such %s: %s", kind, id)}
}

func (f *fakeProvider) addOrder(id, status string, amount int64) {
	f.orders[id] = &provider.Order{ID: id, Amount: amount, Currency: "gbp", Email: "jenny@example.com", Metadata: map[string]string{"status": status}}
}

func (f *fakeProvider) CreateOrder(ctx context.Context, params provider.OrderParams) (*provider.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	o := &provider.Order{ID: fmt.Sprintf("or_%d", f.nextID), Amount: 2400, Currency: params.Currency, Email: params.Email, Metadata: params.Metadata}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeProvider) GetOrder(ctx context.Context, id string) (*provider.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeProvider) UpdateOrder(ctx context.Context, id string, params provider.OrderUpdateParams) (*provider.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateKeys = append(f.updateKeys, provider.IdempotencyKeyFrom(ctx))
	o, ok := f.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	md := map[string]string{}
	for k, v := range o.Metadata {
		md[k] = v
	}
	for k, v := range params.Metadata {
		md[k] = v
	}
	o.Metadata = md
	cp := *o
	return &cp, nil
}

func (f *fakeProvider) ListProducts(ctx context.Context) (*provider.ProductList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return &provider.ProductList{Data: f.products}, nil
}

func (f *fakeProvider) GetProduct(ctx context.Context, id string) (*provider.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, notFound("product", id)
}

func (f *fakeProvider) CreateProduct(ctx context.Context, params provider.ProductParams) (*provider.Product, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeProvider) CreateSKU(ctx context.Context, params provider.SKUParams) (*provider.SKU, error) {
	return nil, fmt.Errorf("not used")
}

func (f *fakeProvider) GetSource(ctx context.Context, id string) (*provider.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sources[id]
	if !ok {
		return nil, notFound("source", id)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeProvider) CreateCharge(ctx context.Context, params provider.ChargeParams) (*provider.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, params)
	f.chargeKeys = append(f.chargeKeys, provider.IdempotencyKeyFrom(ctx))
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &provider.Charge{ID: "ch_1", Status: f.chargeState, Amount: params.Amount, Currency: params.Currency, Metadata: params.Metadata}, nil
}

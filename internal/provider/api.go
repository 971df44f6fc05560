package provider

import "context"

// API is the subset of the payment provider's REST API the checkout backend uses.
type API interface {
	CreateOrder(ctx context.Context, params OrderParams) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdateOrder(ctx context.Context, id string, params OrderUpdateParams) (*Order, error)
	ListProducts(ctx context.Context) (*ProductList, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	CreateProduct(ctx context.Context, params ProductParams) (*Product, error)
	CreateSKU(ctx context.Context, params SKUParams) (*SKU, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	CreateCharge(ctx context.Context, params ChargeParams) (*Charge, error)
}

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches an Idempotency-Key to every mutating request made with ctx.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKeyFrom returns the key set by WithIdempotencyKey, if any.
func IdempotencyKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyCtx{}).(string)
	return key
}

package validation

import (
	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// Item is a basket line referencing a SKU.
type Item struct {
	Type     string `json:"type" validate:"required,oneof=sku"`
	Parent   string `json:"parent" validate:"required"`            // sku id
	Quantity int64  `json:"quantity" validate:"required,min=1"` // must be >= 1
}

type Address struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country" validate:"required,len=2,uppercase"`
}

type Shipping struct {
	Name    string  `json:"name" validate:"required"`
	Phone   string  `json:"phone,omitempty" validate:"omitempty,e164"`
	Address Address `json:"address"`
}

// Extra holds consent flags and the landing parameters.
type Extra struct {
	Marketing bool   `json:"marketing"`
	Legal     bool   `json:"legal"`
	DOB       string `json:"dob" validate:"required"` // dd/mm/yyyy
	Promo     string `json:"promo,omitempty" validate:"omitempty,max=64"`
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	Currency string   `json:"currency" validate:"required,len=3,lowercase"`
	Items    []Item   `json:"items" validate:"required,min=1,dive"` // at least one item
	Email    string   `json:"email" validate:"required,email"`
	Shipping Shipping `json:"shipping"`
	Extra    Extra    `json:"extra"`
}

// PayOrderRequest is the payload for POST /orders/:id/pay
type PayOrderRequest struct {
	Source *provider.Source `json:"source" validate:"required"`
}

func (r CreateOrderRequest) OrderItems() []provider.OrderItem {
	items := make([]provider.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, provider.OrderItem{Type: it.Type, Parent: it.Parent, Quantity: it.Quantity})
	}
	return items
}

func (r CreateOrderRequest) ShippingDetails() provider.Shipping {
	a := r.Shipping.Address
	return provider.Shipping{
		Name:  r.Shipping.Name,
		Phone: r.Shipping.Phone,
		Address: provider.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			PostalCode: a.PostalCode,
			State:      a.State,
			Country:    a.Country,
		},
	}
}

func (r CreateOrderRequest) OrderExtra() orders.Extra {
	return orders.Extra{
		Marketing: r.Extra.Marketing,
		Legal:     r.Extra.Legal,
		DOB:       r.Extra.DOB,
		Promo:     r.Extra.Promo,
	}
}

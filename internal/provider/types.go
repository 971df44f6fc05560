package provider

import "encoding/json"

// Source statuses reported by the payment provider.
const (
	SourceStatusChargeable = "chargeable"
	SourceStatusPending    = "pending"
	SourceStatusFailed     = "failed"
	SourceStatusCanceled   = "canceled"
	SourceStatusConsumed   = "consumed"
)

// Charge statuses reported by the payment provider.
const (
	ChargeStatusSucceeded = "succeeded"
	ChargeStatusPending   = "pending"
	ChargeStatusFailed    = "failed"
)

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Shipping struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
}

// OrderItem is a line of an order. Requests only set Type, Parent and Quantity; the provider
// fills in Amount, Currency and Description.
type OrderItem struct {
	Type        string `json:"type"`
	Parent      string `json:"parent"`
	Quantity    int64  `json:"quantity,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
}

type Order struct {
	ID       string            `json:"id"`
	Object   string            `json:"object,omitempty"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Email    string            `json:"email,omitempty"`
	Items    []OrderItem       `json:"items,omitempty"`
	Shipping *Shipping         `json:"shipping,omitempty"`
	Metadata map[string]string `json:"metadata"`
	Status   string            `json:"status,omitempty"`
	Created  int64             `json:"created,omitempty"`
}

type Inventory struct {
	Type string `json:"type"`
}

type SKU struct {
	ID         string            `json:"id"`
	Product    string            `json:"product"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Price      int64             `json:"price"`
	Currency   string            `json:"currency"`
	Inventory  Inventory         `json:"inventory"`
}

type SKUList struct {
	Data []SKU `json:"data"`
}

type Product struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Active     bool     `json:"active"`
	SKUs       *SKUList `json:"skus,omitempty"`
}

type ProductList struct {
	Data    []Product `json:"data"`
	HasMore bool      `json:"has_more"`
}

type Owner struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Source is the tokenized payment credential produced by the provider's client SDK.
type Source struct {
	ID       string            `json:"id"`
	Object   string            `json:"object,omitempty"`
	Type     string            `json:"type,omitempty"`
	Status   string            `json:"status"`
	Flow     string            `json:"flow,omitempty"`
	Amount   int64             `json:"amount,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Owner    *Owner            `json:"owner,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Charge struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Captured       bool              `json:"captured"`
	FailureMessage string            `json:"failure_message,omitempty"`
	Source         *Source           `json:"source,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Event is a webhook notification. Data.Object holds the Source or Charge it refers to.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Data    EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

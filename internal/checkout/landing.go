package checkout

import (
	"errors"
	"net/url"
	"strings"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
)

// ErrRedirectToRoot means the landing query lacks what checkout needs; send the shopper to "/".
var ErrRedirectToRoot = errors.New("checkout: missing landing parameters")

// Landing is the query string the checkout page is opened with.
type Landing struct {
	DOB    string
	Colour string
	Promo  string
	// Returning is set when the shopper comes back from a redirect-based payment.
	Returning bool
}

// ParseLanding reads dob, colour and promo from q. The dob may arrive with its slashes
// still escaped.
func ParseLanding(q url.Values) (Landing, error) {
	l := Landing{
		DOB:       unescapeSlashes(q.Get("dob")),
		Colour:    q.Get("colour"),
		Promo:     q.Get("promo"),
		Returning: q.Has("source"),
	}
	if l.DOB == "" || l.Colour == "" {
		return Landing{}, ErrRedirectToRoot
	}
	return l, nil
}

func unescapeSlashes(s string) string {
	return strings.NewReplacer("%2F", "/", "%2f", "/").Replace(s)
}

// OrderItems is the trial basket: the device in the chosen colour plus a tobacco pack.
func OrderItems(colour string) []provider.OrderItem {
	return []provider.OrderItem{
		{Type: "sku", Parent: "iqos-" + colour, Quantity: 1},
		{Type: "sku", Parent: "heets-mix", Quantity: 1},
	}
}

// OrderTotal prices items against the SKUs in list. Unknown SKUs count as zero.
func OrderTotal(list *provider.ProductList, items []provider.OrderItem) int64 {
	prices := map[string]int64{}
	if list != nil {
		for _, p := range list.Data {
			if p.SKUs == nil {
				continue
			}
			for _, sku := range p.SKUs.Data {
				prices[sku.ID] = sku.Price
			}
		}
	}
	var total int64
	for _, it := range items {
		total += prices[it.Parent] * it.Quantity
	}
	return total
}

// Submission is what the checkout form holds when the shopper presses submit.
type Submission struct {
	Method string

	Name    string
	Email   string
	Phone   string
	Address provider.Address

	Marketing bool
	Legal     bool
	DOB       string
	Promo     string

	IBAN      string // sepa_debit only
	ReturnURL string // where redirect flows come back to
}

func (s Submission) orderRequest(currency string, items []provider.OrderItem) validation.CreateOrderRequest {
	req := validation.CreateOrderRequest{
		Currency: currency,
		Email:    s.Email,
		Shipping: validation.Shipping{
			Name:  s.Name,
			Phone: s.Phone,
			Address: validation.Address{
				Line1:      s.Address.Line1,
				Line2:      s.Address.Line2,
				City:       s.Address.City,
				PostalCode: s.Address.PostalCode,
				State:      s.Address.State,
				Country:    s.Address.Country,
			},
		},
		Extra: validation.Extra{
			Marketing: s.Marketing,
			Legal:     s.Legal,
			DOB:       s.DOB,
			Promo:     s.Promo,
		},
	}
	for _, it := range items {
		req.Items = append(req.Items, validation.Item{Type: it.Type, Parent: it.Parent, Quantity: it.Quantity})
	}
	return req
}

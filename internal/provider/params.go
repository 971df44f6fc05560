package provider

import (
	"net/url"
	"sort"
	"strconv"
)

type OrderParams struct {
	Currency string
	Email    string
	Items    []OrderItem
	Shipping *Shipping
	Metadata map[string]string
}

// OrderUpdateParams is a partial update; zero fields are not sent.
type OrderUpdateParams struct {
	Status   string
	Shipping *Shipping
	Metadata map[string]string
}

type ProductParams struct {
	ID         string
	Type       string
	Name       string
	Attributes []string
}

type SKUParams struct {
	ID         string
	Product    string
	Attributes map[string]string
	Price      int64
	Currency   string
	Inventory  Inventory
}

type ChargeParams struct {
	Amount       int64
	Currency     string
	Source       string
	ReceiptEmail string
	Metadata     map[string]string
}

func (p OrderParams) values() url.Values {
	v := url.Values{}
	setString(v, "currency", p.Currency)
	setString(v, "email", p.Email)
	for i, it := range p.Items {
		prefix := "items[" + strconv.Itoa(i) + "]"
		setString(v, prefix+"[type]", it.Type)
		setString(v, prefix+"[parent]", it.Parent)
		if it.Quantity > 0 {
			v.Set(prefix+"[quantity]", strconv.FormatInt(it.Quantity, 10))
		}
	}
	setShipping(v, "shipping", p.Shipping)
	setMap(v, "metadata", p.Metadata)
	return v
}

func (p OrderUpdateParams) values() url.Values {
	v := url.Values{}
	setString(v, "status", p.Status)
	setShipping(v, "shipping", p.Shipping)
	setMap(v, "metadata", p.Metadata)
	return v
}

func (p ProductParams) values() url.Values {
	v := url.Values{}
	setString(v, "id", p.ID)
	setString(v, "type", p.Type)
	setString(v, "name", p.Name)
	for i, a := range p.Attributes {
		v.Set("attributes["+strconv.Itoa(i)+"]", a)
	}
	return v
}

func (p SKUParams) values() url.Values {
	v := url.Values{}
	setString(v, "id", p.ID)
	setString(v, "product", p.Product)
	setMap(v, "attributes", p.Attributes)
	v.Set("price", strconv.FormatInt(p.Price, 10))
	setString(v, "currency", p.Currency)
	setString(v, "inventory[type]", p.Inventory.Type)
	return v
}

func (p ChargeParams) values() url.Values {
	v := url.Values{}
	v.Set("amount", strconv.FormatInt(p.Amount, 10))
	setString(v, "currency", p.Currency)
	setString(v, "source", p.Source)
	setString(v, "receipt_email", p.ReceiptEmail)
	setMap(v, "metadata", p.Metadata)
	return v
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setMap(v url.Values, prefix string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Set(prefix+"["+k+"]", m[k])
	}
}

func setShipping(v url.Values, prefix string, s *Shipping) {
	if s == nil {
		return
	}
	setString(v, prefix+"[name]", s.Name)
	setString(v, prefix+"[phone]", s.Phone)
	a := prefix + "[address]"
	setString(v, a+"[line1]", s.Address.Line1)
	setString(v, a+"[line2]", s.Address.Line2)
	setString(v, a+"[city]", s.Address.City)
	setString(v, a+"[postal_code]", s.Address.PostalCode)
	setString(v, a+"[state]", s.Address.State)
	setString(v, a+"[country]", s.Address.Country)
}

package payment

import "slices"

// Flow is how a payment method completes after the source is created.
type Flow string

const (
	FlowNone     Flow = "none"
	FlowRedirect Flow = "redirect"
	FlowReceiver Flow = "receiver"
)

const (
	MethodCard              = "card"
	MethodACHCreditTransfer = "ach_credit_transfer"
	MethodAlipay            = "alipay"
	MethodBancontact        = "bancontact"
	MethodEPS               = "eps"
	MethodIDEAL             = "ideal"
	MethodGiropay           = "giropay"
	MethodMultibanco        = "multibanco"
	MethodSEPADebit         = "sepa_debit"
	MethodSofort            = "sofort"
	MethodWeChat            = "wechat"
)

// Method describes a payment method. A nil Countries list means it is offered everywhere.
type Method struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Flow      Flow     `json:"flow"`
	Countries []string `json:"countries,omitempty"`
}

// EligibleIn reports whether the method may be offered to a shopper in country.
func (m Method) EligibleIn(country string) bool {
	if m.ID == MethodCard || m.Countries == nil {
		return true
	}
	return slices.Contains(m.Countries, country)
}

// methods is in display order; the first eligible entry is the default selection.
var methods = []Method{
	{ID: MethodCard, Name: "Card", Flow: FlowNone},
	{ID: MethodACHCreditTransfer, Name: "Bank Transfer", Flow: FlowReceiver, Countries: []string{"US"}},
	{ID: MethodAlipay, Name: "Alipay", Flow: FlowRedirect, Countries: []string{"CN", "HK", "SG", "JP"}},
	{ID: MethodBancontact, Name: "Bancontact", Flow: FlowRedirect, Countries: []string{"BE"}},
	{ID: MethodEPS, Name: "EPS", Flow: FlowRedirect, Countries: []string{"AT"}},
	{ID: MethodIDEAL, Name: "iDEAL", Flow: FlowRedirect, Countries: []string{"NL"}},
	{ID: MethodGiropay, Name: "Giropay", Flow: FlowRedirect, Countries: []string{"DE"}},
	{ID: MethodMultibanco, Name: "Multibanco", Flow: FlowReceiver, Countries: []string{"PT"}},
	{ID: MethodSEPADebit, Name: "SEPA Direct Debit", Flow: FlowNone, Countries: []string{"FR", "DE", "ES", "BE", "NL", "LU", "IT", "PT", "AT", "IE"}},
	{ID: MethodSofort, Name: "SOFORT", Flow: FlowRedirect, Countries: []string{"DE", "AT"}},
	{ID: MethodWeChat, Name: "WeChat", Flow: FlowNone, Countries: []string{"CN", "HK", "SG", "JP"}},
}

// Methods returns a copy of the method table in display order.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

func Lookup(id string) (Method, bool) {
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return Method{}, false
}

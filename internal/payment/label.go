package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"usd": "$",
	"gbp": "£",
	"eur": "€",
	"jpy": "¥",
	"cny": "CN¥",
	"hkd": "HK$",
	"cad": "CA$",
	"aud": "A$",
}

var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// FormatPrice renders an amount in minor units, e.g. 1000 gbp -> "£10.00".
// Currencies without a known symbol are prefixed with their ISO code: "CHF 10.00".
func FormatPrice(amount int64, currency string) string {
	cur := strings.ToLower(currency)
	places := int32(2)
	if zeroDecimal[cur] {
		places = 0
	}

	value := decimal.New(amount, -places)
	neg := value.IsNegative()
	text := group(value.Abs().StringFixed(places))

	sign := ""
	if neg {
		sign = "-"
	}
	if sym, ok := currencySymbols[cur]; ok {
		return sign + sym + text
	}
	return sign + strings.ToUpper(cur) + " " + text
}

// group inserts thousands separators into the integer part of a fixed-point string.
func group(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// ButtonLabel is the submit button text for method and the order total.
func ButtonLabel(method Method, amount int64, currency string) string {
	switch method.ID {
	case MethodCard:
		return "Place Order"
	case MethodWeChat:
		return fmt.Sprintf("Generate QR code to pay %s with %s", FormatPrice(amount, currency), method.Name)
	default:
		return fmt.Sprintf("Pay %s with %s", FormatPrice(amount, currency), method.Name)
	}
}

// PostalCodeLabel is the label of the postal code field for a shipping country.
func PostalCodeLabel(country string) string {
	switch country {
	case "US":
		return "ZIP"
	case "GB", "UK":
		return "Postcode"
	default:
		return "Postal Code"
	}
}

// ShowsStateField reports whether the address form asks for a state.
func ShowsStateField(country string) bool {
	return country == "US"
}

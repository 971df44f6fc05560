package orders

import (
	"strconv"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// Order statuses kept in order metadata under "status".
const (
	StatusCreated  = "created"
	StatusPending  = "pending"
	StatusFailed   = "failed"
	StatusPaid     = "paid"
	StatusCaptured = "captured"
)

// notAvailable is the placeholder for business fields filled in after checkout.
const notAvailable = "NA"

type Order = provider.Order

// Extra carries the consent flags and landing parameters collected with the order.
type Extra struct {
	Marketing bool   `json:"marketing"`
	Legal     bool   `json:"legal"`
	DOB       string `json:"dob"`
	Promo     string `json:"promo,omitempty"`
}

// PayResult is the order and the source as last seen by PayOrder.
type PayResult struct {
	Order  *Order           `json:"order"`
	Source *provider.Source `json:"source"`
}

// Status returns the metadata status of o, or "" for a nil order.
func Status(o *Order) string {
	if o == nil {
		return ""
	}
	return o.Metadata["status"]
}

func newOrderMetadata(extra Extra) map[string]string {
	md := map[string]string{
		"status":         StatusCreated,
		"marketing":      strconv.FormatBool(extra.Marketing),
		"legal":          strconv.FormatBool(extra.Legal),
		"dob":            extra.DOB,
		"AgeVerified":    notAvailable,
		"ReturnNumber":   notAvailable,
		"DispatchNumber": notAvailable,
		"brochure":       notAvailable,
		"DeviceId":       notAvailable,
	}
	if extra.Promo != "" {
		md["promo"] = extra.Promo
	}
	return md
}

package checkout

import (
	"context"
	"fmt"

	"github.com/imrishuroy/checkout-orderflow/internal/payment"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

const statementDescriptor = "Checkout Orderflow Demo"

// Tokenizer is the payment provider's client SDK. Each submission makes exactly one call.
type Tokenizer interface {
	// CreateCardSource tokenizes the mounted card field.
	CreateCardSource(ctx context.Context, owner provider.Owner) (*provider.Source, error)
	CreateSource(ctx context.Context, req SourceRequest) (*provider.Source, error)
}

// TokenizationError is the provider rejecting card or source details.
type TokenizationError struct {
	Code    string
	Message string
}

func (e *TokenizationError) Error() string {
	if e.Code == "" {
		return "tokenization failed: " + e.Message
	}
	return fmt.Sprintf("tokenization failed (%s): %s", e.Code, e.Message)
}

type SEPADebit struct {
	IBAN string `json:"iban"`
}

type Sofort struct {
	Country string `json:"country"`
}

type Redirect struct {
	ReturnURL string `json:"return_url"`
}

// SourceRequest is the payload for a non-card source.
type SourceRequest struct {
	Type                string            `json:"type"`
	Amount              int64             `json:"amount"`
	Currency            string            `json:"currency"`
	Owner               provider.Owner    `json:"owner"`
	Redirect            *Redirect         `json:"redirect,omitempty"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	SEPADebit           *SEPADebit        `json:"sepa_debit,omitempty"`
	Sofort              *Sofort           `json:"sofort,omitempty"`
}

// BuildSourceRequest shapes the source request for a non-card method.
func BuildSourceRequest(sub Submission, order *provider.Order) SourceRequest {
	req := SourceRequest{
		Type:     sub.Method,
		Amount:   order.Amount,
		Currency: order.Currency,
		Owner: provider.Owner{
			Name:  sub.Name,
			Email: sub.Email,
		},
		StatementDescriptor: statementDescriptor,
		Metadata:            map[string]string{"order": order.ID},
	}
	if sub.ReturnURL != "" {
		req.Redirect = &Redirect{ReturnURL: sub.ReturnURL}
	}

	switch sub.Method {
	case payment.MethodSEPADebit:
		req.SEPADebit = &SEPADebit{IBAN: sub.IBAN}
	case payment.MethodSofort:
		req.Sofort = &Sofort{Country: sub.Address.Country}
	case payment.MethodACHCreditTransfer:
		// test mode funds the transfer from the owner email
		req.Owner.Email = fmt.Sprintf("amount_%d@example.com", order.Amount)
	}
	return req
}

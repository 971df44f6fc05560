package orders

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imrishuroy/checkout-orderflow/internal/circuitbreaker"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

var (
	ErrNotFound              = errors.New("order not found")
	ErrOrderAlreadyProcessed = errors.New("order already processed")
	ErrMissingSource         = errors.New("payment source is required")
)

// UpstreamError is returned when the payment provider rejects or fails a request.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Message is the provider's human readable reason, suitable for a form-level error.
func (e *UpstreamError) Message() string {
	return provider.ErrorMessage(e.Err)
}

// HTTPStatus maps the failure to the status returned to API callers: rejected requests
// are the caller's fault, everything else is a gateway problem.
func (e *UpstreamError) HTTPStatus() int {
	if errors.Is(e.Err, circuitbreaker.ErrCircuitOpen) {
		return http.StatusServiceUnavailable
	}
	var apiErr *provider.APIError
	if errors.As(e.Err, &apiErr) && !apiErr.Temporary() {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func upstream(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

// lookupErr is upstream for reads by id, where a missing resource is ErrNotFound.
func lookupErr(op string, err error) error {
	if provider.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return upstream(op, err)
}

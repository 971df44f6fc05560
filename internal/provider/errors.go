package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes the provider returns in the error body.
const (
	CodeResourceMissing       = "resource_missing"
	CodeResourceAlreadyExists = "resource_already_exists"
)

// APIError is the decoded error body of a non-2xx provider response.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Param      string `json:"param,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the failure is on the provider side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a provider "no such resource" error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeResourceMissing || apiErr.StatusCode == http.StatusNotFound
}

// IsAlreadyExists reports whether err is a duplicate-resource error. The structured code is
// authoritative; the message is consulted only when the provider sent no code.
func IsAlreadyExists(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code != "" {
		return apiErr.Code == CodeResourceAlreadyExists
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already exists")
}

// IsUpstreamFault reports whether err should count against the circuit breaker. A caller
// cancelling its own request is not a provider fault.
func IsUpstreamFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

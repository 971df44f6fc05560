package idempotency

import "time"

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Scopes keep keys from different callers apart in the shared table.
const (
	ScopeCreateOrder  = "create-order"
	ScopeWebhookEvent = "webhook-event"
)

// Record is the shape persisted in the idempotency DynamoDB table.
type Record struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK, "<scope>#<key>"
	Scope          string    `dynamodbav:"scope"`
	Status         string    `dynamodbav:"status"`
	Ref            string    `dynamodbav:"ref,omitempty"`             // order id or event type
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`   // small JSON responses only
	ResponseStatus int       `dynamodbav:"response_status,omitempty"` // e.g. 201
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

func tableKey(scope, key string) string {
	return scope + "#" + key
}

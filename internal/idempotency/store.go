package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/checkout-orderflow/internal/aws"
)

const (
	condNewOrExpired = "attribute_not_exists(idempotency_key) OR expires_at < :now"
	condReclaimable  = "#s = :expected"
	condExists       = "attribute_exists(idempotency_key)"
)

// ErrRecordMissing is returned when marking a key that was never claimed.
var ErrRecordMissing = errors.New("idempotency record missing")

// Store encapsulates idempotency operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // default TTL window when creating entries
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for idempotency entries.
// ttlWindow: default TTL window (e.g., 48*time.Hour)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Claim takes ownership of key within scope.
// Returns (true, nil, nil) when the caller now owns the key (new, expired, or previously FAILED).
// Returns (false, rec, nil) when another request owns it or has completed it; inspect rec.Status.
func (s *Store) Claim(ctx context.Context, scope, key, ref string) (bool, *Record, error) {
	now := s.nowFunc()
	rec := Record{
		IdempotencyKey: tableKey(scope, key),
		Scope:          scope,
		Status:         StatusInProgress,
		Ref:            ref,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, nil, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString(condNewOrExpired),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": epoch(now),
		},
	})
	if err == nil {
		return true, nil, nil
	}
	if !isConditionFailed(err) {
		return false, nil, fmt.Errorf("put item: %w", err)
	}

	existing, err := s.Get(ctx, scope, key)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		// expired and swept between the put and the get; the caller may retry
		return false, nil, fmt.Errorf("claim %s: %w", key, ErrRecordMissing)
	}
	if existing.Status != StatusFailed {
		return false, existing, nil
	}
	return s.reclaim(ctx, scope, key, ref, existing)
}

// reclaim moves a FAILED record back to IN_PROGRESS so a retry can run.
func (s *Store) reclaim(ctx context.Context, scope, key, ref string, existing *Record) (bool, *Record, error) {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      keyAttr(scope, key),
		UpdateExpression:         awsString("SET #s = :status, ref = :ref, updated_at = :updated_at, expires_at = :expires_at"),
		ConditionExpression:      awsString(condReclaimable),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: StatusInProgress},
			":expected":   &types.AttributeValueMemberS{Value: StatusFailed},
			":ref":        &types.AttributeValueMemberS{Value: ref},
			":updated_at": timestamp(now),
			":expires_at": epoch(now.Add(s.ttlWindow)),
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			// a concurrent retry reclaimed it first
			current, getErr := s.Get(ctx, scope, key)
			if getErr != nil {
				return false, nil, getErr
			}
			return false, current, nil
		}
		return false, nil, fmt.Errorf("update item (reclaim): %w", err)
	}
	return true, nil, nil
}

// Get retrieves an idempotency record. If not found or expired, returns (nil, nil).
func (s *Store) Get(ctx context.Context, scope, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            keyAttr(scope, key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	if rec.ExpiresAt > 0 && rec.ExpiresAt < s.nowFunc().Unix() {
		return nil, nil
	}
	return &rec, nil
}

// MarkDone sets status to DONE and stores a small response body & status for replays.
func (s *Store) MarkDone(ctx context.Context, scope, key, responseBody string, responseStatus int) error {
	return s.update(ctx, scope, key, "mark done",
		"SET #s = :status, response_body = :response_body, response_status = :response_status, updated_at = :updated_at",
		map[string]types.AttributeValue{
			":status":          &types.AttributeValueMemberS{Value: StatusDone},
			":response_body":   &types.AttributeValueMemberS{Value: responseBody},
			":response_status": &types.AttributeValueMemberN{Value: strconv.Itoa(responseStatus)},
			":updated_at":      timestamp(s.nowFunc()),
		})
}

// MarkFailed marks the record FAILED with a note; the next Claim of the key succeeds.
func (s *Store) MarkFailed(ctx context.Context, scope, key, note string) error {
	return s.update(ctx, scope, key, "mark failed",
		"SET #s = :status, note = :note, updated_at = :updated_at",
		map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: StatusFailed},
			":note":       &types.AttributeValueMemberS{Value: note},
			":updated_at": timestamp(s.nowFunc()),
		})
}

func (s *Store) update(ctx context.Context, scope, key, op, expr string, values map[string]types.AttributeValue) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       keyAttr(scope, key),
		UpdateExpression:          awsString(expr),
		ConditionExpression:       awsString(condExists),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("%s %s: %w", op, key, ErrRecordMissing)
		}
		return fmt.Errorf("update item (%s): %w", op, err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException"
}

func keyAttr(scope, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"idempotency_key": &types.AttributeValueMemberS{Value: tableKey(scope, key)},
	}
}

func epoch(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}

// timestamp matches attributevalue's encoding of time.Time.
func timestamp(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.Format(time.RFC3339Nano)}
}

func awsString(s string) *string { return &s }
func awsBool(b bool) *bool       { return &b }

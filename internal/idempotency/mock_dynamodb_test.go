package idempotency

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a small in-memory mock for PutItem/GetItem/UpdateItem used in unit tests.
// It understands the condition expressions the Store issues and nothing else.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	getCalls    int
	updateCalls int
	putErr      error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func keyOf(m map[string]types.AttributeValue) (string, error) {
	attr, ok := m["idempotency_key"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing key")
	}
	return attr.Value, nil
}

func numberOf(v types.AttributeValue) int64 {
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	i, _ := strconv.ParseInt(n.Value, 10, 64)
	return i
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return nil, m.putErr
	}
	k, err := keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == condNewOrExpired {
		if existing, ok := m.table[k]; ok {
			now := numberOf(params.ExpressionAttributeValues[":now"])
			if numberOf(existing["expires_at"]) >= now {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

// UpdateItem copies every ":name" value to the "name" attribute, the naming the Store uses.
func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	k, err := keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.table[k]
	if params.ConditionExpression != nil {
		switch *params.ConditionExpression {
		case condExists:
			if !ok {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case condReclaimable:
			st, _ := item["status"].(*types.AttributeValueMemberS)
			want := params.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS)
			if !ok || st == nil || st.Value != want.Value {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	if !ok {
		return nil, errors.New("item not found")
	}
	for name, v := range params.ExpressionAttributeValues {
		if name == ":expected" {
			continue
		}
		item[name[1:]] = v
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

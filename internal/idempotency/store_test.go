package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestClaim_Get_MarkDone_MarkFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "idempotency-table", 48*time.Hour)

	ctx := context.Background()
	key := "test-key-1"
	orderID := "or_123"

	claimed, existing, err := s.Claim(ctx, ScopeCreateOrder, key, orderID)
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if !claimed || existing != nil {
		t.Fatalf("expected fresh claim, got claimed=%v existing=%+v", claimed, existing)
	}

	// second claim sees the in-flight record
	claimed2, existing2, err := s.Claim(ctx, ScopeCreateOrder, key, orderID)
	if err != nil {
		t.Fatalf("second Claim error: %v", err)
	}
	if claimed2 {
		t.Fatalf("expected claimed=false on duplicate claim")
	}
	if existing2 == nil || existing2.Status != StatusInProgress || existing2.Ref != orderID {
		t.Fatalf("unexpected existing record: %+v", existing2)
	}

	// same key in another scope is independent
	claimed3, _, err := s.Claim(ctx, ScopeWebhookEvent, key, "charge.succeeded")
	if err != nil || !claimed3 {
		t.Fatalf("expected independent scope claim, got %v %v", claimed3, err)
	}

	if err := s.MarkDone(ctx, ScopeCreateOrder, key, `{"ok":true}`, 201); err != nil {
		t.Fatalf("MarkDone error: %v", err)
	}

	item := mock.table[tableKey(ScopeCreateOrder, key)]
	if st, ok := item["status"].(*types.AttributeValueMemberS); !ok || st.Value != StatusDone {
		t.Fatalf("status not updated to DONE, got %+v", item["status"])
	}

	rec, err := s.Get(ctx, ScopeCreateOrder, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.ResponseBody != `{"ok":true}` || rec.ResponseStatus != 201 {
		t.Fatalf("stored response mismatch: %+v", rec)
	}

	if err := s.MarkFailed(ctx, ScopeCreateOrder, key, "failed-reason"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	rec, _ = s.Get(ctx, ScopeCreateOrder, key)
	if rec.Status != StatusFailed || rec.Note != "failed-reason" {
		t.Fatalf("expected FAILED with note, got %+v", rec)
	}
}

func TestClaim_ReclaimsFailed(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "tbl", time.Hour)
	ctx := context.Background()

	if _, _, err := s.Claim(ctx, ScopeWebhookEvent, "evt_1", "source.chargeable"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.MarkFailed(ctx, ScopeWebhookEvent, "evt_1", "upstream down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	claimed, existing, err := s.Claim(ctx, ScopeWebhookEvent, "evt_1", "source.chargeable")
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !claimed || existing != nil {
		t.Fatalf("expected FAILED record to be reclaimed")
	}
	rec, _ := s.Get(ctx, ScopeWebhookEvent, "evt_1")
	if rec.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS after reclaim, got %s", rec.Status)
	}
}

func TestClaim_ExpiredRecordIsReplaced(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "tbl", time.Hour)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return start }
	ctx := context.Background()

	if _, _, err := s.Claim(ctx, ScopeCreateOrder, "k", "or_1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	s.nowFunc = func() time.Time { return start.Add(2 * time.Hour) }
	if rec, _ := s.Get(ctx, ScopeCreateOrder, "k"); rec != nil {
		t.Fatalf("expired record should read as missing, got %+v", rec)
	}
	claimed, _, err := s.Claim(ctx, ScopeCreateOrder, "k", "or_2")
	if err != nil || !claimed {
		t.Fatalf("expected claim over expired record, got %v %v", claimed, err)
	}
}

func TestMarkDone_Unclaimed(t *testing.T) {
	s := NewStore(newSimpleMock(), "tbl", time.Hour)

	err := s.MarkDone(context.Background(), ScopeCreateOrder, "never", "{}", 200)
	if !errors.Is(err, ErrRecordMissing) {
		t.Fatalf("expected ErrRecordMissing, got %v", err)
	}
}

func TestClaim_PutErrorIsWrapped(t *testing.T) {
	mock := newSimpleMock()
	boom := errors.New("throttled")
	mock.putErr = boom
	s := NewStore(mock, "tbl", time.Hour)

	if _, _, err := s.Claim(context.Background(), ScopeCreateOrder, "k", "or_1"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped put error, got %v", err)
	}
}

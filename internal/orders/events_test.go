package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

func event(t *testing.T, typ string, obj interface{}) provider.Event {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	return provider.Event{ID: "evt_1", Type: typ, Data: provider.EventData{Object: raw}}
}

func TestApplyEvent_SourceChargeablePaysCreatedOrder(t *testing.T) {
	fp := newFakeProvider()
	fp.addOrder("or_1", StatusCreated, 2400)
	fp.sources["src_1"] = &provider.Source{ID: "src_1", Status: provider.SourceStatusChargeable}
	s := NewService(fp, zaptest.NewLogger(t))

	out, err := s.ApplyEvent(context.Background(), event(t, EventSourceChargeable,
		provider.Source{ID: "src_1", Status: provider.SourceStatusChargeable, Metadata: map[string]string{"order": "or_1"}}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)
	assert.Equal(t, StatusPaid, fp.orders["or_1"].Metadata["status"])
}

func TestApplyEvent_SourceChargeableSkipsProcessedOrder(t *testing.T) {
	fp := newFakeProvider()
	fp.addOrder("or_1", StatusPaid, 2400)
	s := NewService(fp, zaptest.NewLogger(t))

	out, err := s.ApplyEvent(context.Background(), event(t, EventSourceChargeable,
		provider.Source{ID: "src_1", Metadata: map[string]string{"order": "or_1"}}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	assert.Empty(t, fp.charges)
}

func TestApplyEvent_SourceFailure(t *testing.T) {
	for _, typ := range []string{EventSourceFailed, EventSourceCanceled} {
		fp := newFakeProvider()
		fp.addOrder("or_1", StatusCreated, 2400)
		s := NewService(fp, zaptest.NewLogger(t))

		out, err := s.ApplyEvent(context.Background(), event(t, typ,
			provider.Source{ID: "src_1", Status: provider.SourceStatusFailed, Metadata: map[string]string{"order": "or_1"}}))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, out, typ)
		assert.Equal(t, StatusFailed, fp.orders["or_1"].Metadata["status"])
	}
}

func TestApplyEvent_ChargeEvents(t *testing.T) {
	tests := []struct {
		typ     string
		current string
		want    string
		outcome Outcome
	}{
		{EventChargeSucceeded, StatusPending, StatusPaid, OutcomeApplied},
		{EventChargeFailed, StatusPending, StatusFailed, OutcomeApplied},
		{EventChargeCaptured, StatusPaid, StatusCaptured, OutcomeApplied},
		{EventChargeSucceeded, StatusPaid, StatusPaid, OutcomeSkipped},
		{EventChargeSucceeded, StatusCaptured, StatusCaptured, OutcomeSkipped},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.current, func(t *testing.T) {
			fp := newFakeProvider()
			fp.addOrder("or_1", tt.current, 2400)
			s := NewService(fp, zaptest.NewLogger(t))

			out, err := s.ApplyEvent(context.Background(), event(t, tt.typ,
				provider.Charge{ID: "ch_1", Metadata: map[string]string{"order": "or_1"}}))
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, out)
			assert.Equal(t, tt.want, fp.orders["or_1"].Metadata["status"])
		})
	}
}

func TestApplyEvent_Ignored(t *testing.T) {
	s := NewService(newFakeProvider(), zaptest.NewLogger(t))

	out, err := s.ApplyEvent(context.Background(), event(t, "customer.created", map[string]string{"id": "cus_1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)

	out, err = s.ApplyEvent(context.Background(), event(t, EventChargeSucceeded, provider.Charge{ID: "ch_1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, out)
}

func TestApplyEvent_UnknownOrder(t *testing.T) {
	s := NewService(newFakeProvider(), zaptest.NewLogger(t))

	_, err := s.ApplyEvent(context.Background(), event(t, EventChargeSucceeded,
		provider.Charge{ID: "ch_1", Metadata: map[string]string{"order": "or_gone"}}))
	assert.ErrorIs(t, err, ErrNotFound)
}

package checkout

import (
	"errors"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
)

// ActionKind is what the checkout does next for an (order, source) pair.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionCharge
	ActionAuthenticationFailed
	ActionAwaitingConfirmation
	ActionPendingConfirmation
	ActionFailed
	ActionSucceeded
)

func (k ActionKind) String() string {
	switch k {
	case ActionCharge:
		return "charge"
	case ActionAuthenticationFailed:
		return "authentication_failed"
	case ActionAwaitingConfirmation:
		return "awaiting_confirmation"
	case ActionPendingConfirmation:
		return "pending_confirmation"
	case ActionFailed:
		return "failed"
	case ActionSucceeded:
		return "succeeded"
	default:
		return "none"
	}
}

// Terminal reports whether the order needs no further interaction.
func (k ActionKind) Terminal() bool {
	return k == ActionFailed || k == ActionSucceeded
}

// Action is the interpreted result of an order update. Error, when set, is rendered
// before the action itself.
type Action struct {
	Kind  ActionKind
	Error string
}

// Interpret maps an order and the source last seen for it to the next action.
// source may be nil, which reads as a source without status.
func Interpret(order *provider.Order, source *provider.Source, err error) Action {
	var act Action
	if err != nil {
		act.Error = errorMessage(err)
	}

	switch orders.Status(order) {
	case orders.StatusCreated:
		sourceStatus := ""
		if source != nil {
			sourceStatus = source.Status
		}
		switch sourceStatus {
		case provider.SourceStatusChargeable:
			act.Kind = ActionCharge
		case provider.SourceStatusFailed, provider.SourceStatusCanceled:
			act.Kind = ActionAuthenticationFailed
		default:
			act.Kind = ActionAwaitingConfirmation
		}
	case orders.StatusPending:
		act.Kind = ActionPendingConfirmation
	case orders.StatusFailed:
		act.Kind = ActionFailed
	case orders.StatusPaid, orders.StatusCaptured:
		act.Kind = ActionSucceeded
	default:
		act.Kind = ActionNone
	}
	return act
}

func errorMessage(err error) string {
	var te *TokenizationError
	if errors.As(err, &te) {
		return te.Message
	}
	var ue *orders.UpstreamError
	if errors.As(err, &ue) {
		return ue.Message()
	}
	if errors.Is(err, ErrRequestInProgress) {
		return MessageOrderInProgress
	}
	return err.Error()
}

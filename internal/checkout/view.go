package checkout

import (
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/payment"
)

// Copy shown on the confirmation screen.
const (
	NotePaymentPending   = "We’ll send your receipt and ship your items as soon as your payment is confirmed."
	NotePaymentConfirmed = "We will send the confirmation to your email in the next few minutes, and your items will be on their way shortly."

	MessageAuthenticationFailed = "Authentication failed. Please choose another payment method."
	MessageAwaitingConfirmation = "Your order has been received and is awaiting payment confirmation."
	MessageOrderInProgress      = "Your order is already being submitted. Please wait a moment and try again."

	LabelProcessing = "Processing Order…"
)

// Screen is everything the checkout page shows. Views receive a copy on every change.
type Screen struct {
	// Visual state of the page.
	Checkout   bool
	Processing bool
	Success    bool
	Error      bool

	Action       ActionKind
	Message      string
	Note         string
	ErrorMessage string // confirmation-level error
	FormError    string // form-level error, e.g. rejected order details
	CardError    string // inline under the card field

	Country     string
	PostalLabel string
	ShowState   bool
	Methods     []payment.Method
	ShowTabs    bool
	Selected    string
	Panels      []payment.InfoPanel

	SubmitLabel    string
	SubmitDisabled bool

	DOB   string
	Promo string
}

// View renders the checkout screen. Render is called with the controller lock held and
// must not call back into the controller.
type View interface {
	Render(s Screen)
}

// LogView renders screens as structured log lines.
type LogView struct {
	Logger *zap.Logger
}

func (v LogView) Render(s Screen) {
	v.Logger.Info("checkout screen",
		zap.Stringer("action", s.Action),
		zap.Bool("checkout", s.Checkout),
		zap.Bool("processing", s.Processing),
		zap.Bool("success", s.Success),
		zap.Bool("error", s.Error),
		zap.String("message", s.Message),
		zap.String("note", s.Note),
		zap.String("error_message", s.ErrorMessage),
	)
}

func applyAction(s *Screen, act Action) {
	s.Action = act.Kind
	if act.Error != "" {
		s.Processing = false
		s.ErrorMessage = act.Error
		s.Error = true
		s.SubmitDisabled = false
	}

	switch act.Kind {
	case ActionCharge:
		s.SubmitLabel = LabelProcessing
	case ActionAuthenticationFailed:
		s.Message = MessageAuthenticationFailed
		s.SubmitDisabled = false
	case ActionAwaitingConfirmation:
		s.Message = MessageAwaitingConfirmation
	case ActionPendingConfirmation:
		s.Processing = false
		s.Note = NotePaymentPending
		s.Success = true
	case ActionFailed:
		s.Checkout = false
		s.Success = false
		s.Processing = false
		s.Error = true
	case ActionSucceeded:
		s.Checkout = false
		s.Processing = false
		s.Note = NotePaymentConfirmed
		s.Success = true
	}
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/checkout-orderflow/internal/orders"
	"github.com/imrishuroy/checkout-orderflow/internal/payment"
	"github.com/imrishuroy/checkout-orderflow/internal/provider"
	"github.com/imrishuroy/checkout-orderflow/internal/validation"
)

const defaultMaxCharges = 3

var (
	ErrSubmitInProgress  = errors.New("checkout: submission already in progress")
	ErrMethodUnavailable = errors.New("checkout: payment method not offered for country")
	ErrTooManyCharges    = errors.New("checkout: charge attempts exhausted")
)

// OrderAPI is the part of the checkout API the controller drives.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req validation.CreateOrderRequest) (*provider.Order, error)
	PayOrder(ctx context.Context, orderID string, source *provider.Source) (*orders.PayResult, error)
	GetOrderStatus(ctx context.Context, orderID string) (*provider.Order, error)
}

// Settings fixes the basket and store locale for a checkout page.
type Settings struct {
	Currency string
	Country  string
	Items    []provider.OrderItem
	Amount   int64
}

// Controller runs one checkout page: form state, submission, and order status handling.
type Controller struct {
	api       OrderAPI
	tokenizer Tokenizer
	view      View
	store     ActiveOrderStore
	logger    *zap.Logger
	validate  *validatorv10.Validate
	settings  Settings

	maxCharges  int
	pollOptions []PollerOption
	poller      *Poller

	mu     sync.Mutex
	screen Screen
	gate   payment.Gate
	task   *PollTask
}

type ControllerOption func(*Controller)

func WithMaxCharges(n int) ControllerOption {
	return func(c *Controller) { c.maxCharges = n }
}

func WithPollerOptions(opts ...PollerOption) ControllerOption {
	return func(c *Controller) { c.pollOptions = append(c.pollOptions, opts...) }
}

func WithValidator(v *validatorv10.Validate) ControllerOption {
	return func(c *Controller) { c.validate = v }
}

func NewController(api OrderAPI, tokenizer Tokenizer, view View, store ActiveOrderStore, logger *zap.Logger, settings Settings, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:        api,
		tokenizer:  tokenizer,
		view:       view,
		store:      store,
		logger:     logger,
		settings:   settings,
		maxCharges: defaultMaxCharges,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.validate == nil {
		c.validate = validation.New()
	}
	c.poller = NewPoller(api, func(ctx context.Context, o *provider.Order) {
		_, _ = c.HandleOrder(ctx, o, nil, nil)
	}, c.logger, c.pollOptions...)
	return c
}

// Start renders the landing state. A shopper returning from a redirect with a remembered
// order gets the processing screen and a status poll, whose task is returned.
func (c *Controller) Start(ctx context.Context, landing Landing) *PollTask {
	c.mu.Lock()
	c.screen.DOB = landing.DOB
	c.screen.Promo = landing.Promo
	c.selectCountryLocked(c.settings.Country)

	orderID, ok := c.store.ActiveOrderID()
	if !landing.Returning || !ok {
		c.screen.Checkout = true
		c.renderLocked()
		c.mu.Unlock()
		return nil
	}

	c.screen.Success = true
	c.screen.Processing = true
	c.renderLocked()
	c.mu.Unlock()

	c.logger.Info("returned from payment redirect", zap.String("order_id", orderID))
	task := c.poller.Start(ctx, orderID)

	c.mu.Lock()
	c.task = task
	c.mu.Unlock()
	return task
}

// SelectCountry re-gates the payment methods and address fields for country.
func (c *Controller) SelectCountry(country string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectCountryLocked(country)
	c.renderLocked()
}

func (c *Controller) selectCountryLocked(country string) {
	c.gate = payment.GateFor(country)
	c.screen.Country = country
	c.screen.PostalLabel = payment.PostalCodeLabel(country)
	c.screen.ShowState = payment.ShowsStateField(country)
	c.screen.Methods = c.gate.Visible
	c.screen.ShowTabs = c.gate.ShowTabs
	c.selectMethodLocked(c.gate.Default)
}

// SelectMethod switches the selected payment method.
func (c *Controller) SelectMethod(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := payment.Lookup(id)
	if !ok || !c.gate.Offers(id) {
		return fmt.Errorf("%w: %s in %s", ErrMethodUnavailable, id, c.gate.Country)
	}
	c.selectMethodLocked(m)
	c.renderLocked()
	return nil
}

func (c *Controller) selectMethodLocked(m payment.Method) {
	c.screen.Selected = m.ID
	c.screen.Panels = payment.InfoPanels(m)
	c.screen.SubmitLabel = payment.ButtonLabel(m, c.settings.Amount, c.settings.Currency)
}

// CardChanged reflects a change event of the card field; err is the field's current error.
func (c *Controller) CardChanged(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screen.CardError = ""
	if err != nil {
		c.screen.CardError = errorMessage(err)
	}
	c.screen.SubmitDisabled = false
	c.renderLocked()
}

// Submit places the order and makes the single tokenization call for it, then hands the
// result to HandleOrder.
func (c *Controller) Submit(ctx context.Context, sub Submission) (Action, error) {
	c.mu.Lock()
	if sub.Method == "" {
		sub.Method = c.screen.Selected
	}
	if sub.DOB == "" {
		sub.DOB = c.screen.DOB
	}
	if sub.Promo == "" {
		sub.Promo = c.screen.Promo
	}
	c.mu.Unlock()

	req := sub.orderRequest(c.settings.Currency, c.settings.Items)
	if err := c.validate.Struct(req); err != nil {
		c.update(func(s *Screen) { s.FormError = "Please check the highlighted fields." })
		return Action{}, fmt.Errorf("checkout: invalid submission: %w", err)
	}

	c.mu.Lock()
	if c.screen.SubmitDisabled {
		c.mu.Unlock()
		return Action{}, ErrSubmitInProgress
	}
	c.screen.SubmitDisabled = true
	c.screen.FormError = ""
	c.renderLocked()
	c.mu.Unlock()

	order, err := c.api.CreateOrder(ctx, req)
	if err == nil && order == nil {
		err = ErrNoOrder
	}
	if err != nil {
		c.logger.Warn("create order", zap.Error(err))
		c.update(func(s *Screen) {
			s.FormError = errorMessage(err)
			s.SubmitDisabled = false
		})
		return Action{}, err
	}
	c.store.SetActiveOrderID(order.ID)

	var source *provider.Source
	var tokErr error
	if sub.Method == payment.MethodCard {
		source, tokErr = c.tokenizer.CreateCardSource(ctx, provider.Owner{Name: sub.Name})
		var te *TokenizationError
		if errors.As(tokErr, &te) {
			c.update(func(s *Screen) { s.CardError = te.Message })
		}
	} else {
		source, tokErr = c.tokenizer.CreateSource(ctx, BuildSourceRequest(sub, order))
	}
	if tokErr != nil {
		c.logger.Info("tokenization failed", zap.String("order_id", order.ID),
			zap.String("method", sub.Method), zap.Error(tokErr))
	}
	return c.HandleOrder(ctx, order, source, tokErr)
}

// HandleOrder interprets order updates until no charge is due. A chargeable source on a
// created order is charged and the response interpreted again, at most maxCharges times.
func (c *Controller) HandleOrder(ctx context.Context, order *provider.Order, source *provider.Source, err error) (Action, error) {
	charges := 0
	for {
		act := Interpret(order, source, err)
		c.update(func(s *Screen) { applyAction(s, act) })
		if act.Kind.Terminal() {
			c.store.ClearActiveOrder()
		}
		if act.Kind != ActionCharge {
			return act, nil
		}

		if charges == c.maxCharges {
			c.logger.Warn("order still chargeable after charge attempts",
				zap.String("order_id", order.ID), zap.Int("attempts", charges))
			c.update(func(s *Screen) { s.SubmitDisabled = false })
			return act, ErrTooManyCharges
		}
		charges++

		res, payErr := c.api.PayOrder(ctx, order.ID, source)
		if payErr == nil && (res == nil || res.Order == nil) {
			payErr = ErrNoOrder
		}
		if payErr != nil {
			c.logger.Warn("pay order", zap.String("order_id", order.ID), zap.Error(payErr))
			c.update(func(s *Screen) {
				s.FormError = errorMessage(payErr)
				s.SubmitDisabled = false
			})
			return act, payErr
		}
		order, source, err = res.Order, res.Source, nil
	}
}

// Stop cancels a running status poll.
func (c *Controller) Stop() {
	c.mu.Lock()
	task := c.task
	c.task = nil
	c.mu.Unlock()
	if task != nil {
		task.Cancel()
		_ = task.Wait()
	}
}

// Screen returns the current screen.
func (c *Controller) Screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

func (c *Controller) update(fn func(*Screen)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.screen)
	c.renderLocked()
}

func (c *Controller) renderLocked() {
	if c.view != nil {
		c.view.Render(c.screen)
	}
}

package stage

import (
	"context"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iurnickita/orderwatch/internal/model"
)

type Action string

const (
	ActionConfirm                Action = "confirm"
	ActionConfirmDeposit30       Action = "confirm-deposit-30"
	ActionConfirmPaid100         Action = "confirm-paid-100"
	ActionConfirmPaidRemaining70 Action = "confirm-paid-remaining-70"
	ActionCompleteService        Action = "complete-service"
)

var Actions = []Action{
	ActionConfirm,
	ActionConfirmDeposit30,
	ActionConfirmPaid100,
	ActionConfirmPaidRemaining70,
	ActionCompleteService,
}

var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrNotEligible    = errors.New("action is not eligible for the order")
	ErrInFlight       = errors.New("another action for the order is in progress")
	ErrOrderNotLoaded = errors.New("order is not loaded")
)

type OrderService interface {
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ConfirmOrder(ctx context.Context, id string) (model.Order, error)
	ConfirmDeposit30(ctx context.Context, id string) (model.Order, error)
	ConfirmPaid100(ctx context.Context, id string) (model.Order, error)
	ConfirmPaidRemaining70(ctx context.Context, id string) (model.Order, error)
	CompleteService(ctx context.Context, id string) (model.Order, error)
}

type Notifier interface {
	AddNotification(ev model.Event) (model.Notification, bool)
}

func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", ErrUnknownAction
}

// IsEligible решает только по статусу заказа и флагам оплаты из ответа
// сервиса, локальных признаков нет.
func IsEligible(order model.Order, action Action) bool {
	tracking := order.PaymentTracking
	switch action {
	case ActionConfirm:
		return order.OrderStatus == model.OrderStatusPending
	case ActionConfirmDeposit30, ActionConfirmPaid100:
		return order.OrderStatus == model.OrderStatusConfirmed &&
			!tracking.DepositConfirmed && !tracking.FullPaymentConfirmed
	case ActionConfirmPaidRemaining70:
		return order.OrderStatus == model.OrderStatusProcessing &&
			tracking.DepositConfirmed && !tracking.FullPaymentConfirmed
	case ActionCompleteService:
		return order.OrderStatus == model.OrderStatusProcessing && tracking.FullPaymentConfirmed
	default:
		return false
	}
}

func EligibleActions(order model.Order) []Action {
	var eligible []Action
	for _, a := range Actions {
		if IsEligible(order, a) {
			eligible = append(eligible, a)
		}
	}
	return eligible
}

// Controller выполняет переходы заказа по этапам. Снимок заказа меняется
// только на ответ сервиса, уведомление создаётся только после успешного ответа.
type Controller struct {
	orders   OrderService
	notifier Notifier
	zaplog   *zap.Logger

	mu       sync.Mutex
	snapshot map[string]model.Order
	inFlight map[string]Action
}

func NewController(orders OrderService, notifier Notifier, zaplog *zap.Logger) *Controller {
	return &Controller{
		orders:   orders,
		notifier: notifier,
		zaplog:   zaplog,
		snapshot: make(map[string]model.Order),
		inFlight: make(map[string]Action),
	}
}

// Load запрашивает актуальный снимок заказа у сервиса.
func (c *Controller) Load(ctx context.Context, id string) (model.Order, error) {
	order, err := c.orders.GetOrder(ctx, id)
	if err != nil {
		return model.Order{}, err
	}

	c.mu.Lock()
	c.snapshot[id] = order
	c.mu.Unlock()
	return order, nil
}

func (c *Controller) Order(id string) (model.Order, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.snapshot[id]
	return order, ok
}

func (c *Controller) InFlight(id string) (Action, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	action, ok := c.inFlight[id]
	return action, ok
}

func (c *Controller) Confirm(ctx context.Context, id string) (model.Order, error) {
	return c.Perform(ctx, id, ActionConfirm)
}

func (c *Controller) ConfirmDeposit30(ctx context.Context, id string) (model.Order, error) {
	return c.Perform(ctx, id, ActionConfirmDeposit30)
}

func (c *Controller) ConfirmPaid100(ctx context.Context, id string) (model.Order, error) {
	return c.Perform(ctx, id, ActionConfirmPaid100)
}

func (c *Controller) ConfirmPaidRemaining70(ctx context.Context, id string) (model.Order, error) {
	return c.Perform(ctx, id, ActionConfirmPaidRemaining70)
}

func (c *Controller) CompleteService(ctx context.Context, id string) (model.Order, error) {
	return c.Perform(ctx, id, ActionCompleteService)
}

func (c *Controller) Perform(ctx context.Context, id string, action Action) (model.Order, error) {
	call, err := c.call(action)
	if err != nil {
		return model.Order{}, err
	}

	// проверка условия и отметка "в процессе" - под одной блокировкой
	c.mu.Lock()
	order, ok := c.snapshot[id]
	if !ok {
		c.mu.Unlock()
		return model.Order{}, ErrOrderNotLoaded
	}
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		return order, ErrInFlight
	}
	if !IsEligible(order, action) {
		c.mu.Unlock()
		return order, ErrNotEligible
	}
	c.inFlight[id] = action
	c.mu.Unlock()

	updated, err := call(ctx, id)

	c.mu.Lock()
	delete(c.inFlight, id)
	if err != nil {
		c.mu.Unlock()
		c.zaplog.Warn("order action rejected",
			zap.String("order_id", id),
			zap.String("action", string(action)),
			zap.Error(err))
		return order, pkgerrors.Wrapf(err, "%s %s", action, id)
	}
	c.snapshot[id] = updated
	c.mu.Unlock()

	c.notify(action, id, order, updated)
	return updated, nil
}

func (c *Controller) call(action Action) (func(context.Context, string) (model.Order, error), error) {
	switch action {
	case ActionConfirm:
		return c.orders.ConfirmOrder, nil
	case ActionConfirmDeposit30:
		return c.orders.ConfirmDeposit30, nil
	case ActionConfirmPaid100:
		return c.orders.ConfirmPaid100, nil
	case ActionConfirmPaidRemaining70:
		return c.orders.ConfirmPaidRemaining70, nil
	case ActionCompleteService:
		return c.orders.CompleteService, nil
	default:
		return nil, ErrUnknownAction
	}
}

func (c *Controller) notify(action Action, orderID string, before, after model.Order) {
	customer := after.CustomerInfo.FullName
	if customer == "" {
		customer = before.CustomerInfo.FullName
	}
	total := after.FinalTotal

	var ev model.Event
	var err error
	switch action {
	case ActionConfirmDeposit30:
		ev, err = model.NewPaymentReceived(orderID, customer, model.DepositAmount(total))
	case ActionConfirmPaid100:
		ev, err = model.NewPaymentReceived(orderID, customer, total)
	case ActionConfirmPaidRemaining70:
		ev, err = model.NewPaymentReceived(orderID, customer, model.RemainingAmount(total))
	case ActionCompleteService:
		ev, err = model.NewOrderCompleted(orderID, customer)
	default:
		return
	}
	if err != nil {
		c.zaplog.Error("build order event", zap.String("order_id", orderID), zap.Error(err))
		return
	}

	if _, ok := c.notifier.AddNotification(ev); !ok {
		c.zaplog.Debug("notification suppressed", zap.String("order_id", orderID), zap.String("action", string(action)))
	}
}

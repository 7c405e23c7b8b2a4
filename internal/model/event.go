package model

import "errors"

type Kind string

const (
	KindOrderCreated    Kind = "order_created"
	KindPaymentReceived Kind = "payment_received"
	KindOrderCancelled  Kind = "order_cancelled"
	KindOrderCompleted  Kind = "order_completed"
	KindPaymentFailed   Kind = "payment_failed"
)

var (
	ErrMissingOrderID = errors.New("event requires order id")
	ErrMissingKind    = errors.New("event requires kind")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Event - закрытое множество событий, из которых строятся уведомления.
type Event interface {
	Kind() Kind
	Order() string
	Customer() string
	event()
}

type OrderCreated struct {
	OrderID      string
	CustomerName string
}

func NewOrderCreated(orderID, customerName string) (OrderCreated, error) {
	if orderID == "" {
		return OrderCreated{}, ErrMissingOrderID
	}
	return OrderCreated{OrderID: orderID, CustomerName: customerName}, nil
}

func (e OrderCreated) Kind() Kind       { return KindOrderCreated }
func (e OrderCreated) Order() string    { return e.OrderID }
func (e OrderCreated) Customer() string { return e.CustomerName }
func (OrderCreated) event()             {}

type PaymentReceived struct {
	OrderID      string
	CustomerName string
	// nil - сумма неизвестна
	Amount *int64
}

func NewPaymentReceived(orderID, customerName string, amount int64) (PaymentReceived, error) {
	if orderID == "" {
		return PaymentReceived{}, ErrMissingOrderID
	}
	if amount < 0 {
		return PaymentReceived{}, ErrNegativeAmount
	}
	return PaymentReceived{OrderID: orderID, CustomerName: customerName, Amount: &amount}, nil
}

func (e PaymentReceived) Kind() Kind       { return KindPaymentReceived }
func (e PaymentReceived) Order() string    { return e.OrderID }
func (e PaymentReceived) Customer() string { return e.CustomerName }
func (PaymentReceived) event()             {}

type OrderCancelled struct {
	OrderID      string
	CustomerName string
}

func NewOrderCancelled(orderID, customerName string) (OrderCancelled, error) {
	if orderID == "" {
		return OrderCancelled{}, ErrMissingOrderID
	}
	return OrderCancelled{OrderID: orderID, CustomerName: customerName}, nil
}

func (e OrderCancelled) Kind() Kind       { return KindOrderCancelled }
func (e OrderCancelled) Order() string    { return e.OrderID }
func (e OrderCancelled) Customer() string { return e.CustomerName }
func (OrderCancelled) event()             {}

type OrderCompleted struct {
	OrderID      string
	CustomerName string
}

func NewOrderCompleted(orderID, customerName string) (OrderCompleted, error) {
	if orderID == "" {
		return OrderCompleted{}, ErrMissingOrderID
	}
	return OrderCompleted{OrderID: orderID, CustomerName: customerName}, nil
}

func (e OrderCompleted) Kind() Kind       { return KindOrderCompleted }
func (e OrderCompleted) Order() string    { return e.OrderID }
func (e OrderCompleted) Customer() string { return e.CustomerName }
func (OrderCompleted) event()             {}

type PaymentFailed struct {
	OrderID      string
	CustomerName string
}

func NewPaymentFailed(orderID, customerName string) (PaymentFailed, error) {
	if orderID == "" {
		return PaymentFailed{}, ErrMissingOrderID
	}
	return PaymentFailed{OrderID: orderID, CustomerName: customerName}, nil
}

func (e PaymentFailed) Kind() Kind       { return KindPaymentFailed }
func (e PaymentFailed) Order() string    { return e.OrderID }
func (e PaymentFailed) Customer() string { return e.CustomerName }
func (PaymentFailed) event()             {}

// GenericEvent - событие произвольного вида, в том числе не привязанное к заказу.
type GenericEvent struct {
	Type         Kind
	OrderID      string
	CustomerName string
	Message      string
}

func NewGenericEvent(kind Kind, orderID, customerName, message string) (GenericEvent, error) {
	if kind == "" {
		return GenericEvent{}, ErrMissingKind
	}
	return GenericEvent{Type: kind, OrderID: orderID, CustomerName: customerName, Message: message}, nil
}

func (e GenericEvent) Kind() Kind       { return e.Type }
func (e GenericEvent) Order() string    { return e.OrderID }
func (e GenericEvent) Customer() string { return e.CustomerName }
func (GenericEvent) event()             {}

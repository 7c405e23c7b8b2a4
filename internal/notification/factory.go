package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/notification/config"
)

type meta struct {
	Title string
	Icon  string
	Color string
}

var kindMeta = map[model.Kind]meta{
	model.KindOrderCreated:    {Title: "New order", Icon: "shopping-cart", Color: "primary"},
	model.KindPaymentReceived: {Title: "Payment received", Icon: "credit-card", Color: "success"},
	model.KindOrderCancelled:  {Title: "Order cancelled", Icon: "x-circle", Color: "danger"},
	model.KindOrderCompleted:  {Title: "Order completed", Icon: "check-circle", Color: "success"},
	model.KindPaymentFailed:   {Title: "Payment failed", Icon: "alert-triangle", Color: "warning"},
}

var defaultMeta = meta{Title: "Notification", Icon: "bell", Color: "info"}

const unknownCustomer = "unknown"

// Factory превращает событие в готовое к показу уведомление.
type Factory struct {
	printer  *message.Printer
	currency string
	now      func() time.Time
	newID    func() string
}

func NewFactory(cfg config.Config) *Factory {
	return &Factory{
		printer:  message.NewPrinter(language.Make(cfg.Locale)),
		currency: cfg.Currency,
		now:      time.Now,
		newID:    newID,
	}
}

// UUIDv7 упорядочен по времени создания
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (f *Factory) Render(ev model.Event) model.Notification {
	m, ok := kindMeta[ev.Kind()]
	if !ok {
		m = defaultMeta
	}

	n := model.Notification{
		ID:           f.newID(),
		Type:         ev.Kind(),
		OrderID:      ev.Order(),
		CustomerName: ev.Customer(),
		Title:        m.Title,
		Icon:         m.Icon,
		Color:        m.Color,
		Timestamp:    f.now().UTC(),
	}
	if paid, ok := ev.(model.PaymentReceived); ok && paid.Amount != nil {
		amount := *paid.Amount
		n.Amount = &amount
	}

	n.Message = f.message(ev)
	if strings.TrimSpace(n.Message) == "" {
		n.Message = fmt.Sprintf("%s: %s", m.Title, customerName(ev))
	}
	return n
}

func (f *Factory) message(ev model.Event) string {
	name := customerName(ev)

	switch e := ev.(type) {
	case model.OrderCreated:
		return fmt.Sprintf("Customer %s created a new order", name)
	case model.PaymentReceived:
		if e.Amount != nil {
			return fmt.Sprintf("Customer %s paid %s", name, f.FormatAmount(*e.Amount))
		}
		return fmt.Sprintf("Payment received from customer %s", name)
	case model.OrderCancelled:
		return fmt.Sprintf("Order of customer %s has been cancelled", name)
	case model.OrderCompleted:
		return fmt.Sprintf("Order of customer %s has been completed", name)
	case model.PaymentFailed:
		return fmt.Sprintf("Payment from customer %s failed", name)
	case model.GenericEvent:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("New notification for customer %s", name)
	default:
		return ""
	}
}

// FormatAmount форматирует сумму по правилам локали, например "3.000.000 ₫".
func (f *Factory) FormatAmount(amount int64) string {
	formatted := f.printer.Sprintf("%d", amount)
	if f.currency == "" {
		return formatted
	}
	return formatted + " " + f.currency
}

func customerName(ev model.Event) string {
	if name := strings.TrimSpace(ev.Customer()); name != "" {
		return name
	}
	return unknownCustomer
}

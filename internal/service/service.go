package service

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/monitor"
	"github.com/iurnickita/orderwatch/internal/notification"
	"github.com/iurnickita/orderwatch/internal/orderclient"
	"github.com/iurnickita/orderwatch/internal/service/config"
	"github.com/iurnickita/orderwatch/internal/stage"
	"github.com/iurnickita/orderwatch/internal/store"
)

type Service interface {
	Notifications(kind model.Kind) []model.Notification
	UnreadCount() int
	MarkAsRead(id string) error
	MarkAllAsRead()
	DeleteNotification(id string) error
	ClearAllNotifications()
	ClearNotificationHistory()

	ListOrders(ctx context.Context, status string, page int) (model.OrderList, error)
	GetOrder(ctx context.Context, id string) (OrderView, error)
	PerformAction(ctx context.Context, id string, action string) (OrderView, error)

	RunMonitor(ctx context.Context) error
	Close()
}

// OrderView - снимок заказа и доступные по нему действия.
type OrderView struct {
	Order   model.Order    `json:"order"`
	Actions []stage.Action `json:"actions"`
}

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNotFound         = errors.New("not found")
	ErrUnknownAction    = errors.New("unknown action")
	ErrNotEligible      = errors.New("action is not eligible for the order")
	ErrInFlight         = errors.New("another action for the order is in progress")
	ErrRejected         = errors.New("rejected by order service")
)

type service struct {
	cfg           config.Config
	notifications *notification.Store
	orders        orderclient.OrderClient
	monitor       *monitor.Monitor
	stages        *stage.Controller
	zaplog        *zap.Logger
}

func NewService(cfg config.Config, storage store.Store, zaplog *zap.Logger) (Service, error) {
	if storage == nil {
		return nil, ErrInsufficientData
	}

	factory := notification.NewFactory(cfg.Notification)
	notifications := notification.NewStore(context.Background(), storage, factory, zaplog)
	orders := orderclient.NewOrderClient(cfg.OrderClient)

	service := service{
		cfg:           cfg,
		notifications: notifications,
		orders:        orders,
		monitor:       monitor.NewMonitor(cfg.Monitor, orders, notifications, zaplog),
		stages:        stage.NewController(orders, notifications, zaplog),
		zaplog:        zaplog,
	}

	return &service, nil
}

func (service *service) Notifications(kind model.Kind) []model.Notification {
	if kind == "" {
		return service.notifications.Notifications()
	}
	return service.notifications.NotificationsByType(kind)
}

func (service *service) UnreadCount() int {
	return service.notifications.UnreadCount()
}

func (service *service) MarkAsRead(id string) error {
	if id == "" {
		return ErrInsufficientData
	}
	if !service.notifications.MarkAsRead(id) {
		return ErrNotFound
	}
	return nil
}

func (service *service) MarkAllAsRead() {
	service.notifications.MarkAllAsRead()
}

func (service *service) DeleteNotification(id string) error {
	if id == "" {
		return ErrInsufficientData
	}
	if !service.notifications.DeleteNotification(id) {
		return ErrNotFound
	}
	return nil
}

func (service *service) ClearAllNotifications() {
	service.notifications.ClearAllNotifications()
}

func (service *service) ClearNotificationHistory() {
	service.notifications.ClearNotificationHistory()
	service.zaplog.Info("notification history reset")
}

// ListOrders - запрос списка по инициативе пользователя. Результат также
// получает монитор новых заказов.
func (service *service) ListOrders(ctx context.Context, status string, page int) (model.OrderList, error) {
	if page < 1 {
		page = 1
	}
	filter := model.OrderFilter{Status: status, Limit: service.cfg.Monitor.PageSize}

	list, err := service.orders.ListOrders(ctx, filter, page)
	if err != nil {
		return model.OrderList{}, translate(err)
	}
	return list, nil
}

func (service *service) GetOrder(ctx context.Context, id string) (OrderView, error) {
	if id == "" {
		return OrderView{}, ErrInsufficientData
	}

	order, err := service.stages.Load(ctx, id)
	if err != nil {
		return OrderView{}, translate(err)
	}
	return newOrderView(order), nil
}

func (service *service) PerformAction(ctx context.Context, id string, action string) (OrderView, error) {
	if id == "" {
		return OrderView{}, ErrInsufficientData
	}
	act, err := stage.ParseAction(action)
	if err != nil {
		return OrderView{}, ErrUnknownAction
	}

	// условие проверяется по текущему состоянию заказа на сервере
	if _, err = service.stages.Load(ctx, id); err != nil {
		return OrderView{}, translate(err)
	}

	order, err := service.stages.Perform(ctx, id, act)
	if err != nil {
		return newOrderView(order), translate(err)
	}
	return newOrderView(order), nil
}

func (service *service) RunMonitor(ctx context.Context) error {
	return service.monitor.Run(ctx)
}

func (service *service) Close() {
	service.notifications.Close()
}

func newOrderView(order model.Order) OrderView {
	return OrderView{Order: order, Actions: stage.EligibleActions(order)}
}

func translate(err error) error {
	var apiErr *orderclient.APIError
	switch {
	case errors.Is(err, orderclient.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, stage.ErrUnknownAction):
		return ErrUnknownAction
	case errors.Is(err, stage.ErrNotEligible):
		return ErrNotEligible
	case errors.Is(err, stage.ErrInFlight):
		return ErrInFlight
	case errors.Is(err, stage.ErrOrderNotLoaded):
		return ErrNotFound
	case errors.As(err, &apiErr):
		if apiErr.Message == "" {
			return ErrRejected
		}
		return pkgerrors.Wrap(ErrRejected, apiErr.Message)
	default:
		return err
	}
}

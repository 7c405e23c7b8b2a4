package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/monitor/config"
)

type OrderLister interface {
	ListOrders(ctx context.Context, filter model.OrderFilter, page int) (model.OrderList, error)
	OnListed(fn func(model.OrderList))
}

type Notifier interface {
	AddNotification(ev model.Event) (model.Notification, bool)
}

// Monitor сравнивает наблюдаемый список заказов с последним увиденным размером
// и создаёт уведомления о новых заказах. Список считается отсортированным от
// новых к старым.
type Monitor struct {
	cfg      config.Config
	orders   OrderLister
	notifier Notifier
	zaplog   *zap.Logger

	mu       sync.Mutex
	lastSeen int
}

// NewMonitor подписывается на каждое получение списка заказов, в том числе
// по запросу пользователя, а не только на опрос по таймеру.
func NewMonitor(cfg config.Config, orders OrderLister, notifier Notifier, zaplog *zap.Logger) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		orders:   orders,
		notifier: notifier,
		zaplog:   zaplog,
	}
	orders.OnListed(m.ObserveList)
	return m
}

func (m *Monitor) LastSeenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastSeen
}

// Observe обрабатывает список целиком, размер списка - его длина.
func (m *Monitor) Observe(orders []model.Order) int {
	return m.observe(len(orders), orders)
}

// ObserveList обрабатывает страницу списка. Если сервер сообщил общее
// количество, сравнивается оно: страница не растёт дальше своего лимита.
// Новые заказы бывают только в начале списка, поэтому страницы после первой
// не меняют lastSeen: рост увидит следующий запрос первой страницы.
func (m *Monitor) ObserveList(list model.OrderList) {
	if list.Pagination.Page > 1 {
		return
	}
	count := len(list.Orders)
	if list.Pagination.Total > count {
		count = list.Pagination.Total
	}
	m.observe(count, list.Orders)
}

func (m *Monitor) observe(count int, orders []model.Order) int {
	// чтение и запись lastSeen без разрыва
	m.mu.Lock()
	diff := count - m.lastSeen
	m.lastSeen = count
	m.mu.Unlock()

	if diff <= 0 {
		return 0
	}
	if diff > len(orders) {
		diff = len(orders)
	}

	emitted := 0
	for _, order := range orders[:diff] {
		if order.ID == "" || order.CustomerInfo.FullName == "" {
			m.zaplog.Debug("skip order without id or customer", zap.String("order_id", order.ID))
			continue
		}
		ev, err := model.NewOrderCreated(order.ID, order.CustomerInfo.FullName)
		if err != nil {
			continue
		}
		if _, ok := m.notifier.AddNotification(ev); ok {
			emitted++
		}
	}
	if emitted > 0 {
		m.zaplog.Info("new orders detected", zap.Int("count", emitted), zap.Int("last_seen", count))
	}
	return emitted
}

// Poll запрашивает первую страницу списка. Результат приходит в ObserveList
// через подписку. Ошибка не меняет lastSeen, следующая попытка - по таймеру.
func (m *Monitor) Poll(ctx context.Context) error {
	_, err := m.orders.ListOrders(ctx, model.OrderFilter{Limit: m.cfg.PageSize}, 1)
	if err != nil {
		m.zaplog.Warn("order poll failed", zap.Error(err))
	}
	return err
}

// Run опрашивает сервис заказов до отмены контекста.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/store"
)

const (
	KeyNotifications    = "notifications"
	KeyNotifiedOrderIDs = "notifiedOrderIds"

	MaxNotifications = 100

	persistTimeout = 10 * time.Second
)

// Store хранит ленту уведомлений и множество уже оповещённых заказов.
// Любая мутация ставит снимок состояния в очередь на запись; запись выполняет
// отдельная горутина, последняя версия снимка вытесняет непринятую.
type Store struct {
	mu       sync.Mutex
	list     []model.Notification
	notified map[string]struct{}
	// порядок добавления order id, для стабильной записи
	notifiedOrder []string

	listeners    map[int]func([]model.Notification)
	nextListener int
	// версия ленты растёт с каждой мутацией, слушатели не получают версию старше уже отданной
	version   uint64
	publishMu sync.Mutex
	published uint64

	factory *Factory
	storage store.Store
	zaplog  *zap.Logger

	pendingMu sync.Mutex
	pending   *snapshot
	writeMu   sync.Mutex
	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type snapshot struct {
	list  []byte
	ids   []byte
	erase bool
}

// NewStore восстанавливает состояние из хранилища. Ошибка чтения или разбора
// одного ключа не влияет на другой.
func NewStore(ctx context.Context, storage store.Store, factory *Factory, zaplog *zap.Logger) *Store {
	s := &Store{
		notified:  make(map[string]struct{}),
		listeners: make(map[int]func([]model.Notification)),
		factory:   factory,
		storage:   storage,
		zaplog:    zaplog,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	var list []model.Notification
	if s.load(ctx, KeyNotifications, &list) {
		if len(list) > MaxNotifications {
			list = list[:MaxNotifications]
		}
		s.list = list
	}

	var ids []string
	if s.load(ctx, KeyNotifiedOrderIDs, &ids) {
		for _, id := range ids {
			s.markNotified(id)
		}
	}

	go s.writer()
	return s
}

func (s *Store) load(ctx context.Context, key string, dst any) bool {
	raw, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNoRows) {
			s.zaplog.Error("load persisted state", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.zaplog.Error("parse persisted state, starting empty", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) markNotified(orderID string) {
	if _, ok := s.notified[orderID]; ok {
		return
	}
	s.notified[orderID] = struct{}{}
	s.notifiedOrder = append(s.notifiedOrder, orderID)
}

// AddNotification создаёт уведомление по событию. Если по заказу уже было
// уведомление, вызов ничего не делает и возвращает false.
func (s *Store) AddNotification(ev model.Event) (model.Notification, bool) {
	s.mu.Lock()
	orderID := ev.Order()
	if orderID != "" {
		if _, ok := s.notified[orderID]; ok {
			s.mu.Unlock()
			return model.Notification{}, false
		}
	}

	n := s.factory.Render(ev)
	list := make([]model.Notification, 0, min(len(s.list)+1, MaxNotifications))
	list = append(list, n)
	list = append(list, s.list...)
	if len(list) > MaxNotifications {
		list = list[:MaxNotifications]
	}
	s.list = list
	if orderID != "" {
		s.markNotified(orderID)
	}
	s.commitLocked()
	return n, true
}

func (s *Store) MarkAsRead(id string) bool {
	s.mu.Lock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list[i].Read = true
			s.commitLocked()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	for i := range s.list {
		s.list[i].Read = true
	}
	s.commitLocked()
}

// DeleteNotification убирает запись из ленты. Order id остаётся в множестве
// оповещённых, повторное событие по заказу будет подавлено.
func (s *Store) DeleteNotification(id string) bool {
	s.mu.Lock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list = append(s.list[:i:i], s.list[i+1:]...)
			s.commitLocked()
			return true
		}
	}
	s.mu.Unlock()
	return false
}

// ClearAllNotifications очищает ленту, множество оповещённых не трогает.
func (s *Store) ClearAllNotifications() {
	s.mu.Lock()
	s.list = nil
	s.commitLocked()
}

// ClearNotificationHistory - полный сброс: лента, множество и сохранённые копии.
func (s *Store) ClearNotificationHistory() {
	s.mu.Lock()
	s.list = nil
	s.notified = make(map[string]struct{})
	s.notifiedOrder = nil
	s.version++
	version := s.version
	listeners := s.listenersLocked()
	s.setPending(&snapshot{erase: true})
	s.mu.Unlock()

	s.signal()
	s.publish(version, listeners, nil)
}

func (s *Store) NotificationsByType(kind model.Kind) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []model.Notification
	for _, n := range s.list {
		if n.Type == kind {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

// Notifications возвращает копию ленты, новые первыми.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Notification{}, s.list...)
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	unread := 0
	for _, n := range s.list {
		if !n.Read {
			unread++
		}
	}
	return unread
}

func (s *Store) IsNotified(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.notified[orderID]
	return ok
}

func (s *Store) NotifiedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.notified)
}

// Subscribe регистрирует слушателя изменений ленты. Возвращает функцию отписки.
func (s *Store) Subscribe(fn func([]model.Notification)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// commitLocked снимает копию состояния и ставит её на запись под mu, чтобы
// более старый снимок не вытеснил новый. Затем отпускает mu и оповещает
// слушателей. Вызывается с захваченным mu.
func (s *Store) commitLocked() {
	snap := &snapshot{}
	var err error
	snap.list, err = json.Marshal(s.listOrEmpty())
	if err != nil {
		s.zaplog.Error("marshal notifications", zap.Error(err))
		snap.list = nil
	}
	snap.ids, err = json.Marshal(s.idsOrEmpty())
	if err != nil {
		s.zaplog.Error("marshal notified order ids", zap.Error(err))
		snap.ids = nil
	}
	list := append([]model.Notification{}, s.list...)
	s.version++
	version := s.version
	listeners := s.listenersLocked()
	s.setPending(snap)
	s.mu.Unlock()

	s.signal()
	s.publish(version, listeners, list)
}

func (s *Store) listOrEmpty() []model.Notification {
	if s.list == nil {
		return []model.Notification{}
	}
	return s.list
}

func (s *Store) idsOrEmpty() []string {
	if s.notifiedOrder == nil {
		return []string{}
	}
	return s.notifiedOrder
}

func (s *Store) listenersLocked() []func([]model.Notification) {
	listeners := make([]func([]model.Notification), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

// publish отдаёт слушателям ленту версии version. Если уже отдана более
// новая версия, устаревшая лента отбрасывается.
func (s *Store) publish(version uint64, listeners []func([]model.Notification), list []model.Notification) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	if version <= s.published {
		return
	}
	s.published = version
	for _, fn := range listeners {
		fn(append([]model.Notification{}, list...))
	}
}

func (s *Store) setPending(snap *snapshot) {
	s.pendingMu.Lock()
	s.pending = snap
	s.pendingMu.Unlock()
}

func (s *Store) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) writer() {
	defer close(s.stopped)
	for {
		select {
		case <-s.wake:
			s.Flush()
		case <-s.done:
			s.Flush()
			return
		}
	}
}

// Flush синхронно записывает последний непринятый снимок.
func (s *Store) Flush() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.pendingMu.Lock()
	snap := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if snap.erase {
		for _, key := range []string{KeyNotifications, KeyNotifiedOrderIDs} {
			if err := s.storage.Delete(ctx, key); err != nil {
				s.zaplog.Error("erase persisted state", zap.String("key", key), zap.Error(err))
			}
		}
		return
	}

	if snap.list != nil {
		if err := s.storage.Put(ctx, KeyNotifications, snap.list); err != nil {
			s.zaplog.Error("persist state", zap.String("key", KeyNotifications), zap.Error(err))
		}
	}
	if snap.ids != nil {
		if err := s.storage.Put(ctx, KeyNotifiedOrderIDs, snap.ids); err != nil {
			s.zaplog.Error("persist state", zap.String("key", KeyNotifiedOrderIDs), zap.Error(err))
		}
	}
}

// Close дописывает непринятый снимок и останавливает запись.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}

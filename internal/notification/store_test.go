package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/orderwatch/internal/model"
	"github.com/iurnickita/orderwatch/internal/store"
)

func newTestStore(t *testing.T, storage store.Store) *Store {
	s := NewStore(context.Background(), storage, newTestFactory(), zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

func orderCreated(t *testing.T, orderID string) model.Event {
	ev, err := model.NewOrderCreated(orderID, "Customer "+orderID)
	require.NoError(t, err)
	return ev
}

func TestAddNotificationDedup(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	_, ok := s.AddNotification(orderCreated(t, "O1"))
	require.True(t, ok)

	// любые последующие события по заказу подавляются
	paid, err := model.NewPaymentReceived("O1", "Anna", 100)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, ok = s.AddNotification(orderCreated(t, "O1"))
		assert.False(t, ok)
		_, ok = s.AddNotification(paid)
		assert.False(t, ok)
	}

	require.Len(t, s.Notifications(), 1)
	assert.True(t, s.IsNotified("O1"))
}

func TestAddNotificationDedupConcurrent(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.AddNotification(model.OrderCreated{OrderID: "O1", CustomerName: "Anna"}); ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, s.Notifications(), 1)
}

func TestAddNotificationWithoutOrderID(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	ev, err := model.NewGenericEvent("promo", "", "", "Sale")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, ok := s.AddNotification(ev)
		require.True(t, ok)
	}
	assert.Len(t, s.Notifications(), 3)
	assert.Equal(t, 0, s.NotifiedCount())
}

func TestCapacity(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	for i := 0; i < 150; i++ {
		_, ok := s.AddNotification(orderCreated(t, fmt.Sprintf("O%d", i)))
		require.True(t, ok)
	}

	list := s.Notifications()
	require.Len(t, list, MaxNotifications)
	assert.Equal(t, 150, s.NotifiedCount())

	// сохранены 100 самых новых, новые первыми
	for i, n := range list {
		assert.Equal(t, fmt.Sprintf("O%d", 149-i), n.OrderID)
	}

	// вытесненный заказ всё ещё подавляется
	_, ok := s.AddNotification(orderCreated(t, "O0"))
	assert.False(t, ok)
}

func TestReadState(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	first, _ := s.AddNotification(orderCreated(t, "O1"))
	s.AddNotification(orderCreated(t, "O2"))
	s.AddNotification(orderCreated(t, "O3"))
	assert.Equal(t, 3, s.UnreadCount())

	assert.True(t, s.MarkAsRead(first.ID))
	assert.Equal(t, 2, s.UnreadCount())
	assert.False(t, s.MarkAsRead("missing"))
	assert.Equal(t, 2, s.UnreadCount())

	s.MarkAllAsRead()
	assert.Equal(t, 0, s.UnreadCount())
	for _, n := range s.Notifications() {
		assert.True(t, n.Read)
	}
}

func TestDeleteNotificationKeepsDedup(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	n, _ := s.AddNotification(orderCreated(t, "O1"))
	s.AddNotification(orderCreated(t, "O2"))

	assert.True(t, s.DeleteNotification(n.ID))
	assert.False(t, s.DeleteNotification(n.ID))

	list := s.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, "O2", list[0].OrderID)

	_, ok := s.AddNotification(orderCreated(t, "O1"))
	assert.False(t, ok)
}

func TestClearVersusReset(t *testing.T) {
	storage := store.NewMemStore()
	s := newTestStore(t, storage)

	s.AddNotification(orderCreated(t, "O1"))
	s.ClearAllNotifications()
	assert.Empty(t, s.Notifications())
	assert.Equal(t, 0, s.UnreadCount())

	_, ok := s.AddNotification(orderCreated(t, "O1"))
	assert.False(t, ok)

	s.ClearNotificationHistory()
	assert.Empty(t, s.Notifications())
	assert.Equal(t, 0, s.NotifiedCount())

	s.Flush()
	_, err := storage.Get(context.Background(), KeyNotifications)
	assert.ErrorIs(t, err, store.ErrNoRows)
	_, err = storage.Get(context.Background(), KeyNotifiedOrderIDs)
	assert.ErrorIs(t, err, store.ErrNoRows)

	_, ok = s.AddNotification(orderCreated(t, "O1"))
	assert.True(t, ok)
}

func TestNotificationsByType(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	s.AddNotification(orderCreated(t, "O1"))
	paid, err := model.NewPaymentReceived("O2", "Binh", 500)
	require.NoError(t, err)
	s.AddNotification(paid)

	payments := s.NotificationsByType(model.KindPaymentReceived)
	require.Len(t, payments, 1)
	assert.Equal(t, "O2", payments[0].OrderID)
	assert.Empty(t, s.NotificationsByType(model.KindOrderCancelled))
	assert.Len(t, s.Notifications(), 2)
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemStore()

	s := NewStore(ctx, storage, newTestFactory(), zap.NewNop())
	first, _ := s.AddNotification(orderCreated(t, "O1"))
	s.AddNotification(orderCreated(t, "O2"))
	s.MarkAsRead(first.ID)
	s.Close()

	var ids []string
	raw, err := storage.Get(ctx, KeyNotifiedOrderIDs)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &ids))
	assert.Equal(t, []string{"O1", "O2"}, ids)

	reloaded := newTestStore(t, storage)
	list := reloaded.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, "O2", list[0].OrderID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.True(t, list[1].Read)
	assert.Equal(t, first.Message, list[1].Message)
	assert.Equal(t, 1, reloaded.UnreadCount())

	_, ok := reloaded.AddNotification(orderCreated(t, "O2"))
	assert.False(t, ok)
}

func TestReloadCorruptNotificationsKeepsDedup(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemStore()
	require.NoError(t, storage.Put(ctx, KeyNotifications, []byte("{not json")))
	require.NoError(t, storage.Put(ctx, KeyNotifiedOrderIDs, []byte(`["O1","O2"]`)))

	s := newTestStore(t, storage)
	assert.Empty(t, s.Notifications())
	assert.Equal(t, 2, s.NotifiedCount())

	_, ok := s.AddNotification(orderCreated(t, "O1"))
	assert.False(t, ok)
}

func TestReloadCorruptDedupKeepsNotifications(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemStore()

	s := NewStore(ctx, storage, newTestFactory(), zap.NewNop())
	s.AddNotification(orderCreated(t, "O1"))
	s.Close()
	require.NoError(t, storage.Put(ctx, KeyNotifiedOrderIDs, []byte("42")))

	reloaded := newTestStore(t, storage)
	assert.Len(t, reloaded.Notifications(), 1)
	assert.Equal(t, 0, reloaded.NotifiedCount())
}

func TestReloadTruncatesOversizedList(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemStore()

	list := make([]model.Notification, 120)
	for i := range list {
		list[i] = model.Notification{ID: fmt.Sprintf("n%03d", i), Type: model.KindOrderCreated, Message: "m"}
	}
	raw, err := json.Marshal(list)
	require.NoError(t, err)
	require.NoError(t, storage.Put(ctx, KeyNotifications, raw))

	s := newTestStore(t, storage)
	require.Len(t, s.Notifications(), MaxNotifications)
	assert.Equal(t, "n000", s.Notifications()[0].ID)
}

type failingStorage struct {
	mu     sync.Mutex
	puts   int
	getErr error
}

func (f *failingStorage) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f *failingStorage) Put(context.Context, string, []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	return errors.New("disk full")
}
func (f *failingStorage) Delete(context.Context, string) error { return errors.New("disk full") }
func (f *failingStorage) Close() error                         { return nil }

func TestStorageFailuresAreAbsorbed(t *testing.T) {
	storage := &failingStorage{getErr: errors.New("connection refused")}
	s := newTestStore(t, storage)

	n, ok := s.AddNotification(orderCreated(t, "O1"))
	require.True(t, ok)
	s.Flush()
	assert.True(t, s.MarkAsRead(n.ID))
	s.ClearNotificationHistory()
	s.Flush()

	_, ok = s.AddNotification(orderCreated(t, "O1"))
	assert.True(t, ok)
	assert.Len(t, s.Notifications(), 1)

	storage.mu.Lock()
	defer storage.mu.Unlock()
	assert.Positive(t, storage.puts)
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	var got [][]model.Notification
	cancel := s.Subscribe(func(list []model.Notification) {
		got = append(got, list)
	})

	s.AddNotification(orderCreated(t, "O1"))
	s.AddNotification(orderCreated(t, "O1"))
	s.MarkAllAsRead()
	cancel()
	s.AddNotification(orderCreated(t, "O2"))

	require.Len(t, got, 2)
	require.Len(t, got[0], 1)
	assert.False(t, got[0][0].Read)
	assert.True(t, got[1][0].Read)
}

func TestSubscribeNeverReceivesOlderList(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	var lengths []int
	s.Subscribe(func(list []model.Notification) {
		lengths = append(lengths, len(list))
	})

	events := make([]model.Event, 50)
	for i := range events {
		events[i] = orderCreated(t, fmt.Sprintf("O%d", i))
	}

	var wg sync.WaitGroup
	for _, ev := range events {
		wg.Add(1)
		go func(ev model.Event) {
			defer wg.Done()
			s.AddNotification(ev)
		}(ev)
	}
	wg.Wait()

	// каждая мутация удлиняет ленту, поэтому длины строго растут
	require.NotEmpty(t, lengths)
	for i := 1; i < len(lengths); i++ {
		assert.Greater(t, lengths[i], lengths[i-1])
	}
	assert.Equal(t, 50, lengths[len(lengths)-1])
}

func TestPaymentScenario(t *testing.T) {
	s := newTestStore(t, store.NewMemStore())

	deposit, err := model.NewPaymentReceived("O1", "Anna", model.DepositAmount(10_000_000))
	require.NoError(t, err)
	n, ok := s.AddNotification(deposit)
	require.True(t, ok)
	require.NotNil(t, n.Amount)
	assert.Equal(t, int64(3_000_000), *n.Amount)
	assert.True(t, s.IsNotified("O1"))

	again, err := model.NewPaymentReceived("O1", "Anna", 1)
	require.NoError(t, err)
	_, ok = s.AddNotification(again)
	assert.False(t, ok)
	assert.Len(t, s.Notifications(), 1)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSplit(t *testing.T) {
	tests := []struct {
		total     int64
		deposit   int64
		remaining int64
	}{
		{total: 10_000_000, deposit: 3_000_000, remaining: 7_000_000},
		{total: 0, deposit: 0, remaining: 0},
		{total: 1_000_001, deposit: 300_000, remaining: 700_001},
		{total: 7, deposit: 2, remaining: 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.deposit, DepositAmount(tt.total))
		assert.Equal(t, tt.remaining, RemainingAmount(tt.total))
		assert.Equal(t, tt.total, DepositAmount(tt.total)+RemainingAmount(tt.total))
	}
}

func TestEventConstructors(t *testing.T) {
	_, err := NewOrderCreated("", "Anna")
	require.ErrorIs(t, err, ErrMissingOrderID)

	created, err := NewOrderCreated("O1", "Anna")
	require.NoError(t, err)
	assert.Equal(t, KindOrderCreated, created.Kind())
	assert.Equal(t, "O1", created.Order())

	_, err = NewPaymentReceived("O1", "Anna", -1)
	require.ErrorIs(t, err, ErrNegativeAmount)

	paid, err := NewPaymentReceived("O1", "Anna", 3_000_000)
	require.NoError(t, err)
	require.NotNil(t, paid.Amount)
	assert.Equal(t, int64(3_000_000), *paid.Amount)

	_, err = NewGenericEvent("", "", "", "")
	require.ErrorIs(t, err, ErrMissingKind)

	generic, err := NewGenericEvent("promo", "", "", "Sale")
	require.NoError(t, err)
	assert.Equal(t, Kind("promo"), generic.Kind())
	assert.Empty(t, generic.Order())

	var events []Event
	for _, ctor := range []func(string, string) (Event, error){
		func(id, name string) (Event, error) { return NewOrderCancelled(id, name) },
		func(id, name string) (Event, error) { return NewOrderCompleted(id, name) },
		func(id, name string) (Event, error) { return NewPaymentFailed(id, name) },
	} {
		_, err := ctor("", "Anna")
		require.ErrorIs(t, err, ErrMissingOrderID)
		ev, err := ctor("O2", "Anna")
		require.NoError(t, err)
		events = append(events, ev)
	}
	assert.Equal(t, KindOrderCancelled, events[0].Kind())
	assert.Equal(t, KindOrderCompleted, events[1].Kind())
	assert.Equal(t, KindPaymentFailed, events[2].Kind())
}

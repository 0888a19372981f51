package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	allowed := []struct {
		from   OrderStatus
		action Action
		to     OrderStatus
	}{
		{StatusPending, ActionConfirm, StatusConfirmed},
		{StatusConfirmed, ActionShip, StatusShipped},
		{StatusShipped, ActionDeliver, StatusDelivered},
		{StatusPending, ActionCancel, StatusCancelled},
		{StatusConfirmed, ActionCancel, StatusCancelled},
	}
	for _, tt := range allowed {
		got, err := Next(tt.from, tt.action)
		assert.NoError(t, err, "%s from %s", tt.action, tt.from)
		assert.Equal(t, tt.to, got)
	}

	rejected := []struct {
		from   OrderStatus
		action Action
	}{
		{StatusShipped, ActionCancel},
		{StatusDelivered, ActionCancel},
		{StatusCancelled, ActionCancel},
		{StatusPending, ActionShip},
		{StatusConfirmed, ActionConfirm},
		{StatusCancelled, ActionConfirm},
		{StatusDelivered, ActionDeliver},
		{StatusPending, Action("teleport")},
	}
	for _, tt := range rejected {
		got, err := Next(tt.from, tt.action)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s from %s", tt.action, tt.from)
		assert.Equal(t, tt.from, got)
	}
}

func TestCanCancel(t *testing.T) {
	assert.True(t, CanCancel(StatusPending))
	assert.True(t, CanCancel(StatusConfirmed))
	assert.False(t, CanCancel(StatusShipped))
	assert.False(t, CanCancel(StatusDelivered))
	assert.False(t, CanCancel(StatusCancelled))
}

func TestSourcesOf(t *testing.T) {
	assert.ElementsMatch(t, []OrderStatus{StatusPending, StatusConfirmed}, SourcesOf(ActionCancel))
	assert.Empty(t, SourcesOf(Action("unknown")))
}

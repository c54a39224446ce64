package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tina/internal/eew"
)

func normal(id string, number uint32) *eew.Event {
	return &eew.Event{
		ID:     id,
		Number: number,
		Kind:   eew.KindNormal,
		Detail: &eew.Detail{WarningStatus: eew.WarningStatusForecast},
	}
}

func cancel(id string, number uint32) *eew.Event {
	return &eew.Event{ID: id, Number: number, Kind: eew.KindCancel}
}

func TestHistoryRejectsReordering(t *testing.T) {
	h := New(128)

	_, ok := h.Append(normal("A", 1))
	assert.True(t, ok)

	_, ok = h.Append(normal("A", 3))
	assert.True(t, ok)

	_, ok = h.Append(normal("A", 2))
	assert.False(t, ok)

	_, ok = h.Append(normal("A", 3))
	assert.False(t, ok)
}

func TestHistoryCancelOverridesEqualNumber(t *testing.T) {
	h := New(128)

	_, ok := h.Append(normal("A", 2))
	assert.True(t, ok)

	_, ok = h.Append(cancel("A", 2))
	assert.True(t, ok)

	_, ok = h.Append(cancel("A", 2))
	assert.False(t, ok)
}

func TestHistoryAppendIdempotentBeyondFirstSuccess(t *testing.T) {
	h := New(128)
	e := normal("A", 1)

	_, ok := h.Append(e)
	require.True(t, ok)

	_, ok = h.Append(e)
	assert.False(t, ok)
}

func TestHistoryEvictsOldestIDFIFO(t *testing.T) {
	h := New(2)

	h.Append(normal("A", 1))
	h.Append(normal("B", 1))
	h.Append(normal("C", 1))

	assert.Equal(t, 2, h.Len())
	assert.Nil(t, h.Sequence("A"))
	assert.NotNil(t, h.Sequence("B"))
	assert.NotNil(t, h.Sequence("C"))
}

func TestHistoryDifferentIDsIndependent(t *testing.T) {
	h := New(128)

	_, okA := h.Append(normal("A", 5))
	_, okB := h.Append(normal("B", 1))
	assert.True(t, okA)
	assert.True(t, okB)
}

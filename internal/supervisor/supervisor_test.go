package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tina/internal/condition"
	"tina/internal/eew"
	"tina/internal/router"
)

func TestModeratorBackoffSequence(t *testing.T) {
	m := NewModeratorWithRate(10, 2)
	assert.Equal(t, time.Second, m.NextInterval())

	m.AddFailure()
	assert.Equal(t, 2*time.Second, m.NextInterval())

	m.AddFailure()
	assert.Equal(t, 4*time.Second, m.NextInterval())

	m.Reset()
	assert.Equal(t, time.Second, m.NextInterval())
}

func TestModeratorSaturatesAtMaxCount(t *testing.T) {
	m := NewModeratorWithRate(2, 2)
	m.AddFailure()
	m.AddFailure()
	m.AddFailure() // beyond max count, must not keep climbing
	assert.Equal(t, 4*time.Second, m.NextInterval())
}

func TestDrainAppendsToHistoryAndFansOutToRouters(t *testing.T) {
	r := router.New("dest", condition.Constant(true), nil)
	s := New(nil, nil, 128, []*router.Router{r})

	ingest := make(chan *eew.Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.drain(ctx, ingest)

	ingest <- &eew.Event{ID: "A", Number: 1, Kind: eew.KindCancel}

	select {
	case d := <-r.Deliveries():
		assert.Equal(t, "A", d.Latest.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fan-out")
	}

	require.Equal(t, 1, s.History().Len())
}

func TestDrainRejectsReorderedEvents(t *testing.T) {
	r := router.New("dest", condition.Constant(true), nil)
	s := New(nil, nil, 128, []*router.Router{r})

	ingest := make(chan *eew.Event, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.drain(ctx, ingest)

	ingest <- &eew.Event{ID: "A", Number: 3, Kind: eew.KindCancel}
	<-r.Deliveries()

	ingest <- &eew.Event{ID: "A", Number: 1, Kind: eew.KindCancel} // stale, must be dropped silently

	select {
	case <-r.Deliveries():
		t.Fatal("reordered event should never reach a router")
	case <-time.After(200 * time.Millisecond):
	}
}

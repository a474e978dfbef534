package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vpnwatch/pkg/types"
)

func collect(sub Subscriber) []*Event {
	var out []*Event
	for ev := range sub {
		out = append(out, ev)
	}
	return out
}

func TestNewEvent(t *testing.T) {
	client := types.NewClient("alice", "10.0.0.1", time.Unix(0, 0), 0, 0)
	ev := NewEvent(EventClientConnected, client, "hello")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, EventClientConnected, ev.Type)
	assert.Same(t, client, ev.Client)
	assert.Equal(t, "hello", ev.Message)
}

func TestBroker_PublishOrder(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	b.Start()

	for _, msg := range []string{"one", "two", "three"} {
		require.True(t, b.Publish(NewEvent(EventMonitorAlert, nil, msg)))
	}
	b.Stop()

	got := collect(sub)
	require.Len(t, got, 3)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, "two", got[1].Message)
	assert.Equal(t, "three", got[2].Message)
	for _, ev := range got {
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestBroker_FanOut(t *testing.T) {
	b := NewBroker()
	first := b.Subscribe()
	second := b.Subscribe()
	b.Start()

	b.Publish(&Event{Type: EventClientDisconnected})
	b.Stop()

	assert.Len(t, collect(first), 1)
	assert.Len(t, collect(second), 1)
}

func TestBroker_PublishAfterStop(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()

	assert.False(t, b.Publish(&Event{Type: EventMonitorAlert}))
}

func TestBroker_StopWithoutStart(t *testing.T) {
	b := NewBroker()

	done := make(chan struct{})
	go func() {
		b.Stop()
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a broker that was never started")
	}
}

func TestBroker_SlowSubscriberReceivesEverything(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	b.Start()

	got := make(chan []*Event, 1)
	go func() {
		var out []*Event
		for ev := range sub {
			time.Sleep(100 * time.Microsecond)
			out = append(out, ev)
		}
		got <- out
	}()

	total := 3*subscriberBuffer + eventBuffer
	for i := 0; i < total; i++ {
		require.True(t, b.Publish(NewEvent(EventMonitorAlert, nil, fmt.Sprint(i))))
	}
	b.Stop()

	delivered := <-got
	require.Len(t, delivered, total)
	for i, ev := range delivered {
		assert.Equal(t, fmt.Sprint(i), ev.Message)
	}
}

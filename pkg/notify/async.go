package notify

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/vpnwatch/pkg/events"
	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/metrics"
	"github.com/cuemby/vpnwatch/pkg/types"
)

// Async hands notifications to a broker so the caller never waits on the
// wrapped sink. Events reach the wrapped sink in publish order, and none are
// lost before Stop however slow the sink is.
type Async struct {
	next   Sink
	broker *events.Broker
	sub    events.Subscriber
	wg     sync.WaitGroup
	logger zerolog.Logger

	mu     sync.Mutex
	ready  *sync.Cond
	queue  []*events.Event
	closed bool
}

// NewAsync starts dispatching to next on a background goroutine
func NewAsync(next Sink) *Async {
	a := &Async{
		next:   next,
		broker: events.NewBroker(),
		logger: log.WithComponent("notify"),
	}
	a.ready = sync.NewCond(&a.mu)

	a.sub = a.broker.Subscribe()
	a.broker.Start()

	a.wg.Add(2)
	go a.pump()
	go a.dispatch()

	return a
}

func (a *Async) ClientConnected(c *types.Client) {
	a.publish(events.NewEvent(events.EventClientConnected, c, ""))
}

func (a *Async) ClientDisconnected(c *types.Client) {
	a.publish(events.NewEvent(events.EventClientDisconnected, c, ""))
}

func (a *Async) Alert(message string) {
	a.publish(events.NewEvent(events.EventMonitorAlert, nil, message))
}

// Stop delivers anything still queued and waits for the wrapped sink to return
func (a *Async) Stop() {
	a.broker.Stop()
	a.wg.Wait()
}

// Pending returns how many notifications are waiting for the wrapped sink
func (a *Async) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

func (a *Async) publish(ev *events.Event) {
	if !a.broker.Publish(ev) {
		a.dropped(ev)
	}
}

func (a *Async) dropped(ev *events.Event) {
	metrics.NotificationsTotal.WithLabelValues(metrics.ResultDropped).Inc()
	a.logger.Warn().Str("event", string(ev.Type)).Str("id", ev.ID).Msg("Notification dropped")
}

// pump moves events off the subscription into the queue so the broker
// never waits on the wrapped sink
func (a *Async) pump() {
	defer a.wg.Done()

	for ev := range a.sub {
		a.mu.Lock()
		a.queue = append(a.queue, ev)
		a.mu.Unlock()
		a.ready.Signal()
	}

	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.ready.Signal()
}

// pop blocks until an event is queued. It returns false once the
// subscription is closed and the queue is empty.
func (a *Async) pop() (*events.Event, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.queue) == 0 && !a.closed {
		a.ready.Wait()
	}
	if len(a.queue) == 0 {
		return nil, false
	}
	ev := a.queue[0]
	a.queue[0] = nil
	a.queue = a.queue[1:]
	return ev, true
}

func (a *Async) dispatch() {
	defer a.wg.Done()

	for {
		ev, ok := a.pop()
		if !ok {
			return
		}
		switch ev.Type {
		case events.EventClientConnected:
			a.next.ClientConnected(ev.Client)
		case events.EventClientDisconnected:
			a.next.ClientDisconnected(ev.Client)
		case events.EventMonitorAlert:
			a.next.Alert(ev.Message)
		}
	}
}

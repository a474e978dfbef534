package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/vpnwatch/pkg/types"
)

// EventType represents the type of event
type EventType string

const (
	EventClientConnected    EventType = "client.connected"
	EventClientDisconnected EventType = "client.disconnected"
	EventMonitorAlert       EventType = "monitor.alert"
)

// Event is a single monitor occurrence
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Client    *types.Client
}

// NewEvent creates an event with a fresh ID
func NewEvent(eventType EventType, client *types.Client, message string) *Event {
	return &Event{
		ID:      uuid.New().String(),
		Type:    eventType,
		Message: message,
		Client:  client,
	}
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

const (
	eventBuffer      = 100
	subscriberBuffer = 50
)

// Broker manages event subscriptions and distribution.
//
// Delivery never skips a subscriber: a full subscriber channel stalls
// distribution until it is read, so every subscriber must keep receiving
// until its channel is closed. Subscriber channels are closed when the
// broker stops, after any events already queued have been delivered.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	done        chan struct{}
	started     atomic.Bool
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, eventBuffer),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	if b.started.CompareAndSwap(false, true) {
		go b.run()
	}
}

// Stop stops the broker and waits for queued events to be distributed
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	if b.started.Load() {
		<-b.done
	}
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, subscriberBuffer)
	b.subscribers[sub] = true
	return sub
}

// Publish queues an event for all subscribers. It reports false once the
// broker has been stopped.
func (b *Broker) Publish(event *Event) bool {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-b.stopCh:
		return false
	default:
	}

	select {
	case b.eventCh <- event:
		return true
	case <-b.stopCh:
		return false
	}
}

func (b *Broker) run() {
	defer close(b.done)

	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			b.drain()
			return
		}
	}
}

func (b *Broker) drain() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		default:
			b.closeSubscribers()
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		sub <- event
	}
}

func (b *Broker) closeSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		close(sub)
		delete(b.subscribers, sub)
	}
}

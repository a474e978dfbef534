/*
Package events provides an in-memory event broker.

The reconciler's sinks are called inline on the polling goroutine. When a
sink is slow (an HTTP push service, say) the notify package routes events
through a Broker so a tick never waits on delivery.

No subscriber ever misses an event. Each has its own buffered channel, and
when one fills up distribution waits for it to be read, so a subscriber
must keep receiving until its channel closes. Stop flushes whatever is
still queued and then closes every subscriber channel, so a consumer can
simply range over its subscription:

	broker := events.NewBroker()
	sub := broker.Subscribe()
	broker.Start()

	go func() {
		for ev := range sub {
			handle(ev)
		}
	}()

	broker.Publish(events.NewEvent(events.EventMonitorAlert, nil, "3 consecutive failed calls"))
	broker.Stop()
*/
package events

/*
Package notify delivers client and alert notifications.

Sink is the three-method interface the reconciler drives. Implementations
never return errors; a failed delivery is logged and counted in
vpnwatch_notifications_total and otherwise forgotten.

  - Pushover posts each message to the Pushover API, rate limited.
  - Log writes the same text to the structured log (used for --dry-run).
  - Multi fans out to several sinks.
  - Async puts an events.Broker and an unbounded queue between the caller
    and a slow sink. Nothing is dropped until Stop.

Formatter renders the message text:

	client alice has connected from ip address 203.0.113.7 on 2024-03-01 09:15:00 local time
	client alice has disconnected. They received 1.5 MB of data and sent 82 kB of data. Their session lasted approximately 2.5 hours
*/
package notify

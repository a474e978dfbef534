/*
Package reconciler turns successive OpenVPN status polls into client
connect and disconnect notifications.

A Reconciler owns the last known roster and the consecutive-failure
count. Each tick (Update) polls the StatusSource once:

  - on failure the count grows, the roster is left alone, and when the
    count reaches the threshold the sink receives a single alert. Another
    alert needs an intervening success, unless RealertEvery is set.
  - on success the count resets and the new roster is diffed against the
    stored one. Disconnects are emitted before connects, each in name
    order, and the new roster replaces the old one wholesale.

The first successful poll (normally Bootstrap at startup) only seeds the
roster, so clients already connected when the process starts are adopted
without notifications.

Start runs Update on a ticker until Stop; Stop cancels an in-flight poll.
*/
package reconciler

/*
Package types defines the data model shared by the vpnwatch packages.

# Core Types

Client:
  - One connected VPN session as reported by a single status poll
  - Immutable after construction
  - Keyed by Name, the common name the server assigned to the session

Roster:
  - Map from client name to its last observed Client record
  - Replaced wholesale after every successful poll, never patched
  - Placeholder rows named UNDEF never enter a roster

Changes:
  - Result of Diff(previous, current)
  - Disconnected carries the previous record (last known counters)
  - Connected carries the current record

# Reconciliation Semantics

	previous = {alice, bob}
	current  = {bob, carol}

	Diff(previous, current)
	  Disconnected: [alice]   (previous record)
	  Connected:    [carol]   (current record)
	  bob:          no event, even when its byte counters moved

Both slices are ordered by client name so that the notifications of a single
tick are emitted in a repeatable order.

# Usage

	roster := types.NewRoster()
	roster.Add(types.NewClient("alice", "10.0.0.5", time.Unix(1700000000, 0), 100, 200))

	changes := types.Diff(previous, roster)
	for _, c := range changes.Disconnected {
		sink.ClientDisconnected(c)
	}
	for _, c := range changes.Connected {
		sink.ClientConnected(c)
	}
*/
package types

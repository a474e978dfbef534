package types

import (
	"sort"
	"time"
)

// UndefinedName is the name the management interface reports for rows
// that do not belong to a real client
const UndefinedName = "UNDEF"

// Client represents one connected VPN session at the instant it was observed.
// A Client is never mutated after construction; a changed session shows up
// as a disconnect of the old record and a connect of the new one.
type Client struct {
	Name           string    // Common name assigned by the server, unique per session
	Address        string    // Real address, host portion only
	ConnectedSince time.Time // Session start
	BytesReceived  float64
	BytesSent      float64
}

// NewClient creates a client record
func NewClient(name, address string, connectedSince time.Time, received, sent float64) *Client {
	return &Client{
		Name:           name,
		Address:        address,
		ConnectedSince: connectedSince,
		BytesReceived:  received,
		BytesSent:      sent,
	}
}

// Undefined reports whether the record is a placeholder row
func (c *Client) Undefined() bool {
	return c.Name == "" || c.Name == UndefinedName
}

// SessionDuration returns how long the session has lasted as of now
func (c *Client) SessionDuration(now time.Time) time.Duration {
	return now.Sub(c.ConnectedSince)
}

// Roster maps a client name to its most recently observed record
type Roster map[string]*Client

// NewRoster creates an empty roster
func NewRoster() Roster {
	return make(Roster)
}

// Add inserts a client, replacing any record with the same name.
// Undefined placeholder records are ignored.
func (r Roster) Add(c *Client) bool {
	if c == nil || c.Undefined() {
		return false
	}
	r[c.Name] = c
	return true
}

// Names returns the client names in ascending order
func (r Roster) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clients returns the records ordered by name
func (r Roster) Clients() []*Client {
	clients := make([]*Client, 0, len(r))
	for _, name := range r.Names() {
		clients = append(clients, r[name])
	}
	return clients
}

// Clone returns a shallow copy. Records are shared since they are immutable.
func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for name, c := range r {
		out[name] = c
	}
	return out
}

// Changes is the outcome of reconciling two rosters
type Changes struct {
	// Disconnected holds the last known record of every client that is gone
	Disconnected []*Client
	// Connected holds the new record of every client that appeared
	Connected []*Client
}

// Empty reports whether the diff produced no events
func (c Changes) Empty() bool {
	return len(c.Disconnected) == 0 && len(c.Connected) == 0
}

// Diff compares the previous roster with the current one. Clients present in
// both are unchanged regardless of their counters. Both result slices are
// ordered by client name.
func Diff(previous, current Roster) Changes {
	var changes Changes

	for _, name := range previous.Names() {
		if _, ok := current[name]; !ok {
			changes.Disconnected = append(changes.Disconnected, previous[name])
		}
	}

	for _, name := range current.Names() {
		if _, ok := previous[name]; !ok {
			changes.Connected = append(changes.Connected, current[name])
		}
	}

	return changes
}

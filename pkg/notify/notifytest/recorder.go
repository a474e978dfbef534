// Package notifytest provides a recording notify.Sink for tests.
package notifytest

import (
	"sync"

	"github.com/cuemby/vpnwatch/pkg/types"
)

// Kind identifies which sink method was called
type Kind string

const (
	KindConnected    Kind = "connected"
	KindDisconnected Kind = "disconnected"
	KindAlert        Kind = "alert"
)

// Call is one recorded sink invocation
type Call struct {
	Kind    Kind
	Client  *types.Client
	Message string
}

// Recorder records every notification it receives
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) ClientConnected(c *types.Client) {
	r.record(Call{Kind: KindConnected, Client: c})
}

func (r *Recorder) ClientDisconnected(c *types.Client) {
	r.record(Call{Kind: KindDisconnected, Client: c})
}

func (r *Recorder) Alert(message string) {
	r.record(Call{Kind: KindAlert, Message: message})
}

func (r *Recorder) record(call Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Calls returns every call in the order received
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Connected returns the names passed to ClientConnected, in order
func (r *Recorder) Connected() []string {
	return r.names(KindConnected)
}

// Disconnected returns the names passed to ClientDisconnected, in order
func (r *Recorder) Disconnected() []string {
	return r.names(KindDisconnected)
}

// Alerts returns every alert message, in order
func (r *Recorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, call := range r.calls {
		if call.Kind == KindAlert {
			out = append(out, call.Message)
		}
	}
	return out
}

// Reset forgets all recorded calls
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) names(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, call := range r.calls {
		if call.Kind == kind {
			out = append(out, call.Client.Name)
		}
	}
	return out
}

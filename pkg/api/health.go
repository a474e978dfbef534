package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/metrics"
	"github.com/cuemby/vpnwatch/pkg/types"
)

// RosterSource exposes the monitor's current roster
type RosterSource interface {
	Roster() types.Roster
	Failures() int
}

// HealthServer provides HTTP health, metrics and roster endpoints
type HealthServer struct {
	checker *metrics.HealthChecker
	roster  RosterSource
	mux     *http.ServeMux

	mu     sync.Mutex
	server *http.Server
}

// NewHealthServer creates a new health check HTTP server. roster may be nil,
// in which case /clients is not served.
func NewHealthServer(checker *metrics.HealthChecker, roster RosterSource) *HealthServer {
	if checker == nil {
		checker = metrics.Default()
	}

	mux := http.NewServeMux()
	hs := &HealthServer{
		checker: checker,
		roster:  roster,
		mux:     mux,
	}

	// Register endpoints
	mux.Handle("/health", getOnly(checker.HealthHandler()))
	mux.Handle("/health/live", getOnly(checker.LivenessHandler()))
	mux.Handle("/ready", getOnly(checker.ReadyHandler()))
	mux.Handle("/metrics", metrics.Handler())
	if roster != nil {
		mux.Handle("/clients", getOnly(http.HandlerFunc(hs.clientsHandler)))
	}

	return hs
}

// Start serves on addr until Shutdown is called
func (hs *HealthServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return hs.Serve(ln)
}

// Serve serves on an existing listener until Shutdown is called
func (hs *HealthServer) Serve(ln net.Listener) error {
	server := &http.Server{
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hs.mu.Lock()
	hs.server = server
	hs.mu.Unlock()

	logger := log.WithComponent("api")
	logger.Info().Str("addr", ln.Addr().String()).Msg("Health server listening")

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	hs.mu.Lock()
	server := hs.server
	hs.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// ClientResponse is one connected client
type ClientResponse struct {
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	ConnectedSince time.Time `json:"connected_since"`
	BytesReceived  float64   `json:"bytes_received"`
	BytesSent      float64   `json:"bytes_sent"`
}

// ClientsResponse is the /clients payload
type ClientsResponse struct {
	Timestamp time.Time        `json:"timestamp"`
	Failures  int              `json:"consecutive_failures"`
	Clients   []ClientResponse `json:"clients"`
}

// clientsHandler lists the last known roster in name order
func (hs *HealthServer) clientsHandler(w http.ResponseWriter, r *http.Request) {
	roster := hs.roster.Roster()

	response := ClientsResponse{
		Timestamp: time.Now(),
		Failures:  hs.roster.Failures(),
		Clients:   make([]ClientResponse, 0, len(roster)),
	}
	for _, c := range roster.Clients() {
		response.Clients = append(response.Clients, ClientResponse{
			Name:           c.Name,
			Address:        c.Address,
			ConnectedSince: c.ConnectedSince,
			BytesReceived:  c.BytesReceived,
			BytesSent:      c.BytesSent,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Component names reported by vpnwatch
const (
	ComponentOpenVPN  = "openvpn"
	ComponentNotifier = "notifier"
)

// ComponentState is the health of a single component
type ComponentState string

const (
	StateHealthy   ComponentState = "healthy"
	StateDegraded  ComponentState = "degraded"
	StateUnhealthy ComponentState = "unhealthy"
)

// HealthStatus represents the health status reported over HTTP
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "degraded", "unhealthy", "ready", "not_ready"
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth tracks the health of a single component
type ComponentHealth struct {
	Name    string
	State   ComponentState
	Message string
	Updated time.Time
}

// HealthChecker aggregates component health
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	critical   []string
	startTime  time.Time
	version    string
}

// NewHealthChecker creates a checker whose readiness waits on the critical components
func NewHealthChecker(critical ...string) *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		critical:   critical,
		startTime:  time.Now(),
	}
}

var defaultChecker = NewHealthChecker(ComponentOpenVPN, ComponentNotifier)

// Default returns the process-wide health checker
func Default() *HealthChecker {
	return defaultChecker
}

// SetVersion sets the version string for health responses
func (h *HealthChecker) SetVersion(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = version
}

// SetComponent records the state of a component
func (h *HealthChecker) SetComponent(name string, state ComponentState, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.components[name] = ComponentHealth{
		Name:    name,
		State:   state,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent records a component as healthy or unhealthy
func (h *HealthChecker) UpdateComponent(name string, healthy bool, message string) {
	state := StateHealthy
	if !healthy {
		state = StateUnhealthy
	}
	h.SetComponent(name, state, message)
}

// Component returns the recorded health of a component
func (h *HealthChecker) Component(name string) (ComponentHealth, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	comp, ok := h.components[name]
	return comp, ok
}

// GetHealth returns the overall health status. Any unhealthy component
// makes the whole process unhealthy; otherwise any degraded component
// makes it degraded.
func (h *HealthChecker) GetHealth() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := StateHealthy
	components := make(map[string]string)

	for name, comp := range h.components {
		switch comp.State {
		case StateUnhealthy:
			status = StateUnhealthy
			components[name] = "unhealthy: " + comp.Message
		case StateDegraded:
			if status == StateHealthy {
				status = StateDegraded
			}
			components[name] = "degraded: " + comp.Message
		default:
			components[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:     string(status),
		Timestamp:  time.Now(),
		Components: components,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// GetReadiness returns readiness status (checks if critical components are up)
func (h *HealthChecker) GetReadiness() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "ready"
	message := ""
	components := make(map[string]string)

	critical := append([]string(nil), h.critical...)
	sort.Strings(critical)

	for _, name := range critical {
		comp, exists := h.components[name]
		switch {
		case !exists:
			status = "not_ready"
			message = "waiting for " + name + " initialization"
			components[name] = "not registered"
		case comp.State == StateUnhealthy:
			status = "not_ready"
			message = "waiting for " + name
			components[name] = "not ready: " + comp.Message
		default:
			components[name] = "ready"
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// HealthHandler returns an HTTP handler for the /health endpoint
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.GetHealth()

		statusCode := http.StatusOK
		if health.Status == string(StateUnhealthy) {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, health)
	}
}

// ReadyHandler returns an HTTP handler for the /ready endpoint
func (h *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := h.GetReadiness()

		statusCode := http.StatusOK
		if readiness.Status != "ready" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, readiness)
	}
}

// LivenessHandler returns a simple liveness check (always returns 200 if process is running)
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(h.startTime).String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

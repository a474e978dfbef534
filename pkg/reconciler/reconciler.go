package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vpnwatch/pkg/health"
	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/metrics"
	"github.com/cuemby/vpnwatch/pkg/notify"
	"github.com/cuemby/vpnwatch/pkg/types"
)

// AlertFormat is the escalation message; %d is the failure threshold
const AlertFormat = "%d consecutive failed calls to openvpn server, please check the error logs"

// DefaultInterval is the time between polls
const DefaultInterval = 5 * time.Second

// StatusSource fetches the current client roster
type StatusSource interface {
	Status(ctx context.Context) (types.Roster, error)
}

// Config controls polling and escalation
type Config struct {
	// Interval between ticks of the polling loop
	Interval time.Duration

	// FailureThreshold is the failure streak length that raises an alert
	FailureThreshold int

	// RealertEvery repeats the alert every N further failures; zero alerts
	// once per streak
	RealertEvery int

	// Clock stamps poll results
	Clock func() time.Time
}

// DefaultConfig returns the standard polling configuration
func DefaultConfig() Config {
	policy := health.DefaultConfig()
	return Config{
		Interval:         DefaultInterval,
		FailureThreshold: policy.Threshold,
		RealertEvery:     policy.RealertEvery,
		Clock:            time.Now,
	}
}

// Reconciler diffs successive rosters into client events and escalates
// when the status source keeps failing.
type Reconciler struct {
	source  StatusSource
	sink    notify.Sink
	cfg     Config
	policy  health.Config
	checker *metrics.HealthChecker
	logger  zerolog.Logger

	// mu serialises ticks
	mu sync.Mutex

	// stateMu guards the fields below so readers never wait on a poll
	stateMu sync.RWMutex
	roster  types.Roster
	seeded  bool
	status  *health.Status

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a reconciler. Zero Config fields take their defaults.
func New(source StatusSource, sink notify.Sink, cfg Config) *Reconciler {
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.RealertEvery < 0 {
		cfg.RealertEvery = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}

	return &Reconciler{
		source: source,
		sink:   sink,
		cfg:    cfg,
		policy: health.Config{
			Threshold:    cfg.FailureThreshold,
			RealertEvery: cfg.RealertEvery,
		},
		checker: metrics.Default(),
		logger:  log.WithComponent("reconciler"),
		roster:  types.NewRoster(),
		status:  health.NewStatus(),
	}
}

// WithHealth reports the monitor state to the given health checker
func (r *Reconciler) WithHealth(h *metrics.HealthChecker) *Reconciler {
	r.checker = h
	return r
}

// Bootstrap performs the startup poll and adopts its roster without
// emitting events. A failure here means no baseline exists.
func (r *Reconciler) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := metrics.NewTimer()
	roster, err := r.source.Status(ctx)
	timer.ObserveDuration(metrics.PollDuration)
	if err != nil {
		metrics.PollsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return fmt.Errorf("initial status poll failed: %w", err)
	}
	metrics.PollsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	roster = sanitize(roster)

	r.stateMu.Lock()
	r.status.Update(r.result(nil, timer.Duration()), r.policy)
	r.replace(roster)
	r.stateMu.Unlock()

	r.reportHealthy(len(roster))
	r.logger.Info().Int("clients", len(roster)).Msg("Initial roster adopted")
	return nil
}

// Update runs one tick: poll, then either count the failure or diff the
// new roster against the stored one and notify the sink.
func (r *Reconciler) Update(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := metrics.NewTimer()
	roster, err := r.source.Status(ctx)
	timer.ObserveDuration(metrics.PollDuration)

	if err != nil {
		// A poll abandoned by the caller says nothing about the server
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.logger.Debug().Err(err).Msg("Status poll cancelled")
			return ctxErr
		}
		r.recordFailure(err, timer.Duration())
		return err
	}
	r.recordSuccess(roster, timer.Duration())
	return nil
}

func (r *Reconciler) recordFailure(err error, took time.Duration) {
	metrics.PollsTotal.WithLabelValues(metrics.ResultFailure).Inc()

	r.stateMu.Lock()
	transition := r.status.Update(r.result(err, took), r.policy)
	failures := r.status.ConsecutiveFailures
	r.stateMu.Unlock()

	metrics.ConsecutiveFailures.Set(float64(failures))
	r.logger.Warn().Err(err).Int("failures", failures).Msg("Status poll failed")

	message := fmt.Sprintf("%d consecutive failures: %v", failures, err)
	if failures >= r.cfg.FailureThreshold {
		r.checker.UpdateComponent(metrics.ComponentOpenVPN, false, message)
	} else {
		r.checker.SetComponent(metrics.ComponentOpenVPN, metrics.StateDegraded, message)
	}

	if transition == health.TransitionDegraded {
		r.logger.Error().Int("failures", failures).Msg("OpenVPN monitor degraded")
	}

	if r.policy.ShouldAlert(failures) {
		metrics.AlertsTotal.Inc()
		r.sink.Alert(fmt.Sprintf(AlertFormat, r.cfg.FailureThreshold))
	}
}

func (r *Reconciler) recordSuccess(roster types.Roster, took time.Duration) {
	metrics.PollsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	roster = sanitize(roster)

	r.stateMu.Lock()
	transition := r.status.Update(r.result(nil, took), r.policy)
	var changes types.Changes
	if r.seeded {
		changes = types.Diff(r.roster, roster)
	}
	r.replace(roster)
	r.stateMu.Unlock()

	r.reportHealthy(len(roster))
	if transition == health.TransitionRecovered {
		r.logger.Info().Msg("OpenVPN monitor recovered")
	}

	for _, c := range changes.Disconnected {
		metrics.ClientEventsTotal.WithLabelValues(metrics.EventDisconnected).Inc()
		r.logger.Info().Str("client", c.Name).Msg("Client disconnected")
		r.sink.ClientDisconnected(c)
	}
	for _, c := range changes.Connected {
		metrics.ClientEventsTotal.WithLabelValues(metrics.EventConnected).Inc()
		r.logger.Info().Str("client", c.Name).Str("address", c.Address).Msg("Client connected")
		r.sink.ClientConnected(c)
	}
}

// replace must be called with stateMu held
func (r *Reconciler) replace(roster types.Roster) {
	r.roster = roster
	r.seeded = true
}

// sanitize drops placeholder rows a source may have let through
func sanitize(roster types.Roster) types.Roster {
	out := types.NewRoster()
	for _, c := range roster {
		out.Add(c)
	}
	return out
}

func (r *Reconciler) result(err error, took time.Duration) health.Result {
	res := health.Result{
		Healthy:   err == nil,
		CheckedAt: r.cfg.Clock(),
		Duration:  took,
	}
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

func (r *Reconciler) reportHealthy(clients int) {
	metrics.ConsecutiveFailures.Set(0)
	metrics.ConnectedClients.Set(float64(clients))
	r.checker.UpdateComponent(metrics.ComponentOpenVPN, true, fmt.Sprintf("%d clients connected", clients))
}

// Start begins the polling loop. It is a no-op if the loop is running.
func (r *Reconciler) Start() {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
}

// Stop cancels any in-flight poll and waits for the loop to exit
func (r *Reconciler) Stop() {
	r.loopMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reconciler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Failures are counted and logged inside Update
			_ = r.Update(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Roster returns a copy of the stored roster
func (r *Reconciler) Roster() types.Roster {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.roster.Clone()
}

// Failures returns the current consecutive failure count
func (r *Reconciler) Failures() int {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.status.ConsecutiveFailures
}

// Healthy reports whether the failure streak is below the threshold
func (r *Reconciler) Healthy() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.status.Healthy
}

// Seeded reports whether a roster has been adopted yet
func (r *Reconciler) Seeded() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.seeded
}

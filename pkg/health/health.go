package health

import (
	"context"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeGreeting CheckType = "greeting"
	CheckTypeStatus   CheckType = "status"
)

// Result represents the outcome of a single check or poll
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// Config controls when a run of failures escalates
type Config struct {
	// Threshold is the number of consecutive failures that triggers an alert
	Threshold int

	// RealertEvery repeats the alert every N failures past the threshold.
	// Zero alerts once per failure streak.
	RealertEvery int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Threshold:    3,
		RealertEvery: 0,
	}
}

// ShouldAlert reports whether reaching the given failure count warrants an alert
func (c Config) ShouldAlert(failures int) bool {
	if c.Threshold <= 0 || failures < c.Threshold {
		return false
	}
	if failures == c.Threshold {
		return true
	}
	return c.RealertEvery > 0 && (failures-c.Threshold)%c.RealertEvery == 0
}

// Transition describes how an update moved the status
type Transition int

const (
	// TransitionNone means the health state did not change
	TransitionNone Transition = iota
	// TransitionDegraded means the failure streak just reached the threshold
	TransitionDegraded
	// TransitionRecovered means a success ended a degraded streak
	TransitionRecovered
)

// String returns the transition name
func (t Transition) String() string {
	switch t {
	case TransitionDegraded:
		return "degraded"
	case TransitionRecovered:
		return "recovered"
	default:
		return "none"
	}
}

// Status tracks the failure streak of a monitored endpoint
type Status struct {
	// ConsecutiveFailures tracks the number of consecutive failed checks
	ConsecutiveFailures int

	// ConsecutiveSuccesses tracks the number of consecutive successful checks
	ConsecutiveSuccesses int

	// LastCheck is the timestamp of the last check
	LastCheck time.Time

	// LastResult is the result of the last check
	LastResult Result

	// Healthy is false while the failure streak is at or past the threshold
	Healthy bool
}

// NewStatus creates a new Status with default values
func NewStatus() *Status {
	return &Status{
		Healthy: true, // Assume healthy until proven otherwise
	}
}

// Update updates the status based on a new result
func (s *Status) Update(result Result, config Config) Transition {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0

		if !s.Healthy {
			s.Healthy = true
			return TransitionRecovered
		}
		return TransitionNone
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0

	if config.Threshold > 0 && s.ConsecutiveFailures == config.Threshold {
		s.Healthy = false
		return TransitionDegraded
	}
	return TransitionNone
}

package metrics

import (
	"time"

	"github.com/cuemby/vpnwatch/pkg/types"
)

// StateSource exposes the monitor state the collector publishes
type StateSource interface {
	Roster() types.Roster
	Failures() int
}

// Collector periodically copies monitor state into gauges
type Collector struct {
	source   StateSource
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StateSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.Collect()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

// Collect updates the gauges once
func (c *Collector) Collect() {
	ConnectedClients.Set(float64(len(c.source.Roster())))
	ConsecutiveFailures.Set(float64(c.source.Failures()))
}

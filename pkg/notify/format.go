package notify

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cuemby/vpnwatch/pkg/types"
)

// TimeLayout is how connection times appear in messages
const TimeLayout = "2006-01-02 15:04:05"

// Formatter renders client events as human-readable prose
type Formatter struct {
	Location *time.Location
	Now      func() time.Time
}

// NewFormatter creates a formatter using the host's local time zone
func NewFormatter() *Formatter {
	return &Formatter{
		Location: time.Local,
		Now:      time.Now,
	}
}

// Connected renders a connect notification
func (f *Formatter) Connected(c *types.Client) string {
	return fmt.Sprintf("client %s has connected from ip address %s on %s local time",
		c.Name,
		c.Address,
		c.ConnectedSince.In(f.location()).Format(TimeLayout),
	)
}

// Disconnected renders a disconnect notification
func (f *Formatter) Disconnected(c *types.Client) string {
	return fmt.Sprintf("client %s has disconnected. They received %s of data and sent %s of data. Their session lasted approximately %s",
		c.Name,
		FormatBytes(c.BytesReceived),
		FormatBytes(c.BytesSent),
		FormatDuration(c.SessionDuration(f.now())),
	)
}

func (f *Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f *Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// FormatBytes renders a byte counter with SI units ("82 B", "1.5 MB")
func FormatBytes(n float64) string {
	if n <= 0 || math.IsNaN(n) {
		return humanize.Bytes(0)
	}
	return humanize.Bytes(uint64(n))
}

// FormatDuration renders whole seconds as "N.N seconds", "N.N minutes" or
// "N.N hours". Negative durations (clock skew) render as zero.
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}

	value, unit := float64(seconds), "seconds"
	switch {
	case seconds >= 3600:
		value, unit = float64(seconds)/3600, "hours"
	case seconds >= 60:
		value, unit = float64(seconds)/60, "minutes"
	}
	return fmt.Sprintf("%.1f %s", value, unit)
}

package notify

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/types"
)

// Sink receives client and alert notifications. Delivery is fire-and-forget:
// implementations handle (log) their own failures.
type Sink interface {
	ClientConnected(c *types.Client)
	ClientDisconnected(c *types.Client)
	Alert(message string)
}

// Multi fans every notification out to each sink in order
type Multi []Sink

func (m Multi) ClientConnected(c *types.Client) {
	for _, s := range m {
		s.ClientConnected(c)
	}
}

func (m Multi) ClientDisconnected(c *types.Client) {
	for _, s := range m {
		s.ClientDisconnected(c)
	}
}

func (m Multi) Alert(message string) {
	for _, s := range m {
		s.Alert(message)
	}
}

// Log writes notifications to the structured log
type Log struct {
	formatter *Formatter
	logger    zerolog.Logger
}

// NewLog creates a sink that logs the same text a push notification would carry
func NewLog(formatter *Formatter) *Log {
	if formatter == nil {
		formatter = NewFormatter()
	}
	return &Log{
		formatter: formatter,
		logger:    log.WithComponent("notify"),
	}
}

func (l *Log) ClientConnected(c *types.Client) {
	l.logger.Info().
		Str("client", c.Name).
		Str("address", c.Address).
		Msg(l.formatter.Connected(c))
}

func (l *Log) ClientDisconnected(c *types.Client) {
	l.logger.Info().
		Str("client", c.Name).
		Float64("bytes_received", c.BytesReceived).
		Float64("bytes_sent", c.BytesSent).
		Msg(l.formatter.Disconnected(c))
}

func (l *Log) Alert(message string) {
	l.logger.Warn().Msg(message)
}

/*
Package log provides structured logging for vpnwatch using zerolog.

The package keeps a single global zerolog.Logger that every other package
writes to, plus helpers that derive child loggers carrying context fields.

# Usage

Initializing the Logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Component Loggers:

	logger := log.WithComponent("reconciler")
	logger.Info().Str("client", "alice").Msg("Client connected")

	epLog := log.WithEndpoint("localhost:5555")
	epLog.Warn().Err(err).Int("failures", 2).Msg("Status poll failed")

# Log Output Examples

JSON Format:

	{"level":"info","component":"reconciler","client":"alice","time":"2024-10-13T10:30:00Z","message":"Client connected"}
	{"level":"warn","endpoint":"localhost:5555","failures":2,"error":"dial: connection refused","time":"2024-10-13T10:30:05Z","message":"Status poll failed"}

Console Format:

	2024-10-13T10:30:00Z INF Client connected client=alice component=reconciler

# Security

Pushover credentials are never logged. The configuration dump command
redacts them before printing.
*/
package log

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/vpnwatch/pkg/api"
	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/metrics"
	"github.com/cuemby/vpnwatch/pkg/notify"
	"github.com/cuemby/vpnwatch/pkg/reconciler"
)

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the OpenVPN server and send notifications",
	Long: `Poll the management interface every interval and notify Pushover when
clients connect or disconnect.

Clients already connected at startup are adopted silently. If the first
poll fails vpnwatch exits; later failures are tolerated and raise an alert
once the failure threshold is reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if !dryRun {
			if err := cfg.RequirePushover(); err != nil {
				return err
			}
		}

		logger := log.WithEndpoint(cfg.Address()).With().Str("component", "run").Logger()
		health := metrics.Default()
		health.SetVersion(Version)

		source, err := newStatusClient(cfg)
		if err != nil {
			return err
		}

		// Notifications
		formatter := notify.NewFormatter()
		sinks := notify.Multi{notify.NewLog(formatter)}
		if !dryRun {
			pushover, err := notify.NewPushover(notify.PushoverConfig{
				Token:         cfg.Pushover.Token,
				UserKey:       cfg.Pushover.UserKey,
				APIURL:        cfg.Pushover.APIURL,
				Title:         cfg.Pushover.Title,
				Timeout:       cfg.Pushover.Timeout,
				RatePerMinute: cfg.Pushover.RatePerMinute,
			})
			if err != nil {
				return fmt.Errorf("failed to create pushover sink: %w", err)
			}
			sinks = append(sinks, pushover.WithFormatter(formatter))
		}
		health.UpdateComponent(metrics.ComponentNotifier, true, "ready")
		sink := notify.NewAsync(sinks)
		defer sink.Stop()

		recon := reconciler.New(source, sink, reconciler.Config{
			Interval:         cfg.Monitor.Interval,
			FailureThreshold: cfg.Monitor.FailureThreshold,
			RealertEvery:     cfg.Monitor.RealertEvery,
		})

		if err := recon.Bootstrap(cmd.Context()); err != nil {
			return fmt.Errorf("cannot read clients from %s: %w", cfg.Address(), err)
		}

		recon.Start()
		defer recon.Stop()

		collector := metrics.NewCollector(recon, collectInterval)
		collector.Start()
		defer collector.Stop()

		errCh := make(chan error, 1)
		var server *api.HealthServer
		if cfg.Metrics.Addr != "" {
			server = api.NewHealthServer(health, recon)
			go func() {
				if err := server.Start(cfg.Metrics.Addr); err != nil {
					errCh <- fmt.Errorf("health server error: %w", err)
				}
			}()
		}

		logger.Info().
			Dur("interval", cfg.Monitor.Interval).
			Int("clients", len(recon.Roster())).
			Bool("dry_run", dryRun).
			Msg("Watching OpenVPN clients")

		// Wait for interrupt signal or server error
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var runErr error
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		case runErr = <-errCh:
			logger.Error().Err(runErr).Msg("Shutting down")
		}

		if server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("Health server did not shut down cleanly")
			}
		}
		return runErr
	},
}

func init() {
	flags := runCmd.Flags()
	flags.StringP("token", "t", "", "Pushover application token")
	flags.StringP("user-key", "u", "", "Pushover user key")
	flags.String("pushover-url", notify.DefaultAPIURL, "Pushover message API URL")
	flags.Duration("interval", reconciler.DefaultInterval, "Time between status polls")
	flags.Int("threshold", reconciler.DefaultConfig().FailureThreshold, "Consecutive failed polls before alerting")
	flags.Int("realert-every", 0, "Repeat the alert every N further failures (0 alerts once)")
	flags.String("metrics-addr", "", "Address for /health, /ready and /metrics (disabled when empty)")
	flags.Bool("dry-run", false, "Log notifications instead of sending them")

	// config show accepts the same overrides as run
	configShowCmd.Flags().AddFlagSet(flags)
}

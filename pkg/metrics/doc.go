/*
Package metrics exposes vpnwatch's Prometheus metrics and component health.

All collectors are registered with the default registry at package init
and served by Handler. The reconciler records poll outcomes and client
events directly; a Collector periodically copies the roster size and the
failure streak into gauges so a scrape always sees current values even
between polls.

# Metrics

	vpnwatch_polls_total{result}            status polls by success/failure
	vpnwatch_poll_duration_seconds          status round-trip latency
	vpnwatch_consecutive_failures           current failure streak
	vpnwatch_connected_clients              clients in the last good roster
	vpnwatch_client_events_total{type}      connected/disconnected events
	vpnwatch_alerts_total                   escalation alerts raised
	vpnwatch_notifications_total{result}    delivered/failed/dropped sends

# Health

HealthChecker aggregates per-component state. A component is healthy,
degraded or unhealthy; /health reports 503 only when something is
unhealthy, and /ready waits until every critical component (openvpn and
notifier for the default checker) has reported and is not unhealthy.

	metrics.Default().SetComponent(metrics.ComponentOpenVPN, metrics.StateDegraded, "1 failed poll")
	http.Handle("/health", metrics.Default().HealthHandler())
*/
package metrics

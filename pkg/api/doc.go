/*
Package api serves vpnwatch's HTTP endpoints.

The server is optional and only started when metrics.addr is configured.
It exposes:

	GET /health        aggregate component health (503 when unhealthy)
	GET /health/live   liveness, 200 while the process runs
	GET /ready         200 once openvpn and notifier have reported
	GET /metrics       Prometheus exposition
	GET /clients       the last known roster as JSON

Health state comes from a metrics.HealthChecker; the reconciler and the
Pushover sink keep their components current.
*/
package api

/*
Package health tracks the health of the OpenVPN management endpoint.

The package provides a Status that counts consecutive failed polls and
decides when a failure streak becomes worth an alert, plus the Checker
interface that one-shot endpoint checks implement.

# Architecture

	┌────────────────────────────────────────────────────┐
	│                  Status Tracking                   │
	│                                                    │
	│   poll result ──► Status.Update(result, config)    │
	│                        │                           │
	│            ┌───────────┼──────────────┐            │
	│            ▼           ▼              ▼            │
	│     TransitionNone  Degraded     Recovered         │
	│                  (failures ==    (success after    │
	│                   Threshold)      degraded)        │
	└────────────────────────────────────────────────────┘

# Failure Streaks

The reconciler feeds every poll outcome into a Status:

	Poll 1: connection refused   failures=1  healthy
	Poll 2: connection refused   failures=2  healthy
	Poll 3: connection refused   failures=3  UNHEALTHY  → alert
	Poll 4: connection refused   failures=4  unhealthy  (no alert)
	Poll 5: ok                   failures=0  healthy    → re-armed

The degraded transition fires exactly once per streak, when the counter
reaches the threshold. Only a success resets the counter and re-arms it.

## Re-alerting

Config.RealertEvery keeps a long outage from going silent. With a
threshold of 3 and RealertEvery of 5, alerts fire at failures 3, 8, 13, ...
The default of zero keeps the single edge-triggered alert.

# Checkers

A Checker runs once and reports a Result. The openvpn package implements
it twice: a greeting check that reads the session banner and a status
check that performs a full roster exchange.

	for _, checker := range []health.Checker{greeter, client} {
		result := checker.Check(ctx)
		fmt.Println(checker.Type(), result.Healthy, result.Message)
	}
*/
package health

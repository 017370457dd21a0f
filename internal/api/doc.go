// Package api serves the read-only HTTP status surface of a migration run.
//
// Routes:
//
//	GET /healthz   200 while the run is healthy, 503 once it has failed
//	GET /status    JSON run id, state, counters, version and uptime
//	GET /metrics   Prometheus exposition of the run's metrics registry
//
// The server is optional and never affects the outcome of the run. It
// follows the same lifecycle as the other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

// Package metrics exports pipeline progress as Prometheus metrics.
//
// Observer implements pipeline.Observer on a private registry, so several
// pipelines (or tests) never collide on the global default registerer.
// Serve Gatherer() from the status server's /metrics route.
package metrics

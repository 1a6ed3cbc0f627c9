// Package prometheus exposes goSession metrics through
// github.com/prometheus/client_golang.
//
// [NewPrometheusExporter] returns a [prometheus.Collector] over
// [goSession.Engine.MetricsSnapshot] and a promhttp handler serving it.
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_load_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers mount the
//     Handler or register the collector themselves.
//   - Mutate engine state.
package prometheus

// Package metric provides Prometheus metrics for TradeGate.
//
//   - prometheus.go: registry, metric vectors and the /metrics handler
//   - collector.go: collectors sampled at scrape time
//
// Metrics are exposed at /metrics in Prometheus text format.
package metric

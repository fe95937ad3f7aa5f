// Package metric provides Prometheus metrics for trayctl.
//
// trayctl is a short-lived command, so nothing is scraped: metrics are
// gathered into a private registry and, when metrics.textfile is set,
// written in the node_exporter textfile format at exit.
//
// Metrics include:
//
//   - Action outcomes by verb and result
//   - Store mutations
//   - Shell restart duration
//   - Snapshot tier state (collected on demand)
package metric

// Package metrics records the outcome of every dispatched request.
//
// Recorder keeps its own Prometheus registry so several transports (and
// tests) never collide on the default one. WriteText renders the registry in
// the Prometheus text exposition format; WriteFile does the same into a file,
// atomically, for a node_exporter textfile collector.
package metrics

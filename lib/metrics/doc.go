// Package metrics holds the process-wide counters of the proxy and the
// helpers used by the command handlers to update them.
//
// The package focuses on:
//   - A static registry of counters, created once when the package is initialized
//   - A uniform instrumentation wrapper for command handlers
//   - Latency and size statistics for the backend and the sessions
//
// Key Components:
//
//   - Command: The counters kept for one proxy command (requests, errors and,
//     where the command distinguishes them, hits and misses). One Command value
//     exists per supported command (Get, HLen, LIndex, ...).
//
//   - Instrument: Runs a handler closure and increments the request counter and,
//     if the closure fails, the error counter.
//
//   - Backend / Session / TCP counters: Shared counters incremented by the backend
//     adapter, the frontends and the transport layer.
//
//   - BackendLatency / ResponseSize: go-metrics timer and histogram, written to the
//     diagnostic log periodically by LogStats.
//
// All counters are exported in the Prometheus text format by WritePrometheus.
//
// Thread Safety:
//
//	All counters are safe for concurrent use without further synchronization.
//	Nothing in this package is ever reset.
package metrics

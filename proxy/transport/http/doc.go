// Package http serves the admin endpoint of the proxy: the counters of the
// metrics package in the Prometheus text format on /metrics and a liveness
// probe on /healthz. With debug logging every admin request is logged with its
// status and duration.
package http

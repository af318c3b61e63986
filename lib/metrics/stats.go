package metrics

import (
	"context"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Printer is the subset of a logger needed by LogStats
type Printer interface {
	Infof(format string, args ...interface{})
}

var (
	registry = gometrics.NewRegistry()

	// BackendLatency records the duration of every backend call (including timed out ones)
	BackendLatency = gometrics.NewRegisteredTimer("backend.latency", registry)

	// ResponseSize records the size of every reply written to a client
	ResponseSize = gometrics.NewRegisteredHistogram("session.response_size", registry, gometrics.NewExpDecaySample(1028, 0.015))
)

// LogStats writes a summary of the latency and size statistics to p every interval
// until ctx is done. A non-positive interval disables the output.
func LogStats(ctx context.Context, interval time.Duration, p Printer) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps := BackendLatency.Percentiles([]float64{0.5, 0.99})
			p.Infof("backend calls=%d mean=%s p50=%s p99=%s max=%s",
				BackendLatency.Count(),
				time.Duration(BackendLatency.Mean()),
				time.Duration(ps[0]),
				time.Duration(ps[1]),
				time.Duration(BackendLatency.Max()),
			)
			p.Infof("responses count=%d mean=%.1fB max=%dB",
				ResponseSize.Count(),
				ResponseSize.Mean(),
				ResponseSize.Max(),
			)
		}
	}
}

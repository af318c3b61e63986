package metrics

import (
	"fmt"
	"io"

	vm "github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Per-command counters
// --------------------------------------------------------------------------

// Command holds the counters for a single proxy command.
// Hits and Misses are nil for commands that have no hit/miss distinction.
type Command struct {
	Name     string
	Requests *vm.Counter
	Errors   *vm.Counter
	Hits     *vm.Counter
	Misses   *vm.Counter
}

func newCommand(name string, hitMiss bool) *Command {
	c := &Command{
		Name:     name,
		Requests: vm.NewCounter(fmt.Sprintf(`kvproxy_requests_total{command=%q}`, name)),
		Errors:   vm.NewCounter(fmt.Sprintf(`kvproxy_request_errors_total{command=%q}`, name)),
	}
	if hitMiss {
		c.Hits = vm.NewCounter(fmt.Sprintf(`kvproxy_hits_total{command=%q}`, name))
		c.Misses = vm.NewCounter(fmt.Sprintf(`kvproxy_misses_total{command=%q}`, name))
	}
	return c
}

// Hit increments the hit counter (if the command has one)
func (c *Command) Hit() {
	if c.Hits != nil {
		c.Hits.Inc()
	}
}

// Miss increments the miss counter (if the command has one)
func (c *Command) Miss() {
	if c.Misses != nil {
		c.Misses.Inc()
	}
}

var (
	Get    = newCommand("get", true)
	Set    = newCommand("set", false)
	HLen   = newCommand("hlen", true)
	LIndex = newCommand("lindex", true)
	LRange = newCommand("lrange", true)
	LPush  = newCommand("lpush", false)
	RPush  = newCommand("rpush", false)
	SAdd   = newCommand("sadd", false)
	SRem   = newCommand("srem", false)
	SDiff  = newCommand("sdiff", false)
	SInter = newCommand("sinter", false)
	SUnion = newCommand("sunion", false)
)

// --------------------------------------------------------------------------
// Backend, session and transport counters
// --------------------------------------------------------------------------

var (
	BackendRequests    = vm.NewCounter("kvproxy_backend_requests_total")
	BackendErrors      = vm.NewCounter("kvproxy_backend_errors_total")
	BackendTimeouts    = vm.NewCounter("kvproxy_backend_timeouts_total")
	BackendRateLimited = vm.NewCounter("kvproxy_backend_ratelimited_total")

	SessionRecv       = vm.NewCounter("kvproxy_session_recv_total")
	SessionRecvErrors = vm.NewCounter("kvproxy_session_recv_errors_total")
	SessionSend       = vm.NewCounter("kvproxy_session_send_total")
	SessionSendBytes  = vm.NewCounter("kvproxy_session_send_bytes_total")
	SessionSendErrors = vm.NewCounter("kvproxy_session_send_errors_total")

	TCPAccept      = vm.NewCounter("kvproxy_tcp_accept_total")
	TCPClose       = vm.NewCounter("kvproxy_tcp_close_total")
	TCPConnCurrent = vm.NewCounter("kvproxy_tcp_conn_current")
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Instrument runs op, counting the attempt in requests and a failure in errors.
// The error returned by op is passed through unchanged.
func Instrument(requests, errors *vm.Counter, op func() error) error {
	requests.Inc()
	err := op()
	if err != nil {
		errors.Inc()
	}
	return err
}

// RecordSend updates the session send counters for a reply of n bytes
func RecordSend(n int, err error) {
	SessionSend.Inc()
	if err != nil {
		SessionSendErrors.Inc()
		return
	}
	SessionSendBytes.Add(n)
	ResponseSize.Update(int64(n))
}

// WritePrometheus writes all counters (and the process metrics) in the Prometheus text format
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, true)
}

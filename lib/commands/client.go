package commands

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("commands")

// DefaultCollectionTTL is applied to lists and sets on every mutating call
const DefaultCollectionTTL = 15 * time.Minute

// Config holds the settings shared by all handlers of a connection.
// It is never modified after the connection was set up.
type Config struct {
	// Timeout is the deadline of every single backend call
	Timeout time.Duration
	// CollectionTTL is the time to live set on lists and sets when they are modified
	CollectionTTL time.Duration
}

// Client is the per-connection command handle
type Client struct {
	backend backend.IBackend
	config  Config
	klog    *klog.Logger
}

// NewClient creates the handle for one connection. The client takes ownership of b.
func NewClient(b backend.IBackend, config Config, commandLog *klog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = backend.DefaultTimeout
	}
	if config.CollectionTTL <= 0 {
		config.CollectionTTL = DefaultCollectionTTL
	}
	if commandLog == nil {
		commandLog = klog.Nop()
	}
	return &Client{backend: b, config: config, klog: commandLog}
}

// Close closes the backend client of the connection
func (c *Client) Close() error {
	return c.backend.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// run executes a handler body with the per-command accounting all handlers share:
// attempts and errors are counted, an error replaces the reply with an error reply,
// and the command log receives one line.
func (c *Client) run(buf *Buffer, m *metrics.Command, req Request, op func() (klog.Status, error)) error {
	return metrics.Instrument(m.Requests, m.Errors, func() error {
		mark := buf.Len()
		status, err := op()
		size := buf.Len() - mark
		if err != nil {
			buf.truncate(mark)
			buf.Error(ErrorReply(err))
			status, size = statusOf(err), 0
		}
		c.klog.Log(m.Name, req.Keys(), status, size)
		return err
	})
}

// validateKeys rejects keys that are not valid UTF-8
func validateKeys(keys ...[]byte) error {
	for _, k := range keys {
		if !utf8.Valid(k) {
			return backend.InvalidInput("invalid key")
		}
	}
	return nil
}

// statusOf maps an error to its command log status
func statusOf(err error) klog.Status {
	switch backend.KindOf(err) {
	case backend.KindInvalidInput:
		return klog.StatusInvalidInput
	case backend.KindTimeout:
		return klog.StatusTimeout
	case backend.KindRateLimited:
		return klog.StatusRateLimited
	default:
		return klog.StatusServerError
	}
}

// fetchSet fetches one set under its own deadline
func (c *Client) fetchSet(ctx context.Context, key []byte) (backend.Outcome[[][]byte], error) {
	return backend.Invoke(ctx, c.config.Timeout, func(ctx context.Context) (backend.Outcome[[][]byte], error) {
		return c.backend.SetFetch(ctx, string(key))
	})
}

// saturatingInc returns i+1, or i if that would overflow
func saturatingInc(i int64) int64 {
	if i == math.MaxInt64 {
		return i
	}
	return i + 1
}

func outsideInt32(i int64) bool {
	return i < math.MinInt32 || i > math.MaxInt32
}

// toInt32 narrows an index for the backend. Indices outside the int32 range
// become an open bound.
func toInt32(i int64) *int32 {
	if outsideInt32(i) {
		return nil
	}
	v := int32(i)
	return &v
}

// exclusiveEnd converts the inclusive end of a client range into the exclusive
// end of a backend range. -1 (the last element) has no exclusive counterpart
// and becomes an open bound.
func exclusiveEnd(stop int64) *int32 {
	if stop == -1 {
		return nil
	}
	return toInt32(saturatingInc(stop))
}

func strKeys(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

package commands

import (
	"context"
	"io"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
)

// Lookup fetches a scalar value with the GET accounting: attempt, error and
// hit/miss counters plus one command log line. Frontends that do not speak
// RESP use it to build their own replies.
func (c *Client) Lookup(ctx context.Context, req *GetRequest) (backend.Outcome[[]byte], error) {
	m := metrics.Get

	var out backend.Outcome[[]byte]
	err := metrics.Instrument(m.Requests, m.Errors, func() error {
		if err := validateKeys(req.Key); err != nil {
			return err
		}
		var err error
		out, err = backend.Invoke(ctx, c.config.Timeout, func(ctx context.Context) (backend.Outcome[[]byte], error) {
			return c.backend.Get(ctx, string(req.Key))
		})
		return err
	})

	switch {
	case err != nil:
		c.klog.Log(m.Name, req.Keys(), statusOf(err), 0)
	case out.IsHit():
		m.Hit()
		c.klog.Log(m.Name, req.Keys(), klog.StatusHit, len(out.Value))
	default:
		m.Miss()
		c.klog.Log(m.Name, req.Keys(), klog.StatusMiss, 0)
	}
	return out, err
}

// Get serves GET on the legacy path: the reply is written to w directly.
// An invalid key is answered with an error reply and reported as an InvalidInput
// error. Backend failures are answered with an error reply but not returned, so
// the only other error Get returns is a failed write to w.
func (c *Client) Get(ctx context.Context, w io.Writer, req *GetRequest) error {
	out, err := c.Lookup(ctx, req)

	var buf Buffer
	switch {
	case err != nil:
		buf.Fail(err)
	case out.IsHit():
		buf.Bulk(out.Value)
	default:
		buf.Nil()
	}

	n, werr := w.Write(buf.Bytes())
	metrics.RecordSend(n, werr)

	if backend.KindOf(err) == backend.KindInvalidInput {
		return err
	}
	return werr
}

// Set stores a scalar value, replying +OK
func (c *Client) Set(ctx context.Context, buf *Buffer, req *SetRequest) error {
	return c.run(buf, metrics.Set, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}
		if req.TTLSeconds < 0 {
			return "", backend.InvalidInput("invalid expire time")
		}

		ttl := time.Duration(req.TTLSeconds) * time.Second
		if err := c.exec(ctx, func(ctx context.Context) error {
			return c.backend.Set(ctx, string(req.Key), req.Value, ttl)
		}); err != nil {
			return "", err
		}

		buf.OK()
		return klog.StatusStored, nil
	})
}

// exec invokes a backend call that returns no value
func (c *Client) exec(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := backend.Invoke(ctx, c.config.Timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

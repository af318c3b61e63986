package commands

import (
	"context"
	"math"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
)

// ListIndex serves LINDEX by fetching the one element range [index, index+1).
// Anything but exactly one element in a Hit violates that range and is an error.
// An index outside the int32 range of the backend cannot address an element.
func (c *Client) ListIndex(ctx context.Context, buf *Buffer, req *ListIndexRequest) error {
	m := metrics.LIndex
	return c.run(buf, m, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}
		if outsideInt32(req.Index) {
			m.Miss()
			buf.Nil()
			return klog.StatusMiss, nil
		}

		start, end := toInt32(req.Index), exclusiveEnd(req.Index)
		out, err := backend.Invoke(ctx, c.config.Timeout, func(ctx context.Context) (backend.Outcome[[][]byte], error) {
			return c.backend.ListFetch(ctx, string(req.Key), start, end)
		})
		if err != nil {
			return "", err
		}

		if !out.IsHit() {
			m.Miss()
			buf.Nil()
			return klog.StatusMiss, nil
		}
		if len(out.Value) != 1 {
			Logger.Warningf("lindex %d on %q returned %d elements", req.Index, req.Key, len(out.Value))
			return "", backend.Custom("unexpected response from server")
		}

		m.Hit()
		buf.Bulk(out.Value[0])
		return klog.StatusHit, nil
	})
}

// ListRange serves LRANGE. The inclusive range [start, stop] of the request is
// fetched as [start, stop+1) from the backend. A missing list is an empty array,
// and so is a range starting after or ending before everything int32 can address.
func (c *Client) ListRange(ctx context.Context, buf *Buffer, req *ListRangeRequest) error {
	m := metrics.LRange
	return c.run(buf, m, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}
		if req.Start > math.MaxInt32 || req.Stop < math.MinInt32 {
			m.Miss()
			buf.Array(0)
			return klog.StatusMiss, nil
		}

		start, end := toInt32(req.Start), exclusiveEnd(req.Stop)
		out, err := backend.Invoke(ctx, c.config.Timeout, func(ctx context.Context) (backend.Outcome[[][]byte], error) {
			return c.backend.ListFetch(ctx, string(req.Key), start, end)
		})
		if err != nil {
			return "", err
		}

		if !out.IsHit() {
			m.Miss()
			buf.Array(0)
			return klog.StatusMiss, nil
		}
		m.Hit()
		buf.BulkArray(out.Value)
		return klog.StatusHit, nil
	})
}

// ListPush serves LPUSH and RPUSH. The collection ttl is refreshed on every push
// and the list is never truncated.
//
// The backend does not return the length of the list, so the reply is the number
// of elements in the request.
func (c *Client) ListPush(ctx context.Context, buf *Buffer, req *ListPushRequest) error {
	m := metrics.LPush
	if req.Back {
		m = metrics.RPush
	}

	return c.run(buf, m, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}

		key, ttl := string(req.Key), c.config.CollectionTTL
		err := c.exec(ctx, func(ctx context.Context) error {
			if req.Back {
				return c.backend.ListConcatenateBack(ctx, key, req.Elements, ttl)
			}
			// LPUSH inserts the elements one after the other at the head,
			// so the last element ends up first
			return c.backend.ListConcatenateFront(ctx, key, reversed(req.Elements), ttl)
		})
		if err != nil {
			return "", err
		}

		buf.Int(int64(len(req.Elements)))
		return klog.StatusStored, nil
	})
}

func reversed(values [][]byte) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}

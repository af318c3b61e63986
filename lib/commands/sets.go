package commands

import (
	"context"

	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/ValentinKolb/kvproxy/lib/setalg"
)

// SetAdd serves SADD and refreshes the collection ttl.
// The reply is the number of members in the request (emulated).
func (c *Client) SetAdd(ctx context.Context, buf *Buffer, req *SetAddRequest) error {
	return c.run(buf, metrics.SAdd, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}

		if err := c.exec(ctx, func(ctx context.Context) error {
			return c.backend.SetAddElements(ctx, string(req.Key), req.Members, c.config.CollectionTTL)
		}); err != nil {
			return "", err
		}

		buf.Int(int64(len(req.Members)))
		return klog.StatusStored, nil
	})
}

// SetRemove serves SREM.
// The reply is the number of members in the request (emulated).
func (c *Client) SetRemove(ctx context.Context, buf *Buffer, req *SetRemoveRequest) error {
	return c.run(buf, metrics.SRem, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}

		if err := c.exec(ctx, func(ctx context.Context) error {
			return c.backend.SetRemoveElements(ctx, string(req.Key), req.Members)
		}); err != nil {
			return "", err
		}

		buf.Int(int64(len(req.Members)))
		return klog.StatusDeleted, nil
	})
}

// SetDiff serves SDIFF
func (c *Client) SetDiff(ctx context.Context, buf *Buffer, req *SetDiffRequest) error {
	return c.setAlgebra(ctx, buf, metrics.SDiff, req, setalg.Difference)
}

// SetIntersect serves SINTER
func (c *Client) SetIntersect(ctx context.Context, buf *Buffer, req *SetIntersectRequest) error {
	return c.setAlgebra(ctx, buf, metrics.SInter, req, setalg.Intersection)
}

// SetUnion serves SUNION
func (c *Client) SetUnion(ctx context.Context, buf *Buffer, req *SetUnionRequest) error {
	return c.setAlgebra(ctx, buf, metrics.SUnion, req, setalg.Union)
}

func (c *Client) setAlgebra(ctx context.Context, buf *Buffer, m *metrics.Command, req Request, mode setalg.Mode) error {
	return c.run(buf, m, req, func() (klog.Status, error) {
		if err := validateKeys(req.Keys()...); err != nil {
			return "", err
		}

		result, err := setalg.Evaluate(ctx, mode, req.Keys(), c.fetchSet)
		if err != nil {
			return "", err
		}

		buf.BulkArray(result.Members())
		if len(result) == 0 {
			return klog.StatusMiss, nil
		}
		return klog.StatusHit, nil
	})
}

package commands

import (
	"context"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
)

// HashLength serves HLEN. A missing dictionary has length 0.
func (c *Client) HashLength(ctx context.Context, buf *Buffer, req *HashLengthRequest) error {
	m := metrics.HLen
	return c.run(buf, m, req, func() (klog.Status, error) {
		if err := validateKeys(req.Key); err != nil {
			return "", err
		}

		out, err := backend.Invoke(ctx, c.config.Timeout, func(ctx context.Context) (backend.Outcome[uint32], error) {
			return c.backend.DictionaryLength(ctx, string(req.Key))
		})
		if err != nil {
			return "", err
		}

		if !out.IsHit() {
			m.Miss()
			buf.Int(0)
			return klog.StatusMiss, nil
		}
		m.Hit()
		buf.Int(int64(out.Value))
		return klog.StatusHit, nil
	})
}

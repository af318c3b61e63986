package commands

import (
	"context"

	"github.com/ValentinKolb/kvproxy/lib/backend"
)

// Dispatch routes a parsed request to its handler and appends the reply to buf.
// The returned error has already been turned into an error reply, callers only
// need it for their own accounting.
func (c *Client) Dispatch(ctx context.Context, buf *Buffer, req Request) error {
	Logger.Debugf("%s %v", req.Command(), strKeys(req.Keys()))

	switch r := req.(type) {
	case *SetRequest:
		return c.Set(ctx, buf, r)
	case *HashLengthRequest:
		return c.HashLength(ctx, buf, r)
	case *ListIndexRequest:
		return c.ListIndex(ctx, buf, r)
	case *ListRangeRequest:
		return c.ListRange(ctx, buf, r)
	case *ListPushRequest:
		return c.ListPush(ctx, buf, r)
	case *SetAddRequest:
		return c.SetAdd(ctx, buf, r)
	case *SetRemoveRequest:
		return c.SetRemove(ctx, buf, r)
	case *SetDiffRequest:
		return c.SetDiff(ctx, buf, r)
	case *SetIntersectRequest:
		return c.SetIntersect(ctx, buf, r)
	case *SetUnionRequest:
		return c.SetUnion(ctx, buf, r)
	default:
		// GET has its own write path, see Client.Get
		err := backend.Custom("unsupported command '" + req.Command() + "'")
		buf.Error(ErrorReply(err))
		return err
	}
}

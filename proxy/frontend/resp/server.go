package resp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/commands"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/tidwall/redcon"
)

var Logger = logger.GetLogger("frontend")

// Frontend serves the Redis protocol
type Frontend struct{}

// New creates a RESP frontend
func New() *Frontend {
	return &Frontend{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see frontend.IFrontend)
// --------------------------------------------------------------------------

func (f *Frontend) Name() string {
	return "resp"
}

func (f *Frontend) Serve(ctx context.Context, conn io.ReadWriter, client *commands.Client) error {
	rd := redcon.NewReader(conn)
	w := bufio.NewWriter(conn)
	var buf commands.Buffer

	for {
		cmds, err := rd.ReadCommands()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			metrics.SessionRecvErrors.Inc()

			// framing errors can not be recovered from, tell the client and hang up
			if strings.HasPrefix(err.Error(), "Protocol error") {
				buf.Reset()
				buf.Error("ERR " + err.Error())
				send(w, buf.Bytes())
				_ = w.Flush()
			}
			return err
		}

		// all commands of one read are answered with a single flush
		for _, cmd := range cmds {
			metrics.SessionRecv.Inc()
			quit, err := f.handle(ctx, w, &buf, client, cmd.Args)
			if err != nil {
				return err
			}
			if quit {
				return w.Flush()
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle answers a single command. The returned error is a write error.
func (f *Frontend) handle(ctx context.Context, w *bufio.Writer, buf *commands.Buffer, client *commands.Client, args [][]byte) (bool, error) {
	buf.Reset()

	switch name := strings.ToLower(string(args[0])); name {
	case "ping":
		switch len(args) {
		case 1:
			buf.Status("PONG")
		case 2:
			buf.Bulk(args[1])
		default:
			buf.Error(errArity(name).Error())
		}
		return false, send(w, buf.Bytes())
	case "quit":
		buf.OK()
		return true, send(w, buf.Bytes())
	}

	req, err := parse(args)
	if err != nil {
		buf.Error(err.Error())
		return false, send(w, buf.Bytes())
	}

	if get, ok := req.(*commands.GetRequest); ok {
		err := client.Get(ctx, w, get)
		if backend.KindOf(err) == backend.KindInvalidInput {
			Logger.Debugf("get: %v", err)
			return false, nil
		}
		return false, err
	}

	if err := client.Dispatch(ctx, buf, req); err != nil {
		Logger.Debugf("%s: %v", req.Command(), err)
	}
	return false, send(w, buf.Bytes())
}

// send writes one reply and updates the session counters
func send(w io.Writer, reply []byte) error {
	n, err := w.Write(reply)
	metrics.RecordSend(n, err)
	return err
}

package memcache

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/commands"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("frontend")

const (
	// maxLineLength bounds a command line, keys are at most 250 bytes
	maxLineLength = 2048
	// maxValueLength is the item size limit of memcached
	maxValueLength = 1024 * 1024
	// relativeExpireLimit: larger exptime values are absolute unix timestamps
	relativeExpireLimit = 60 * 60 * 24 * 30
)

var (
	crlf        = []byte("\r\n")
	end         = []byte("END\r\n")
	stored      = []byte("STORED\r\n")
	unknown     = []byte("ERROR\r\n")
	badCmdLine  = "bad command line format"
	badChunk    = "bad data chunk"
	lineTooLong = "line too long"
)

// Frontend serves the get/gets/set subset of the memcache text protocol
type Frontend struct {
	now func() time.Time
}

// New creates a memcache frontend
func New() *Frontend {
	return &Frontend{now: time.Now}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see frontend.IFrontend)
// --------------------------------------------------------------------------

func (f *Frontend) Name() string {
	return "memcache"
}

func (f *Frontend) Serve(ctx context.Context, conn io.ReadWriter, client *commands.Client) error {
	r := bufio.NewReaderSize(conn, maxLineLength)
	w := bufio.NewWriter(conn)
	var reply []byte

	for {
		line, err := r.ReadSlice('\n')
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				metrics.SessionRecvErrors.Inc()
				send(w, clientError(nil, lineTooLong))
				_ = w.Flush()
				return err
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			metrics.SessionRecvErrors.Inc()
			return err
		}
		metrics.SessionRecv.Inc()

		reply = reply[:0]
		fields := bytes.Fields(line)
		if len(fields) == 0 {
			reply = append(reply, unknown...)
		} else {
			switch string(fields[0]) {
			case "get", "gets":
				reply = f.get(ctx, reply, client, fields)
			case "set":
				reply, err = f.set(ctx, reply, r, client, fields)
				if err != nil {
					metrics.SessionRecvErrors.Inc()
					return err
				}
			case "quit":
				return w.Flush()
			default:
				reply = append(reply, unknown...)
			}
		}

		if len(reply) > 0 {
			if err := send(w, reply); err != nil {
				return err
			}
		}
		// flush once no pipelined input is pending
		if r.Buffered() == 0 {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

// --------------------------------------------------------------------------
// Commands
// --------------------------------------------------------------------------

// get answers "get <key>*". Every key is looked up on its own, an error ends the
// reply without END, like memcached does.
func (f *Frontend) get(ctx context.Context, reply []byte, client *commands.Client, fields [][]byte) []byte {
	if len(fields) < 2 {
		return append(reply, unknown...)
	}
	withCAS := string(fields[0]) == "gets"

	for _, key := range fields[1:] {
		out, err := client.Lookup(ctx, &commands.GetRequest{Key: key})
		if err != nil {
			Logger.Debugf("get %q: %v", key, err)
			return errorReply(reply[:0], err)
		}
		if !out.IsHit() {
			continue
		}

		// VALUE <key> <flags> <bytes> [<cas unique>]
		reply = append(reply, "VALUE "...)
		reply = append(reply, key...)
		reply = append(reply, " 0 "...)
		reply = strconv.AppendInt(reply, int64(len(out.Value)), 10)
		if withCAS {
			reply = append(reply, " 0"...)
		}
		reply = append(reply, crlf...)
		reply = append(reply, out.Value...)
		reply = append(reply, crlf...)
	}
	return append(reply, end...)
}

// set answers "set <key> <flags> <exptime> <bytes> [noreply]" followed by the data
// block. Flags are accepted but not stored. The returned error is a read error.
func (f *Frontend) set(ctx context.Context, reply []byte, r *bufio.Reader, client *commands.Client, fields [][]byte) ([]byte, error) {
	if len(fields) != 5 && len(fields) != 6 {
		return clientError(reply, badCmdLine), nil
	}
	noreply := len(fields) == 6 && string(fields[5]) == "noreply"

	// fields alias the read buffer, which the data block overwrites
	key := bytes.Clone(fields[1])
	_, flagsErr := strconv.ParseUint(string(fields[2]), 10, 32)
	exptime, expErr := strconv.ParseInt(string(fields[3]), 10, 64)
	size, sizeErr := strconv.Atoi(string(fields[4]))
	if flagsErr != nil || expErr != nil || sizeErr != nil || size < 0 || size > maxValueLength {
		return clientError(reply, badCmdLine), nil
	}

	data := make([]byte, size+len(crlf))
	if _, err := io.ReadFull(r, data); err != nil {
		return reply, err
	}
	if !bytes.HasSuffix(data, crlf) {
		return clientError(reply, badChunk), nil
	}

	ttl, ok := f.ttlSeconds(exptime)
	if !ok {
		return clientError(reply, badCmdLine), nil
	}

	var buf commands.Buffer
	err := client.Set(ctx, &buf, &commands.SetRequest{Key: key, Value: data[:size], TTLSeconds: ttl})
	switch {
	case noreply:
		return reply, nil
	case err != nil:
		return errorReply(reply, err), nil
	default:
		return append(reply, stored...), nil
	}
}

// ttlSeconds converts a memcache exptime into a relative ttl. Negative values
// and timestamps in the past can not be expressed and are rejected.
func (f *Frontend) ttlSeconds(exptime int64) (int64, bool) {
	switch {
	case exptime < 0:
		return 0, false
	case exptime <= relativeExpireLimit:
		return exptime, true
	default:
		ttl := exptime - f.now().Unix()
		return ttl, ttl > 0
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func clientError(reply []byte, msg string) []byte {
	reply = append(reply, "CLIENT_ERROR "...)
	reply = append(reply, msg...)
	return append(reply, crlf...)
}

// errorReply maps a classified error: invalid input is the client's fault,
// everything else the server's
func errorReply(reply []byte, err error) []byte {
	msg := strings.TrimPrefix(commands.ErrorReply(err), "ERR ")
	if backend.KindOf(err) == backend.KindInvalidInput {
		return clientError(reply, msg)
	}
	reply = append(reply, "SERVER_ERROR "...)
	reply = append(reply, msg...)
	return append(reply, crlf...)
}

// send writes one reply and updates the session counters
func send(w io.Writer, reply []byte) error {
	n, err := w.Write(reply)
	metrics.RecordSend(n, err)
	return err
}

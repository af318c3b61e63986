package resp

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/backend/lstore"
	"github.com/ValentinKolb/kvproxy/lib/commands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	io.Reader
	io.Writer
}

// run feeds input to a fresh session and returns everything written back
func run(t *testing.T, store *lstore.Store, input string) (string, error) {
	t.Helper()
	b, err := store.Factory()()
	require.NoError(t, err)
	client := commands.NewClient(b, commands.Config{Timeout: 100 * time.Millisecond}, nil)
	defer client.Close()

	var out bytes.Buffer
	err = New().Serve(context.Background(), session{strings.NewReader(input), &out}, client)
	return out.String(), err
}

func cmd(args ...string) string {
	var sb strings.Builder
	sb.WriteString("*" + strconv.Itoa(len(args)) + "\r\n")
	for _, a := range args {
		sb.WriteString("$" + strconv.Itoa(len(a)) + "\r\n" + a + "\r\n")
	}
	return sb.String()
}

func TestServe_Commands(t *testing.T) {
	store := lstore.NewLocalStore(nil)

	tests := []struct {
		name  string
		input string
		reply string
	}{
		{"ping inline", "PING\r\n", "+PONG\r\n"},
		{"ping message", cmd("ping", "hi"), "$2\r\nhi\r\n"},
		{"set and get", cmd("set", "foo", "bar") + cmd("GET", "foo"), "+OK\r\n$3\r\nbar\r\n"},
		{"get missing", cmd("get", "missing"), "$-1\r\n"},
		{"invalid key", "*2\r\n$3\r\nget\r\n$2\r\n\xff\xfe\r\n" + cmd("ping"), "-ERR invalid key\r\n+PONG\r\n"},
		{"rpush and lrange", cmd("rpush", "l", "a", "bb") + cmd("lrange", "l", "0", "1"), ":2\r\n*2\r\n$1\r\na\r\n$2\r\nbb\r\n"},
		{"lindex", cmd("rpush", "l2", "x") + cmd("lindex", "l2", "0"), ":1\r\n$1\r\nx\r\n"},
		{"sinter", cmd("sadd", "a", "x", "y") + cmd("sadd", "b", "y") + cmd("sinter", "a", "b"), ":2\r\n:1\r\n*1\r\n$1\r\ny\r\n"},
		{"hlen missing", cmd("hlen", "h"), ":0\r\n"},
		{"unknown command", cmd("flushall"), "-ERR unknown command 'flushall'\r\n"},
		{"arity", cmd("get"), "-ERR wrong number of arguments for 'get' command\r\n"},
		{"not an integer", cmd("lindex", "l", "x"), "-ERR value is not an integer or out of range\r\n"},
		{"set with ex", cmd("set", "t", "v", "EX", "10"), "+OK\r\n"},
		{"set bad option", cmd("set", "t", "v", "PX", "10"), "-ERR syntax error\r\n"},
		{"quit stops reading", cmd("quit") + cmd("ping"), "+OK\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, store, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.reply, out)
		})
	}
}

func TestServe_ProtocolError(t *testing.T) {
	out, err := run(t, lstore.NewLocalStore(nil), "*2\r\n$x\r\n")

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out, "-ERR Protocol error"), out)
}

func TestServe_TimeoutKeepsSession(t *testing.T) {
	store := lstore.NewLocalStore(&lstore.Options{Latency: time.Second})

	out, err := run(t, store, cmd("get", "foo")+cmd("ping"))

	require.NoError(t, err)
	assert.Equal(t, "-ERR backend timeout\r\n+PONG\r\n", out)
}

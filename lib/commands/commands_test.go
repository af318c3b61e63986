package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/backend/lstore"
	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// --------------------------------------------------------------------------
// Test Backend
// --------------------------------------------------------------------------

type listCall struct {
	key        string
	start, end *int32
}

// mockBackend serves an in-memory store and records the calls it receives.
// Replies can be overridden per method to simulate backend quirks.
type mockBackend struct {
	*lstore.Store

	mu        sync.Mutex
	calls     []string
	listCalls []listCall
	pushed    [][]byte

	// hang blocks the next call until its context is cancelled
	hang bool
	// err is returned by every call while set
	err error
	// listReply overrides the reply of ListFetch
	listReply *backend.Outcome[[][]byte]
}

func newMock() *mockBackend {
	return &mockBackend{Store: lstore.NewLocalStore(nil)}
}

func (m *mockBackend) enter(ctx context.Context, call string) error {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	hang, err := m.hang, m.err
	m.hang = false
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (m *mockBackend) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockBackend) Get(ctx context.Context, key string) (backend.Outcome[[]byte], error) {
	if err := m.enter(ctx, "get "+key); err != nil {
		return backend.Outcome[[]byte]{}, err
	}
	return m.Store.Get(ctx, key)
}

func (m *mockBackend) DictionaryLength(ctx context.Context, key string) (backend.Outcome[uint32], error) {
	if err := m.enter(ctx, "dictionary_length "+key); err != nil {
		return backend.Outcome[uint32]{}, err
	}
	return m.Store.DictionaryLength(ctx, key)
}

func (m *mockBackend) ListFetch(ctx context.Context, key string, start, end *int32) (backend.Outcome[[][]byte], error) {
	if err := m.enter(ctx, "list_fetch "+key); err != nil {
		return backend.Outcome[[][]byte]{}, err
	}
	m.mu.Lock()
	m.listCalls = append(m.listCalls, listCall{key: key, start: start, end: end})
	reply := m.listReply
	m.mu.Unlock()

	if reply != nil {
		return *reply, nil
	}
	return m.Store.ListFetch(ctx, key, start, end)
}

func (m *mockBackend) ListConcatenateFront(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	if err := m.enter(ctx, "list_concatenate_front "+key); err != nil {
		return err
	}
	m.mu.Lock()
	m.pushed = values
	m.mu.Unlock()
	return m.Store.ListConcatenateFront(ctx, key, values, ttl)
}

func (m *mockBackend) SetFetch(ctx context.Context, key string) (backend.Outcome[[][]byte], error) {
	if err := m.enter(ctx, "set_fetch "+key); err != nil {
		return backend.Outcome[[][]byte]{}, err
	}
	return m.Store.SetFetch(ctx, key)
}

func (m *mockBackend) SetRemoveElements(ctx context.Context, key string, elements [][]byte) error {
	if err := m.enter(ctx, "set_remove_elements "+key); err != nil {
		return err
	}
	return m.Store.SetRemoveElements(ctx, key, elements)
}

func newTestClient(t *testing.T, m *mockBackend) *Client {
	t.Helper()
	c := NewClient(m, Config{Timeout: 50 * time.Millisecond}, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func bs(values ...string) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}

func i32(v int32) *int32 { return &v }

// --------------------------------------------------------------------------
// GET
// --------------------------------------------------------------------------

func TestGet(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.Set(ctx, "foo", []byte("bar"), 0))

	hits, misses := metrics.Get.Hits.Get(), metrics.Get.Misses.Get()

	var w bytes.Buffer
	require.NoError(t, c.Get(ctx, &w, &GetRequest{Key: []byte("foo")}))
	assert.Equal(t, "$3\r\nbar\r\n", w.String())

	w.Reset()
	require.NoError(t, c.Get(ctx, &w, &GetRequest{Key: []byte("missing")}))
	assert.Equal(t, "$-1\r\n", w.String())

	assert.Equal(t, hits+1, metrics.Get.Hits.Get())
	assert.Equal(t, misses+1, metrics.Get.Misses.Get())
}

func TestGet_InvalidKey(t *testing.T) {
	m := newMock()
	c := newTestClient(t, m)
	errs := metrics.Get.Errors.Get()

	var w bytes.Buffer
	err := c.Get(context.Background(), &w, &GetRequest{Key: []byte{0xff, 0xfe}})

	require.Error(t, err)
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))
	assert.Equal(t, "-ERR invalid key\r\n", w.String())
	assert.Empty(t, m.recorded(), "no backend call for an invalid key")
	assert.Equal(t, errs+1, metrics.Get.Errors.Get())
}

func TestGet_TimeoutKeepsClientUsable(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.Set(ctx, "foo", []byte("bar"), 0))
	timeouts := metrics.BackendTimeouts.Get()

	m.hang = true
	var w bytes.Buffer
	require.NoError(t, c.Get(ctx, &w, &GetRequest{Key: []byte("foo")}))
	assert.Equal(t, "-ERR backend timeout\r\n", w.String())
	assert.Equal(t, timeouts+1, metrics.BackendTimeouts.Get())

	w.Reset()
	require.NoError(t, c.Get(ctx, &w, &GetRequest{Key: []byte("foo")}))
	assert.Equal(t, "$3\r\nbar\r\n", w.String())
}

func TestGet_BackendErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		reply string
	}{
		{"rate limited", fmt.Errorf("%w: slow down", backend.ErrLimitExceeded), "-ERR ratelimit exceed\r\n"},
		{"generic", errors.New("connection refused"), "-ERR backend error\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMock()
			m.err = tt.err
			c := newTestClient(t, m)

			var w bytes.Buffer
			require.NoError(t, c.Get(context.Background(), &w, &GetRequest{Key: []byte("foo")}))
			assert.Equal(t, tt.reply, w.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestGet_WriteError(t *testing.T) {
	c := newTestClient(t, newMock())
	sendErrors := metrics.SessionSendErrors.Get()

	err := c.Get(context.Background(), failingWriter{}, &GetRequest{Key: []byte("foo")})

	require.Error(t, err)
	assert.Equal(t, sendErrors+1, metrics.SessionSendErrors.Get())
}

// --------------------------------------------------------------------------
// SET, HLEN
// --------------------------------------------------------------------------

func TestSet(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)

	var buf Buffer
	require.NoError(t, c.Set(ctx, &buf, &SetRequest{Key: []byte("foo"), Value: []byte("bar")}))
	assert.Equal(t, "+OK\r\n", string(buf.Bytes()))

	out, err := m.Store.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("bar"), out.Value)

	buf.Reset()
	err = c.Set(ctx, &buf, &SetRequest{Key: []byte("foo"), Value: []byte("x"), TTLSeconds: -1})
	require.Error(t, err)
	assert.Equal(t, "-ERR invalid expire time\r\n", string(buf.Bytes()))
}

func TestHashLength(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	m.Store.SetDictionary("user:1", map[string][]byte{"name": []byte("a"), "age": []byte("3")}, 0)

	var buf Buffer
	require.NoError(t, c.HashLength(ctx, &buf, &HashLengthRequest{Key: []byte("user:1")}))
	assert.Equal(t, ":2\r\n", string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, c.HashLength(ctx, &buf, &HashLengthRequest{Key: []byte("user:2")}))
	assert.Equal(t, ":0\r\n", string(buf.Bytes()))
}

// --------------------------------------------------------------------------
// Lists
// --------------------------------------------------------------------------

func TestListRange(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.ListConcatenateBack(ctx, "k", bs("a", "bb", "c"), 0))

	tests := []struct {
		name        string
		key         string
		start, stop int64
		reply       string
	}{
		{"prefix", "k", 0, 1, "*2\r\n$1\r\na\r\n$2\r\nbb\r\n"},
		{"whole list", "k", 0, -1, "*3\r\n$1\r\na\r\n$2\r\nbb\r\n$1\r\nc\r\n"},
		{"negative start", "k", -2, -1, "*2\r\n$2\r\nbb\r\n$1\r\nc\r\n"},
		{"past the end", "k", 5, 10, "*0\r\n"},
		{"missing list", "nope", 0, -1, "*0\r\n"},
		{"start beyond int32", "k", math.MaxInt32 + 1, -1, "*0\r\n"},
		{"stop before int32", "k", 0, math.MinInt32 - 1, "*0\r\n"},
		{"start before int32", "k", math.MinInt32 - 1, 0, "*1\r\n$1\r\na\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf Buffer
			require.NoError(t, c.ListRange(ctx, &buf, &ListRangeRequest{Key: []byte(tt.key), Start: tt.start, Stop: tt.stop}))
			assert.Equal(t, tt.reply, string(buf.Bytes()))
		})
	}
}

func TestListRange_ExclusiveEnd(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)

	var buf Buffer
	require.NoError(t, c.ListRange(ctx, &buf, &ListRangeRequest{Key: []byte("k"), Start: 0, Stop: 1}))
	require.NoError(t, c.ListRange(ctx, &buf, &ListRangeRequest{Key: []byte("k"), Start: 0, Stop: math.MaxInt64}))

	require.Len(t, m.listCalls, 2)
	assert.Equal(t, listCall{key: "k", start: i32(0), end: i32(2)}, m.listCalls[0])
	// saturated and out of the int32 range: open end
	assert.Equal(t, listCall{key: "k", start: i32(0), end: nil}, m.listCalls[1])
}

func TestListIndex(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.ListConcatenateBack(ctx, "k", bs("a", "bb", "c"), 0))

	tests := []struct {
		name  string
		key   string
		index int64
		reply string
	}{
		{"first", "k", 0, "$1\r\na\r\n"},
		{"last", "k", -1, "$1\r\nc\r\n"},
		{"second last", "k", -2, "$2\r\nbb\r\n"},
		{"out of range", "k", 7, "-ERR unexpected response from server\r\n"},
		{"missing list", "nope", 0, "$-1\r\n"},
		{"beyond int32", "k", 5_000_000_000, "$-1\r\n"},
		{"before int32", "k", -5_000_000_000, "$-1\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf Buffer
			_ = c.ListIndex(ctx, &buf, &ListIndexRequest{Key: []byte(tt.key), Index: tt.index})
			assert.Equal(t, tt.reply, string(buf.Bytes()))
		})
	}
}

func TestList_OutsideInt32SkipsBackend(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.ListConcatenateBack(ctx, "k", bs("only"), 0))

	var buf Buffer
	require.NoError(t, c.ListIndex(ctx, &buf, &ListIndexRequest{Key: []byte("k"), Index: 5_000_000_000}))
	assert.Equal(t, "$-1\r\n", string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, c.ListRange(ctx, &buf, &ListRangeRequest{Key: []byte("k"), Start: 5_000_000_000, Stop: -1}))
	assert.Equal(t, "*0\r\n", string(buf.Bytes()))

	assert.Empty(t, m.listCalls)
}

func TestListIndex_UnexpectedCardinality(t *testing.T) {
	m := newMock()
	m.listReply = &backend.Outcome[[][]byte]{Status: backend.StatusHit, Value: bs("a", "b")}
	c := newTestClient(t, m)

	var buf Buffer
	err := c.ListIndex(context.Background(), &buf, &ListIndexRequest{Key: []byte("k"), Index: 3})

	require.Error(t, err)
	assert.Equal(t, backend.KindCustom, backend.KindOf(err))
	assert.Equal(t, "-ERR unexpected response from server\r\n", string(buf.Bytes()))
	require.Len(t, m.listCalls, 1)
	assert.Equal(t, listCall{key: "k", start: i32(3), end: i32(4)}, m.listCalls[0])
}

func TestListPush(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)

	var buf Buffer
	require.NoError(t, c.ListPush(ctx, &buf, &ListPushRequest{Key: []byte("k"), Elements: bs("a", "b"), Back: true}))
	assert.Equal(t, ":2\r\n", string(buf.Bytes()))

	// the reply counts the request, not the list
	buf.Reset()
	require.NoError(t, c.ListPush(ctx, &buf, &ListPushRequest{Key: []byte("k"), Elements: bs("x", "y", "z")}))
	assert.Equal(t, ":3\r\n", string(buf.Bytes()))
	assert.Equal(t, bs("z", "y", "x"), m.pushed)

	out, err := m.Store.ListFetch(ctx, "k", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, bs("z", "y", "x", "a", "b"), out.Value)
}

// --------------------------------------------------------------------------
// Sets
// --------------------------------------------------------------------------

func TestSetRemove_EmulatedCount(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.SetAddElements(ctx, "s", bs("a"), 0))

	var buf Buffer
	require.NoError(t, c.SetRemove(ctx, &buf, &SetRemoveRequest{Key: []byte("s"), Members: bs("a", "b", "c")}))
	assert.Equal(t, ":3\r\n", string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, c.SetAdd(ctx, &buf, &SetAddRequest{Key: []byte("s"), Members: bs("a", "a")}))
	assert.Equal(t, ":2\r\n", string(buf.Bytes()))
}

func TestSetAlgebra(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.SetAddElements(ctx, "a", bs("x", "y"), 0))
	require.NoError(t, m.Store.SetAddElements(ctx, "b", bs("y"), 0))

	var buf Buffer
	require.NoError(t, c.SetIntersect(ctx, &buf, &SetIntersectRequest{SetKeys: bs("a", "b")}))
	assert.Equal(t, "*1\r\n$1\r\ny\r\n", string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, c.SetDiff(ctx, &buf, &SetDiffRequest{SetKeys: bs("a", "b")}))
	assert.Equal(t, "*1\r\n$1\r\nx\r\n", string(buf.Bytes()))

	buf.Reset()
	require.NoError(t, c.SetUnion(ctx, &buf, &SetUnionRequest{SetKeys: bs("b", "missing", "a")}))
	assert.Contains(t, []string{
		"*2\r\n$1\r\nx\r\n$1\r\ny\r\n",
		"*2\r\n$1\r\ny\r\n$1\r\nx\r\n",
	}, string(buf.Bytes()))
}

func TestSetDiff_EmptyBaseSkipsFetches(t *testing.T) {
	ctx := context.Background()
	m := newMock()
	c := newTestClient(t, m)
	require.NoError(t, m.Store.SetAddElements(ctx, "b", bs("y"), 0))

	var buf Buffer
	require.NoError(t, c.SetDiff(ctx, &buf, &SetDiffRequest{SetKeys: bs("missing", "b")}))

	assert.Equal(t, "*0\r\n", string(buf.Bytes()))
	assert.Equal(t, []string{"set_fetch missing"}, m.recorded())
}

func TestSetAlgebra_ErrorAborts(t *testing.T) {
	m := newMock()
	m.hang = true
	c := newTestClient(t, m)

	var buf Buffer
	err := c.SetUnion(context.Background(), &buf, &SetUnionRequest{SetKeys: bs("a", "b")})

	require.Error(t, err)
	assert.Equal(t, "-ERR backend timeout\r\n", string(buf.Bytes()))
	assert.Equal(t, []string{"set_fetch a"}, m.recorded())
}

func TestSetDiff_NoKeys(t *testing.T) {
	c := newTestClient(t, newMock())

	var buf Buffer
	err := c.SetDiff(context.Background(), &buf, &SetDiffRequest{})

	require.Error(t, err)
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))
	assert.Equal(t, byte('-'), buf.Bytes()[0])
}

// --------------------------------------------------------------------------
// Dispatch, accounting
// --------------------------------------------------------------------------

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, newMock())

	var buf Buffer
	require.NoError(t, c.Dispatch(ctx, &buf, &ListPushRequest{Key: []byte("k"), Elements: bs("a"), Back: true}))
	require.NoError(t, c.Dispatch(ctx, &buf, &ListRangeRequest{Key: []byte("k"), Start: 0, Stop: -1}))
	assert.Equal(t, ":1\r\n*1\r\n$1\r\na\r\n", string(buf.Bytes()))

	// GET is not routed through Dispatch
	buf.Reset()
	err := c.Dispatch(ctx, &buf, &GetRequest{Key: []byte("k")})
	require.Error(t, err)
	assert.Equal(t, "-ERR unsupported command 'get'\r\n", string(buf.Bytes()))
}

func TestInvalidKeyOnEveryCommand(t *testing.T) {
	bad := []byte{0xc3, 0x28}
	requests := []Request{
		&SetRequest{Key: bad, Value: []byte("v")},
		&HashLengthRequest{Key: bad},
		&ListIndexRequest{Key: bad},
		&ListRangeRequest{Key: bad},
		&ListPushRequest{Key: bad, Elements: bs("a")},
		&SetAddRequest{Key: bad, Members: bs("a")},
		&SetRemoveRequest{Key: bad, Members: bs("a")},
		&SetDiffRequest{SetKeys: [][]byte{[]byte("ok"), bad}},
		&SetIntersectRequest{SetKeys: [][]byte{bad}},
		&SetUnionRequest{SetKeys: [][]byte{bad}},
	}

	for _, req := range requests {
		t.Run(req.Command(), func(t *testing.T) {
			m := newMock()
			c := newTestClient(t, m)

			var buf Buffer
			err := c.Dispatch(context.Background(), &buf, req)

			require.Error(t, err)
			assert.Equal(t, "-ERR invalid key\r\n", string(buf.Bytes()))
			assert.Empty(t, m.recorded())
		})
	}
}

func TestCommandLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := newMock()
	c := NewClient(m, Config{Timeout: 50 * time.Millisecond}, klog.NewWithLogger(zap.New(core), 1))

	var buf Buffer
	require.NoError(t, c.SetAdd(context.Background(), &buf, &SetAddRequest{Key: []byte("s"), Members: bs("a")}))
	m.hang = true
	require.Error(t, c.HashLength(context.Background(), &buf, &HashLengthRequest{Key: []byte("h")}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "sadd", entries[0].Message)
	assert.Equal(t, "stored", entries[0].ContextMap()["status"])
	assert.Equal(t, "hlen", entries[1].Message)
	assert.Equal(t, "timeout", entries[1].ContextMap()["status"])
	assert.EqualValues(t, 0, entries[1].ContextMap()["size"])
}

func TestErrorCounters(t *testing.T) {
	m := newMock()
	c := newTestClient(t, m)
	requests, errs := metrics.HLen.Requests.Get(), metrics.HLen.Errors.Get()

	m.err = errors.New("boom")
	var buf Buffer
	require.Error(t, c.HashLength(context.Background(), &buf, &HashLengthRequest{Key: []byte("h")}))

	assert.Equal(t, requests+1, metrics.HLen.Requests.Get())
	assert.Equal(t, errs+1, metrics.HLen.Errors.Get())
}

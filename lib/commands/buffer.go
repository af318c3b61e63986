package commands

import (
	"errors"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/tidwall/redcon"
)

// Buffer holds the RESP encoded reply of a single command
type Buffer struct {
	b []byte
}

// Bytes returns the encoded reply
func (b *Buffer) Bytes() []byte { return b.b }

// Len returns the size of the encoded reply in bytes
func (b *Buffer) Len() int { return len(b.b) }

// Reset discards the content, keeping the allocated memory
func (b *Buffer) Reset() { b.b = b.b[:0] }

func (b *Buffer) truncate(n int) { b.b = b.b[:n] }

// Bulk appends $<len>\r\n<value>\r\n
func (b *Buffer) Bulk(value []byte) { b.b = redcon.AppendBulk(b.b, value) }

// Nil appends $-1\r\n
func (b *Buffer) Nil() { b.b = redcon.AppendNull(b.b) }

// Int appends :<n>\r\n
func (b *Buffer) Int(n int64) { b.b = redcon.AppendInt(b.b, n) }

// Array appends the array header *<n>\r\n, the caller appends the n elements
func (b *Buffer) Array(n int) { b.b = redcon.AppendArray(b.b, n) }

// BulkArray appends an array of bulk strings
func (b *Buffer) BulkArray(values [][]byte) {
	b.Array(len(values))
	for _, v := range values {
		b.Bulk(v)
	}
}

// OK appends +OK\r\n
func (b *Buffer) OK() { b.b = redcon.AppendOK(b.b) }

// Status appends +<msg>\r\n
func (b *Buffer) Status(msg string) { b.b = redcon.AppendString(b.b, msg) }

// Error appends -<msg>\r\n
func (b *Buffer) Error(msg string) { b.b = redcon.AppendError(b.b, msg) }

// Fail replaces the content with the error reply for err
func (b *Buffer) Fail(err error) {
	b.Reset()
	b.Error(ErrorReply(err))
}

// ErrorReply returns the RESP error message (without the leading '-') for err
func ErrorReply(err error) string {
	var e *backend.Error
	if !errors.As(err, &e) {
		return "ERR backend error"
	}

	switch e.Kind {
	case backend.KindInvalidInput:
		if e.Msg == "" {
			return "ERR invalid key"
		}
		return "ERR " + e.Msg
	case backend.KindTimeout:
		return "ERR backend timeout"
	case backend.KindRateLimited:
		return "ERR ratelimit exceed"
	case backend.KindCustom:
		return "ERR " + e.Msg
	default:
		return "ERR backend error"
	}
}

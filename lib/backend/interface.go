package backend

import (
	"context"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory creates a new backend client. The proxy calls it once per accepted connection.
type Factory func() (IBackend, error)

// IBackend is the set of operations offered by the remote cache.
// Read operations return an Outcome, write operations only an error.
// Collections are addressed by key, all element values are opaque bytes.
type IBackend interface {
	// Get fetches a scalar value.
	Get(ctx context.Context, key string) (Outcome[[]byte], error)
	// Set stores a scalar value. A zero ttl stores the value without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DictionaryLength returns the number of fields in a dictionary.
	DictionaryLength(ctx context.Context, key string) (Outcome[uint32], error)
	// ListFetch returns the elements of a list in the range [start, end).
	// Negative indices count from the end of the list, a nil bound is open.
	ListFetch(ctx context.Context, key string, start, end *int32) (Outcome[[][]byte], error)
	// ListConcatenateFront prepends values to a list, keeping their order, and refreshes the ttl of the list.
	ListConcatenateFront(ctx context.Context, key string, values [][]byte, ttl time.Duration) error
	// ListConcatenateBack appends values to a list and refreshes the ttl of the list.
	ListConcatenateBack(ctx context.Context, key string, values [][]byte, ttl time.Duration) error
	// SetFetch returns all elements of a set in no particular order.
	SetFetch(ctx context.Context, key string) (Outcome[[][]byte], error)
	// SetAddElements adds elements to a set and refreshes the ttl of the set.
	SetAddElements(ctx context.Context, key string, elements [][]byte, ttl time.Duration) error
	// SetRemoveElements removes elements from a set.
	SetRemoveElements(ctx context.Context, key string, elements [][]byte) error
	// Close releases the resources held by the client.
	Close() error
}

// --------------------------------------------------------------------------
// Outcome
// --------------------------------------------------------------------------

// Status tells whether a read operation found its key
type Status uint8

const (
	StatusMiss Status = iota // 0: Key or collection not present.
	StatusHit                // 1: Key or collection present, Value is set.
)

// Outcome is the result of a single read operation against the backend
type Outcome[T any] struct {
	Status Status
	Value  T
}

// Hit returns a Hit outcome carrying value
func Hit[T any](value T) Outcome[T] {
	return Outcome[T]{Status: StatusHit, Value: value}
}

// Miss returns a Miss outcome
func Miss[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusMiss}
}

// IsHit reports whether the outcome is a Hit
func (o Outcome[T]) IsHit() bool {
	return o.Status == StatusHit
}

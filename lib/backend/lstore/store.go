package lstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/puzpuzpuz/xsync/v3"
)

type kind uint8

const (
	kindScalar kind = iota
	kindDictionary
	kindList
	kindSet
)

func (k kind) String() string {
	switch k {
	case kindScalar:
		return "scalar"
	case kindDictionary:
		return "dictionary"
	case kindList:
		return "list"
	default:
		return "set"
	}
}

// entry is never modified after it was stored
type entry struct {
	kind      kind
	scalar    []byte
	dict      map[string][]byte
	list      [][]byte
	set       map[string]struct{}
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Options configures a Store
type Options struct {
	// Latency is added to every call
	Latency time.Duration
}

// Store is an in-memory backend. Expired keys are dropped lazily on access and
// actively on every write through the expiry queue.
type Store struct {
	data    *xsync.MapOf[string, *entry]
	options Options
	now     func() time.Time

	mu    sync.Mutex // guards queue
	queue *expiryQueue
}

// NewLocalStore creates a new empty store
func NewLocalStore(options *Options) *Store {
	s := &Store{
		data:  xsync.NewMapOf[string, *entry](),
		now:   time.Now,
		queue: newExpiryQueue(),
	}
	if options != nil {
		s.options = *options
	}
	return s
}

// Factory returns a backend.Factory handing out clients that share this store.
// Closing such a client does not affect the store.
func (s *Store) Factory() backend.Factory {
	return func() (backend.IBackend, error) {
		return &client{s}, nil
	}
}

// client wraps the shared store so that Close is a no-op per connection
type client struct {
	*Store
}

func (c *client) Close() error { return nil }

// SetDictionary replaces a dictionary. The backend interface has no dictionary
// writes, so this is the only way to populate one.
func (s *Store) SetDictionary(key string, fields map[string][]byte, ttl time.Duration) {
	dict := make(map[string][]byte, len(fields))
	for f, v := range fields {
		dict[f] = clone(v)
	}
	expiresAt := s.expiry(ttl)
	s.data.Store(key, &entry{kind: kindDictionary, dict: dict, expiresAt: expiresAt})
	s.schedule(key, expiresAt)
}

// Delete removes a key of any kind
func (s *Store) Delete(key string) {
	s.data.Delete(key)
	s.schedule(key, time.Time{})
}

// Len returns the number of stored keys (including expired keys not yet dropped)
func (s *Store) Len() int {
	return s.data.Size()
}

// Reap drops every key whose expiry has passed and returns how many were dropped
func (s *Store) Reap() int {
	s.mu.Lock()
	keys := s.queue.due(s.now())
	s.mu.Unlock()

	dropped := 0
	for _, key := range keys {
		s.data.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
			drop := loaded && old.expired(s.now())
			if drop {
				dropped++
			}
			return old, !loaded || drop
		})
	}
	return dropped
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Get(ctx context.Context, key string) (backend.Outcome[[]byte], error) {
	if err := s.wait(ctx); err != nil {
		return backend.Outcome[[]byte]{}, err
	}
	e, err := s.load(key, kindScalar)
	if err != nil || e == nil {
		return backend.Miss[[]byte](), err
	}
	return backend.Hit(clone(e.scalar)), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.Reap()
	expiresAt := s.expiry(ttl)
	s.data.Store(key, &entry{kind: kindScalar, scalar: clone(value), expiresAt: expiresAt})
	s.schedule(key, expiresAt)
	return nil
}

func (s *Store) DictionaryLength(ctx context.Context, key string) (backend.Outcome[uint32], error) {
	if err := s.wait(ctx); err != nil {
		return backend.Outcome[uint32]{}, err
	}
	e, err := s.load(key, kindDictionary)
	if err != nil || e == nil {
		return backend.Miss[uint32](), err
	}
	return backend.Hit(uint32(len(e.dict))), nil
}

func (s *Store) ListFetch(ctx context.Context, key string, start, end *int32) (backend.Outcome[[][]byte], error) {
	if err := s.wait(ctx); err != nil {
		return backend.Outcome[[][]byte]{}, err
	}
	e, err := s.load(key, kindList)
	if err != nil || e == nil {
		return backend.Miss[[][]byte](), err
	}

	from, to := resolveRange(len(e.list), start, end)
	values := make([][]byte, 0, to-from)
	for _, v := range e.list[from:to] {
		values = append(values, clone(v))
	}
	return backend.Hit(values), nil
}

func (s *Store) ListConcatenateFront(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	return s.updateList(ctx, key, ttl, func(list [][]byte) [][]byte {
		out := make([][]byte, 0, len(values)+len(list))
		out = append(out, cloneAll(values)...)
		return append(out, list...)
	})
}

func (s *Store) ListConcatenateBack(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	return s.updateList(ctx, key, ttl, func(list [][]byte) [][]byte {
		out := make([][]byte, 0, len(values)+len(list))
		out = append(out, list...)
		return append(out, cloneAll(values)...)
	})
}

func (s *Store) SetFetch(ctx context.Context, key string) (backend.Outcome[[][]byte], error) {
	if err := s.wait(ctx); err != nil {
		return backend.Outcome[[][]byte]{}, err
	}
	e, err := s.load(key, kindSet)
	if err != nil || e == nil {
		return backend.Miss[[][]byte](), err
	}
	values := make([][]byte, 0, len(e.set))
	for member := range e.set {
		values = append(values, []byte(member))
	}
	return backend.Hit(values), nil
}

func (s *Store) SetAddElements(ctx context.Context, key string, elements [][]byte, ttl time.Duration) error {
	return s.updateSet(ctx, key, ttl, true, func(set map[string]struct{}) {
		for _, el := range elements {
			set[string(el)] = struct{}{}
		}
	})
}

func (s *Store) SetRemoveElements(ctx context.Context, key string, elements [][]byte) error {
	return s.updateSet(ctx, key, 0, false, func(set map[string]struct{}) {
		for _, el := range elements {
			delete(set, string(el))
		}
	})
}

func (s *Store) Close() error {
	s.data.Clear()
	s.mu.Lock()
	s.queue = newExpiryQueue()
	s.mu.Unlock()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// wait applies the configured latency
func (s *Store) wait(ctx context.Context) error {
	if s.options.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.options.Latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule records the expiry of key. It must not be called from a Compute
// callback, Reap takes the locks in the opposite order.
func (s *Store) schedule(key string, expiresAt time.Time) {
	s.mu.Lock()
	s.queue.schedule(key, expiresAt)
	s.mu.Unlock()
}

func (s *Store) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// load returns the live entry for key, nil if there is none.
// An entry of another kind is reported as an error.
func (s *Store) load(key string, k kind) (*entry, error) {
	e, ok := s.data.Load(key)
	if !ok {
		return nil, nil
	}
	if e.expired(s.now()) {
		s.data.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
			return old, !loaded || old.expired(s.now())
		})
		return nil, nil
	}
	if e.kind != k {
		return nil, wrongType(key, e.kind, k)
	}
	return e, nil
}

func (s *Store) updateList(ctx context.Context, key string, ttl time.Duration, fn func(list [][]byte) [][]byte) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.Reap()
	var err error
	expiresAt := s.expiry(ttl)
	s.data.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		var list [][]byte
		if loaded && !old.expired(s.now()) {
			if old.kind != kindList {
				err = wrongType(key, old.kind, kindList)
				return old, false
			}
			list = old.list
		}
		return &entry{kind: kindList, list: fn(list), expiresAt: expiresAt}, false
	})
	if err == nil {
		s.schedule(key, expiresAt)
	}
	return err
}

func (s *Store) updateSet(ctx context.Context, key string, ttl time.Duration, create bool, fn func(set map[string]struct{})) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	s.Reap()
	var (
		err       error
		expiresAt time.Time
	)
	s.data.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		live := loaded && !old.expired(s.now())
		if live && old.kind != kindSet {
			err = wrongType(key, old.kind, kindSet)
			return old, false
		}
		if !live && !create {
			return old, true
		}

		set := make(map[string]struct{})
		expiresAt = s.expiry(ttl)
		if live {
			for m := range old.set {
				set[m] = struct{}{}
			}
			if ttl <= 0 {
				expiresAt = old.expiresAt
			}
		}
		fn(set)

		// like most caches, an empty set is the same as no set
		if len(set) == 0 {
			expiresAt = time.Time{}
			return nil, true
		}
		return &entry{kind: kindSet, set: set, expiresAt: expiresAt}, false
	})
	if err == nil {
		s.schedule(key, expiresAt)
	}
	return err
}

// resolveRange converts [start, end) with optional negative bounds into slice bounds
func resolveRange(length int, start, end *int32) (int, int) {
	norm := func(i *int32, def int) int {
		if i == nil {
			return def
		}
		v := int(*i)
		if v < 0 {
			v += length
		}
		return min(max(v, 0), length)
	}
	from, to := norm(start, 0), norm(end, length)
	if from > to {
		return 0, 0
	}
	return from, to
}

func wrongType(key string, got, want kind) error {
	return fmt.Errorf("key %q holds a %s, not a %s", key, got, want)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneAll(values [][]byte) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = clone(v)
	}
	return out
}

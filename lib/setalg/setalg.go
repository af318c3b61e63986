// Package setalg computes the difference, intersection and union of sets that
// can only be fetched one key at a time.
//
// Keys are fetched strictly one after the other, in the given order. For
// difference and intersection, fetching stops as soon as the running result is
// empty, since neither can grow again. Union always fetches every key.
// The first error aborts the whole evaluation; no partial result is returned.
//
// The result is not atomic: a set modified by another client while the keys are
// fetched can lead to a composite result that never existed at a single point in time.
package setalg

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/kvproxy/lib/backend"
)

// Mode selects the set operation
type Mode uint8

const (
	Difference Mode = iota
	Intersection
	Union
)

func (m Mode) String() string {
	switch m {
	case Difference:
		return "difference"
	case Intersection:
		return "intersection"
	case Union:
		return "union"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// FetchFunc fetches the set stored at key. A Miss counts as the empty set.
type FetchFunc func(ctx context.Context, key []byte) (backend.Outcome[[][]byte], error)

// Set is a set of byte strings
type Set map[string]struct{}

// Members returns the elements of the set in no particular order
func (s Set) Members() [][]byte {
	out := make([][]byte, 0, len(s))
	for m := range s {
		out = append(out, []byte(m))
	}
	return out
}

// Evaluate computes mode over the sets stored at keys.
// Difference is the first set minus the union of all others, intersection and
// union reduce from left to right. Difference and intersection need at least one key.
func Evaluate(ctx context.Context, mode Mode, keys [][]byte, fetch FetchFunc) (Set, error) {
	if len(keys) == 0 {
		if mode == Union {
			return Set{}, nil
		}
		return nil, backend.InvalidInput(fmt.Sprintf("set %s requires at least one key", mode))
	}

	head, err := fetchSet(ctx, fetch, keys[0])
	if err != nil {
		return nil, err
	}

	result := head
	for _, key := range keys[1:] {
		if len(result) == 0 && mode != Union {
			break
		}

		out, err := fetch(ctx, key)
		if err != nil {
			return nil, err
		}

		switch mode {
		case Difference:
			if out.IsHit() {
				for _, el := range out.Value {
					delete(result, string(el))
				}
			}
		case Intersection:
			if !out.IsHit() {
				clear(result)
				continue
			}
			next := newSet(out.Value)
			for m := range result {
				if _, ok := next[m]; !ok {
					delete(result, m)
				}
			}
		case Union:
			if out.IsHit() {
				for _, el := range out.Value {
					result[string(el)] = struct{}{}
				}
			}
		}
	}

	return result, nil
}

func fetchSet(ctx context.Context, fetch FetchFunc, key []byte) (Set, error) {
	out, err := fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	if !out.IsHit() {
		return Set{}, nil
	}
	return newSet(out.Value), nil
}

func newSet(values [][]byte) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[string(v)] = struct{}{}
	}
	return s
}

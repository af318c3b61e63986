package setalg

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSets serves sets from a map and records which keys were fetched
type fakeSets struct {
	sets    map[string][]string
	fail    map[string]error
	fetched []string
}

func (f *fakeSets) fetch(_ context.Context, key []byte) (backend.Outcome[[][]byte], error) {
	f.fetched = append(f.fetched, string(key))
	if err, ok := f.fail[string(key)]; ok {
		return backend.Outcome[[][]byte]{}, err
	}
	members, ok := f.sets[string(key)]
	if !ok {
		return backend.Miss[[][]byte](), nil
	}
	values := make([][]byte, len(members))
	for i, m := range members {
		values[i] = []byte(m)
	}
	return backend.Hit(values), nil
}

func keys(ks ...string) [][]byte {
	out := make([][]byte, len(ks))
	for i, k := range ks {
		out[i] = []byte(k)
	}
	return out
}

func members(s Set) []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	sets := map[string][]string{
		"a": {"x", "y", "z"},
		"b": {"y"},
		"c": {"z", "w"},
		"e": {},
	}

	tests := []struct {
		name     string
		mode     Mode
		keys     []string
		expected []string
		fetched  []string
	}{
		{"difference", Difference, []string{"a", "b", "c"}, []string{"x"}, []string{"a", "b", "c"}},
		{"difference with missing key", Difference, []string{"a", "missing"}, []string{"x", "y", "z"}, []string{"a", "missing"}},
		{"difference of missing base", Difference, []string{"missing", "a"}, []string{}, []string{"missing"}},
		{"difference of empty base", Difference, []string{"e", "a"}, []string{}, []string{"e"}},
		{"difference stops when empty", Difference, []string{"b", "a", "c"}, []string{}, []string{"b", "a"}},
		{"intersection", Intersection, []string{"a", "b"}, []string{"y"}, []string{"a", "b"}},
		{"intersection stops when empty", Intersection, []string{"b", "c", "a"}, []string{}, []string{"b", "c"}},
		{"intersection with missing key", Intersection, []string{"a", "missing", "b"}, []string{}, []string{"a", "missing"}},
		{"union", Union, []string{"a", "b", "c"}, []string{"x", "y", "z", "w"}, []string{"a", "b", "c"}},
		{"union fetches all keys", Union, []string{"missing", "e", "b"}, []string{"y"}, []string{"missing", "e", "b"}},
		{"single key", Intersection, []string{"c"}, []string{"z", "w"}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeSets{sets: sets}
			result, err := Evaluate(context.Background(), tt.mode, keys(tt.keys...), f.fetch)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, members(result))
			assert.Equal(t, tt.fetched, f.fetched)
		})
	}
}

func TestEvaluate_NoKeys(t *testing.T) {
	f := &fakeSets{}

	_, err := Evaluate(context.Background(), Difference, nil, f.fetch)
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))

	_, err = Evaluate(context.Background(), Intersection, nil, f.fetch)
	assert.Equal(t, backend.KindInvalidInput, backend.KindOf(err))

	result, err := Evaluate(context.Background(), Union, nil, f.fetch)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Empty(t, f.fetched)
}

func TestEvaluate_ErrorAborts(t *testing.T) {
	timeout := backend.NewError(backend.KindTimeout, "backend timeout")
	f := &fakeSets{
		sets: map[string][]string{"a": {"x"}, "c": {"x"}},
		fail: map[string]error{"b": timeout},
	}

	result, err := Evaluate(context.Background(), Union, keys("a", "b", "c"), f.fetch)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, timeout))
	assert.Equal(t, []string{"a", "b"}, f.fetched)
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	goredis "github.com/redis/go-redis/v9"
)

// Config holds the connection settings of the Redis backend
type Config struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
	CacheName  string
}

type storeImpl struct {
	client *goredis.Client
	prefix string
}

// NewFactory returns a backend.Factory creating one Redis client per call.
func NewFactory(config Config) backend.Factory {
	return func() (backend.IBackend, error) {
		return New(config)
	}
}

// New creates a Redis backend client. No connection is opened until the first call.
func New(config Config) (backend.IBackend, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis address must not be empty")
	}

	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: config.MaxRetries,
		PoolSize:   poolSize,

		// a call abandoned at its deadline must release the pooled connection
		ContextTimeoutEnabled: true,
	})

	prefix := ""
	if config.CacheName != "" {
		prefix = config.CacheName + ":"
	}

	return &storeImpl{client: client, prefix: prefix}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(ctx context.Context, key string) (backend.Outcome[[]byte], error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return backend.Miss[[]byte](), nil
	}
	if err != nil {
		return backend.Outcome[[]byte]{}, classify(err)
	}
	return backend.Hit(val), nil
}

func (s *storeImpl) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return classify(s.client.Set(ctx, s.key(key), value, ttl).Err())
}

func (s *storeImpl) DictionaryLength(ctx context.Context, key string) (backend.Outcome[uint32], error) {
	n, err := s.client.HLen(ctx, s.key(key)).Result()
	if err != nil {
		return backend.Outcome[uint32]{}, classify(err)
	}
	if n == 0 {
		return backend.Miss[uint32](), nil
	}
	return backend.Hit(uint32(n)), nil
}

func (s *storeImpl) ListFetch(ctx context.Context, key string, start, end *int32) (backend.Outcome[[][]byte], error) {
	k := s.key(key)
	from, to, empty := lrangeBounds(start, end)

	pipe := s.client.Pipeline()
	exists := pipe.Exists(ctx, k)
	var lrange *goredis.StringSliceCmd
	if !empty {
		lrange = pipe.LRange(ctx, k, from, to)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return backend.Outcome[[][]byte]{}, classify(err)
	}

	if exists.Val() == 0 {
		return backend.Miss[[][]byte](), nil
	}
	if empty {
		return backend.Hit([][]byte{}), nil
	}
	return backend.Hit(toBytes(lrange.Val())), nil
}

func (s *storeImpl) ListConcatenateFront(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	k := s.key(key)

	// LPUSH inserts one value after the other at the head, so the values are
	// pushed in reverse to keep their order at the front of the list
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[len(values)-1-i] = v
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, k, args...)
		if ttl > 0 {
			pipe.Expire(ctx, k, ttl)
		}
		return nil
	})
	return classify(err)
}

func (s *storeImpl) ListConcatenateBack(ctx context.Context, key string, values [][]byte, ttl time.Duration) error {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, k, toArgs(values)...)
		if ttl > 0 {
			pipe.Expire(ctx, k, ttl)
		}
		return nil
	})
	return classify(err)
}

func (s *storeImpl) SetFetch(ctx context.Context, key string) (backend.Outcome[[][]byte], error) {
	members, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return backend.Outcome[[][]byte]{}, classify(err)
	}
	if len(members) == 0 {
		return backend.Miss[[][]byte](), nil
	}
	return backend.Hit(toBytes(members)), nil
}

func (s *storeImpl) SetAddElements(ctx context.Context, key string, elements [][]byte, ttl time.Duration) error {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SAdd(ctx, k, toArgs(elements)...)
		if ttl > 0 {
			pipe.Expire(ctx, k, ttl)
		}
		return nil
	})
	return classify(err)
}

func (s *storeImpl) SetRemoveElements(ctx context.Context, key string, elements [][]byte) error {
	return classify(s.client.SRem(ctx, s.key(key), toArgs(elements)...).Err())
}

func (s *storeImpl) Close() error {
	return s.client.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *storeImpl) key(key string) string {
	return s.prefix + key
}

// lrangeBounds converts the exclusive range [start, end) into LRANGE arguments.
// empty is true if the range cannot contain any element.
func lrangeBounds(start, end *int32) (from, to int64, empty bool) {
	if start != nil {
		from = int64(*start)
	}
	if end == nil {
		return from, -1, false
	}
	if *end == 0 {
		return 0, 0, true
	}
	return from, int64(*end) - 1, false
}

// classify marks replies signalling exhausted server capacity as rate limited
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rerr goredis.Error
	if errors.As(err, &rerr) {
		msg := rerr.Error()
		if strings.HasPrefix(msg, "BUSY") || strings.HasPrefix(msg, "LIMIT") || strings.Contains(msg, "max number of clients") {
			return fmt.Errorf("%w: %s", backend.ErrLimitExceeded, msg)
		}
	}
	return err
}

func toBytes(values []string) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}

func toArgs(values [][]byte) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

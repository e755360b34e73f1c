// ABOUTME: Redis-backed KV store for sharing one cache across machines.
// ABOUTME: Multi-key updates use WATCH/MULTI so both sides of a follow edge land together.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	defaultRedisTimeout = 3 * time.Second
	maxTxRetries        = 5
)

// RedisOptions configures a RedisKV.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // prepended to every key, e.g. "connect:"
	Timeout  time.Duration // per-operation timeout
}

// RedisKV stores values as redis strings.
type RedisKV struct {
	inner   *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisKV connects and pings the server. An unreachable server is an error so
// callers can fall back to a degraded cache.
func NewRedisKV(opts RedisOptions) (*RedisKV, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: timeout,
		MaxRetries:  -1,
	})

	r := &RedisKV{inner: client, prefix: opts.Prefix, timeout: timeout}
	ctx, cancel := r.opContext()
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return r, nil
}

func (r *RedisKV) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisKV) key(k string) string { return r.prefix + k }

func (r *RedisKV) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	v, err := r.inner.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(key string, value []byte) error {
	ctx, cancel := r.opContext()
	defer cancel()
	return r.inner.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisKV) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.opContext()
	defer cancel()
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.inner.Del(ctx, full...).Err()
}

func (r *RedisKV) Update(keys []string, fn UpdateFunc) error {
	ctx, cancel := r.opContext()
	defer cancel()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	txf := func(tx *redis.Tx) error {
		current := make(map[string][]byte, len(keys))
		for _, k := range keys {
			v, err := tx.Get(ctx, r.key(k)).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			current[k] = v
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range next {
				if v == nil {
					pipe.Del(ctx, r.key(k))
					continue
				}
				pipe.Set(ctx, r.key(k), v, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.inner.Watch(ctx, txf, full...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

func (r *RedisKV) Close() error {
	return r.inner.Close()
}

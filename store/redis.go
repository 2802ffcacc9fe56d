package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"redgen/config"
)

// Redis stores each key as a string under "<prefix>:<key>" and publishes a Change on
// "<prefix>:changes" after every write, so other processes sharing the instance see it.
type Redis struct {
	rdb    *redis.Client
	prefix string
	owned  bool
}

func NewRedis(cfg config.RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	s := NewRedisWithClient(rdb, cfg.KeyPrefix)
	s.owned = true
	return s
}

// NewRedisWithClient wraps an existing client. Close leaves the client open.
func NewRedisWithClient(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "redgen"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k Key) string { return r.prefix + ":" + string(k) }

func (r *Redis) channel() string { return r.prefix + ":changes" }

func (r *Redis) Get(ctx context.Context, keys ...Key) (Values, error) {
	out := make(Values, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = r.key(k)
	}
	res, err := r.rdb.MGet(ctx, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range res {
		if s, ok := v.(string); ok {
			out[keys[i]] = json.RawMessage(s)
		}
	}
	return out, nil
}

// Set writes all values in one MULTI/EXEC and reads the previous values in the same
// transaction.
func (r *Redis) Set(ctx context.Context, values Values) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]Key, 0, len(values))
	olds := make([]*redis.StringCmd, 0, len(values))
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			keys = append(keys, k)
			olds = append(olds, pipe.Get(ctx, r.key(k)))
			pipe.Set(ctx, r.key(k), []byte(v), 0)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis set: %w", err)
	}

	for i, k := range keys {
		var old json.RawMessage
		if s, err := olds[i].Result(); err == nil {
			old = json.RawMessage(s)
		}
		if old != nil && sameJSON(old, values[k]) {
			continue
		}
		// EXEC has committed; publish failures are only logged
		msg, err := json.Marshal(Change{Key: k, Old: old, New: values[k]})
		if err != nil {
			config.Log.Errorf("store: encode change for %s: %v", k, err)
			continue
		}
		if err := r.rdb.Publish(ctx, r.channel(), msg).Err(); err != nil {
			config.Log.Errorf("store: publish change for %s: %v", k, err)
		}
	}
	return nil
}

func (r *Redis) OnChange(ctx context.Context, listener ChangeListener) (func(), error) {
	sub := r.rdb.Subscribe(ctx, r.channel())
	// wait for the subscription confirmation so no write after OnChange returns is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	go func() {
		for msg := range ch {
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				config.Log.Warnf("store: drop malformed change on %s: %v", msg.Channel, err)
				continue
			}
			listener(c)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { sub.Close() })
	}, nil
}

func (r *Redis) Close() error {
	if r.owned {
		return r.rdb.Close()
	}
	return nil
}

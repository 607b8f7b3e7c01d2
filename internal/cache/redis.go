package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimbusvault/corestore/internal/circuit"
	"github.com/nimbusvault/corestore/internal/logging"
)

const scanBatchSize = 200

// RedisConfig configures the L2 connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// redisLayer wraps a go-redis client as the distributed L2. Every
// method degrades to a logged no-op on connection failure rather than
// surfacing an error to the read path, per §4.C3. A circuit breaker
// (§4.C15) sits in front of the client so a down Redis fails every call
// immediately instead of paying a dial/command timeout per cache op.
type redisLayer struct {
	client  *redis.Client
	breaker *circuit.CircuitBreaker
}

func newRedisLayer(cfg RedisConfig) *redisLayer {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	breaker := circuit.NewCircuitBreaker("cache.redis", circuit.Config{
		// redis.Nil is a normal cache miss, not a connectivity fault; it
		// must not count toward tripping the breaker.
		IsSuccessful: func(err error) bool { return err == nil || err == redis.Nil },
		OnStateChange: func(name string, from, to circuit.State) {
			logging.WithComponent("cache").Warn().
				Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("redis circuit breaker state change")
		},
	})
	return &redisLayer{client: client, breaker: breaker}
}

func (r *redisLayer) get(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		var err error
		val, err = r.client.Get(ctx, key).Bytes()
		return err
	})
	if err != nil {
		if err != redis.Nil {
			logging.WithComponent("cache").Warn().Err(err).Msg("L2 get failed, falling through")
		}
		return nil, false
	}
	return val, true
}

func (r *redisLayer) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	err := r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		logging.WithComponent("cache").Warn().Err(err).Msg("L2 set failed")
	}
}

func (r *redisLayer) delete(ctx context.Context, key string) {
	err := r.breaker.ExecuteWithContext(ctx, func(ctx context.Context) error {
		return r.client.Del(ctx, key).Err()
	})
	if err != nil {
		logging.WithComponent("cache").Warn().Err(err).Msg("L2 delete failed")
	}
}

// deletePrefix removes every key beginning with prefix using a
// non-blocking cursor scan, never KEYS, and pipelines the deletes in
// batches.
func (r *redisLayer) deletePrefix(ctx context.Context, prefix string) {
	var cursor uint64
	batch := make([]string, 0, scanBatchSize)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			logging.WithComponent("cache").Warn().Err(err).Str("prefix", prefix).
				Msg("L2 prefix scan failed")
			return
		}
		batch = append(batch, keys...)
		cursor = next

		if len(batch) >= scanBatchSize {
			r.flushDelete(ctx, batch)
			batch = batch[:0]
		}
		if cursor == 0 {
			break
		}
	}
	r.flushDelete(ctx, batch)
}

func (r *redisLayer) flushDelete(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	pipe := r.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logging.WithComponent("cache").Warn().Err(err).Msg("L2 pipelined delete failed")
	}
}

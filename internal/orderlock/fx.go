package orderlock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/dinein/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("orderlock",
	fx.Provide(newRedisClient),
	fx.Provide(NewKeyedMutex),
	fx.Provide(newGuard),
)

// newRedisClient returns nil when REDIS_ADDR is unset; the guard then runs
// with the local lock only.
func newRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, order lock is process-local")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func newGuard(local *KeyedMutex, client *redis.Client, cfg config.Config, log *zap.Logger) Locker {
	var dist *RedisLocker
	if client != nil {
		dist = NewRedisLocker(client)
	}
	return NewGuard(local, dist, cfg.OrderLockTTL, log.Named("orderlock"))
}

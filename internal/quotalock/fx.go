package quotalock

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/santemut/vigie/internal/config"
	"go.uber.org/fx"
)

// Provide builds the locker when a redis address is configured; a nil
// locker is valid and means single-node operation.
func Provide(cfg config.Config) *Locker {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return NewLocker(client)
}

var Module = fx.Module("quotalock",
	fx.Provide(Provide),
)

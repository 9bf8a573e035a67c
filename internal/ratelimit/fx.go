package ratelimit

import (
	"time"

	"github.com/ZanzibarNuclear/won-service-sub000/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// ~1 magic link per email every 2 minutes, small burst for retries.
	magicLinkRate  = 1.0 / 120.0
	magicLinkBurst = 3
)

// MagicLinkLimiter throttles magic-link issuance per email address.
type MagicLinkLimiter struct {
	Limiter
}

func NewMagicLinkLimiter(cfg config.Config, log *zap.Logger) MagicLinkLimiter {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		return MagicLinkLimiter{Limiter: &bucketLimiter{
			bucket: NewTokenBucket(client),
			prefix: "magiclink:",
			rate:   magicLinkRate,
			burst:  magicLinkBurst,
		}}
	}

	log.Warn("redis not configured, using in-process magic link limiter")
	return MagicLinkLimiter{Limiter: newMemoryLimiter(magicLinkBurst, 10*time.Minute)}
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewMagicLinkLimiter),
)

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tandem/internal/config"
)

const keyRedeemUser = "pairing:redeem:user:%s"

// RedeemLimiter throttles invitation redemption per user. Brute-forcing a
// 6-character code space is only practical with an unbounded guess rate.
// A nil limiter (rate limiting disabled) allows everything.
type RedeemLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewRedeemLimiter(cfg config.Config) (*RedeemLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.RedeemRate <= 0 || limitCfg.RedeemBurst <= 0 {
		return nil, errors.New("redeem rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &RedeemLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.RedeemRate,
		burst:   limitCfg.RedeemBurst,
	}, nil
}

func (l *RedeemLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *RedeemLimiter) AllowRedeem(ctx context.Context, userID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyRedeemUser, strings.TrimSpace(userID)), l.rate, l.burst)
}

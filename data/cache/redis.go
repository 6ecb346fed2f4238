package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cryptofolio/backend/config"
	"github.com/cryptofolio/backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func rateKey(searchID, currency string) string {
	return fmt.Sprintf("rate:%s_%s", searchID, currency)
}

func revokedTokenKey(tokenID string) string {
	return fmt.Sprintf("revokedToken:%s", tokenID)
}

// GetRates returns cached rates for the searchIDs that have a live cache
// entry. Missing keys are simply absent from the result.
func (r *RedisCache) GetRates(ctx context.Context, searchIDs []string, currency string) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetRates start", slog.String("rqID", rqID))

	if len(searchIDs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	keys := make([]string, 0, len(searchIDs))
	for _, id := range searchIDs {
		keys = append(keys, rateKey(id, currency))
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	rates := make(map[string]decimal.Decimal, len(searchIDs))
	for i, value := range values {
		if value == nil {
			continue
		}

		strValue, ok := value.(string)
		if !ok {
			slog.Error("unexpected value type from redis", slog.String("rqID", rqID), slog.String("key", keys[i]))
			continue
		}

		rate, err := decimal.NewFromString(strValue)
		if err != nil {
			slog.Error(
				"can't parse cached rate",
				slog.String("rqID", rqID),
				slog.String("key", keys[i]),
				slog.String("value", strValue),
			)
			continue
		}

		rates[searchIDs[i]] = rate
	}

	slog.Debug("GetRates completed", slog.String("rqID", rqID), slog.Int("hits", len(rates)))

	return rates, nil
}

func (r *RedisCache) SetRates(ctx context.Context, currency string, rates map[string]decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetRates start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for searchID, rate := range rates {
		pipe.Set(ctx, rateKey(searchID, currency), rate.String(), r.cfg.Cache.RatesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetRates completed", slog.String("rqID", rqID))

	return nil
}

// RevokeToken blacklists a token id until its natural expiry.
func (r *RedisCache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("RevokeToken start", slog.String("rqID", rqID))

	if ttl <= 0 {
		return nil // already expired, nothing to blacklist
	}

	err := r.redis.Set(ctx, revokedTokenKey(tokenID), "1", ttl).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("RevokeToken completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	_, err := r.redis.Get(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return false, err
	}

	return true, nil
}

package rateService

import (
	"context"
	"log/slog"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/utils"
	"github.com/shopspring/decimal"
)

type CoinGeckoApi interface {
	GetRates(ctx context.Context, searchIDs []string, currency string) (map[string]decimal.Decimal, error)
}

type Cache interface {
	GetRates(ctx context.Context, searchIDs []string, currency string) (map[string]decimal.Decimal, error)
	SetRates(ctx context.Context, currency string, rates map[string]decimal.Decimal) error
}

// RateService serves batched price lookups, preferring cached rates and
// fetching only the misses from CoinGecko. The Cached tag of the result says
// whether all, some or none of the rates were served stale from cache.
type RateService struct {
	cache        Cache
	coinGeckoApi CoinGeckoApi
}

func New(cache Cache, coinGeckoApi CoinGeckoApi) *RateService {
	return &RateService{
		cache:        cache,
		coinGeckoApi: coinGeckoApi,
	}
}

func (s *RateService) GetRates(ctx context.Context, searchIDs []string, currency string) (model.Rates, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RateService.GetRates"

	slog.Debug("GetRates start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("searchIDs", searchIDs), slog.String("currency", currency))
	defer func() {
		slog.Debug("GetRates finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	res := model.Rates{
		Currency: currency,
		Rates:    make(map[string]decimal.Decimal, len(searchIDs)),
		Cached:   model.RateCoverageNone,
	}

	if len(searchIDs) == 0 {
		return res, nil
	}

	cached, err := s.cache.GetRates(ctx, searchIDs, currency)
	if err != nil {
		slog.Warn("can't get rates from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		cached = map[string]decimal.Decimal{}
	}

	misses := make([]string, 0, len(searchIDs))
	for _, searchID := range searchIDs {
		rate, ok := cached[searchID]
		if !ok {
			misses = append(misses, searchID)
			continue
		}
		res.Rates[searchID] = rate
	}

	if len(misses) == 0 {
		res.Cached = model.RateCoverageAll
		return res, nil
	}

	fetched, err := s.coinGeckoApi.GetRates(ctx, misses, currency)
	if err != nil {
		slog.Error("can't get rates from coinGeckoApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Rates{}, service.ErrRateUnavailable
	}

	for searchID, rate := range fetched {
		res.Rates[searchID] = rate
	}

	if len(res.Rates) > len(fetched) {
		res.Cached = model.RateCoveragePartial
	}

	if len(fetched) > 0 {
		go s.cache.SetRates(context.WithoutCancel(ctx), currency, fetched)
	}

	return res, nil
}

package coingeckoApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/cryptofolio/backend/config"
	"github.com/cryptofolio/backend/internal/externalApi"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/model/coingeckoModel"
	"github.com/cryptofolio/backend/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type CoinGeckoApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *CoinGeckoApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CoinGecko.Url).
		SetHeader("x-cg-demo-api-key", cfg.API.CoinGecko.ApiKey)
	return &CoinGeckoApi{client: client}
}

// GetRates requests /simple/price for all searchIDs in one call. The result
// may cover a subset of the requested assets, unknown ids are just absent.
func (a *CoinGeckoApi) GetRates(ctx context.Context, searchIDs []string, currency string) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/simple/price"
	params := map[string]string{
		"ids":           strings.Join(searchIDs, ","),
		"vs_currencies": currency,
		"precision":     "full",
	}

	slog.Debug("start CoinGeckoApi.GetRates request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing CoinGecko", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	if resp.IsError() {
		slog.Error("CoinGecko returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	rawRates := coingeckoModel.PriceResponse{}
	err = json.Unmarshal(resp.Body(), &rawRates)
	if err != nil {
		slog.Error("can't unmarshall response into coingeckoModel.PriceResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	rates := make(map[string]decimal.Decimal, len(rawRates))
	for searchID, perCurrency := range rawRates {
		rate, ok := perCurrency[currency]
		if !ok {
			continue
		}
		rates[searchID] = rate
	}

	slog.Debug("CoinGeckoApi.GetRates request complete", slog.String("rqID", rqID), slog.Int("rates", len(rates)))

	return rates, nil
}

// GetAssetList requests the full /coins/list catalog.
func (a *CoinGeckoApi) GetAssetList(ctx context.Context) ([]model.Asset, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/coins/list"

	slog.Debug("start CoinGeckoApi.GetAssetList request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		slog.Error("error while dialing CoinGecko", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	if resp.IsError() {
		slog.Error("CoinGecko returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, externalApi.ErrUnavailable
	}

	var rawAssets []coingeckoModel.CoinListItem
	err = json.Unmarshal(resp.Body(), &rawAssets)
	if err != nil {
		slog.Error("can't unmarshall response into coin list", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	assets := make([]model.Asset, 0, len(rawAssets))
	for _, raw := range rawAssets {
		assets = append(assets, model.Asset{
			SearchID: raw.ID,
			Symbol:   raw.Symbol,
			Name:     raw.Name,
		})
	}

	slog.Debug("CoinGeckoApi.GetAssetList request complete", slog.String("rqID", rqID), slog.Int("assets", len(assets)))

	return assets, nil
}

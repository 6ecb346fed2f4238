package assetService

import (
	"context"
	"log/slog"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/utils"
)

type CoinGeckoApi interface {
	GetAssetList(ctx context.Context) ([]model.Asset, error)
}

type Repository interface {
	UpsertAssets(ctx context.Context, assets []model.Asset) error
}

// AssetService keeps the asset reference table in sync with the CoinGecko
// coin catalog. Holdings only ever reference assets present here.
type AssetService struct {
	repo         Repository
	coinGeckoApi CoinGeckoApi
}

func New(repo Repository, coinGeckoApi CoinGeckoApi) *AssetService {
	return &AssetService{
		repo:         repo,
		coinGeckoApi: coinGeckoApi,
	}
}

// SyncAssets is wired as a scheduler job.
func (s *AssetService) SyncAssets(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AssetService.SyncAssets"

	slog.Debug("SyncAssets start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("SyncAssets finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	assets, err := s.coinGeckoApi.GetAssetList(ctx)
	if err != nil {
		slog.Error("got error from coinGeckoApi.GetAssetList", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(assets) == 0 {
		slog.Warn("coinGeckoApi returned empty asset list, skipping sync", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	err = s.repo.UpsertAssets(ctx, assets)
	if err != nil {
		slog.Error("got error from repo.UpsertAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("assets synced", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(assets)))

	return nil
}

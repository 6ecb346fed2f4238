package assetService

import (
	"context"
	"errors"
	"testing"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoinGeckoApi struct {
	assets []model.Asset
	err    error
}

func (a *fakeCoinGeckoApi) GetAssetList(_ context.Context) ([]model.Asset, error) {
	return a.assets, a.err
}

type fakeAssetRepo struct {
	upserted []model.Asset
	calls    int
}

func (r *fakeAssetRepo) UpsertAssets(_ context.Context, assets []model.Asset) error {
	r.calls++
	r.upserted = assets
	return nil
}

func TestSyncAssets(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts the fetched catalog", func(t *testing.T) {
		assets := []model.Asset{
			{SearchID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
			{SearchID: "ethereum", Symbol: "eth", Name: "Ethereum"},
		}
		repo := &fakeAssetRepo{}
		svc := New(repo, &fakeCoinGeckoApi{assets: assets})

		require.NoError(t, svc.SyncAssets(ctx))
		assert.Equal(t, assets, repo.upserted)
	})

	t.Run("skips the upsert on an empty catalog", func(t *testing.T) {
		repo := &fakeAssetRepo{}
		svc := New(repo, &fakeCoinGeckoApi{})

		require.NoError(t, svc.SyncAssets(ctx))
		assert.Zero(t, repo.calls)
	})

	t.Run("propagates api failures", func(t *testing.T) {
		repo := &fakeAssetRepo{}
		svc := New(repo, &fakeCoinGeckoApi{err: errors.New("coingecko 502")})

		require.Error(t, svc.SyncAssets(ctx))
		assert.Zero(t, repo.calls)
	})
}

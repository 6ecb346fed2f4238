package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cryptofolio/backend/data/repository"
	"github.com/cryptofolio/backend/internal/converter/dbConverter"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/model/dbModel"
	"github.com/cryptofolio/backend/utils"
)

func (r *Postgres) GetAssetBySearchID(ctx context.Context, searchID string) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT asset_id, search_id, symbol, name
		FROM assets
		WHERE search_id = $1
		`

	slog.Debug("GetAssetBySearchID start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetAssetBySearchID failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAssetBySearchID completed", slog.String("rqID", rqID))
		}
	}()

	dbAsset := dbModel.Asset{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, searchID).StructScan(&dbAsset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Asset{}, repository.ErrNotFound
		}
		return model.Asset{}, err
	}

	return dbConverter.ConvertAsset(dbAsset), nil
}

// UpsertAssets refreshes the asset catalog in one multi-values statement,
// keyed by search_id.
func (r *Postgres) UpsertAssets(ctx context.Context, assets []model.Asset) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("UpsertAssets start", slog.String("rqID", rqID), slog.Int("count", len(assets)))
	defer func() {
		if err != nil {
			slog.Error("UpsertAssets failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertAssets completed", slog.String("rqID", rqID))
		}
	}()

	if len(assets) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(assets)*3)

	sb.WriteString(`INSERT INTO assets (search_id, symbol, name) VALUES `)

	for i, asset := range assets {
		args = append(args, asset.SearchID, asset.Symbol, asset.Name)

		start := i*3 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d)", start, start+1, start+2))

		if i < len(assets)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(`
		ON CONFLICT (search_id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name;
	`)

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	return err
}

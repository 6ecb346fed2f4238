package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/cryptofolio/backend/data/repository"
	"github.com/cryptofolio/backend/internal/converter/dbConverter"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/model/dbModel"
	"github.com/cryptofolio/backend/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// GetHoldingForUpdate locks the balances row until the surrounding
// transaction commits. Meaningful only when called through WithinTransaction.
func (r *Postgres) GetHoldingForUpdate(ctx context.Context, userID, assetID int64) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT user_id, asset_id, amount
		FROM balances
		WHERE user_id = $1
		AND asset_id = $2
		FOR UPDATE
		`

	slog.Debug("GetHoldingForUpdate start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetHoldingForUpdate failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldingForUpdate completed", slog.String("rqID", rqID))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, assetID).StructScan(&dbHolding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, repository.ErrNotFound
		}
		return model.Holding{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

func (r *Postgres) GetHoldingsByUser(ctx context.Context, userID int64) (holdings []model.ValuedHolding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT b.user_id, b.asset_id, b.amount, a.search_id, a.symbol, a.name
		FROM balances b
		JOIN assets a ON a.asset_id = b.asset_id
		WHERE b.user_id = $1
		ORDER BY a.search_id
		`

	slog.Debug("GetHoldingsByUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldingsByUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldingsByUser completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbHolding dbModel.HoldingWithAsset
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHoldingWithAsset(dbHolding))
	}

	return holdings, nil
}

func (r *Postgres) InsertHolding(ctx context.Context, holding model.Holding) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO balances(user_id, asset_id, amount) VALUES($1, $2, $3)`

	slog.Debug("InsertHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, holding.UserID, holding.AssetID, holding.Amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) UpdateHoldingAmount(ctx context.Context, userID, assetID int64, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE balances
		SET amount = $1
		WHERE user_id = $2
		AND asset_id = $3
		`

	slog.Debug("UpdateHoldingAmount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateHoldingAmount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateHoldingAmount completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, amount, userID, assetID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteHolding(ctx context.Context, userID, assetID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		DELETE FROM balances
		WHERE user_id = $1
		AND asset_id = $2
		`

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID, assetID)
	if err != nil {
		return err
	}

	return nil
}

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
)

func (r *Postgres) InsertUser(ctx context.Context, email, passwordHash string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO users(email, password_hash) VALUES($1, $2) RETURNING user_id`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, email, passwordHash).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) GetUserByEmail(ctx context.Context, email string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT user_id, email, password_hash, dt_create
		FROM users
		WHERE email = $1
		`

	slog.Debug("GetUserByEmail start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetUserByEmail failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByEmail completed", slog.String("rqID", rqID))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, email).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

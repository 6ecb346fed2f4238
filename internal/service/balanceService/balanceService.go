package balanceService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cryptofolio/backend/data/repository"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/utils"
	"github.com/shopspring/decimal"
)

// valueScale is the number of decimal places for values in fiat currency.
const valueScale = 2

type AssetCatalog interface {
	GetAssetBySearchID(ctx context.Context, searchID string) (model.Asset, error)
}

type RateProvider interface {
	GetRates(ctx context.Context, searchIDs []string, currency string) (model.Rates, error)
}

type Repository interface {
	GetHoldingForUpdate(ctx context.Context, userID, assetID int64) (model.Holding, error)
	GetHoldingsByUser(ctx context.Context, userID int64) ([]model.ValuedHolding, error)
	InsertHolding(ctx context.Context, holding model.Holding) error
	UpdateHoldingAmount(ctx context.Context, userID, assetID int64, amount decimal.Decimal) error
	DeleteHolding(ctx context.Context, userID, assetID int64) error
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type BalanceService struct {
	repo   Repository
	assets AssetCatalog
	rates  RateProvider
}

func New(repo Repository, assets AssetCatalog, rates RateProvider) *BalanceService {
	return &BalanceService{
		repo:   repo,
		assets: assets,
		rates:  rates,
	}
}

// AddAsset credits the user's holding of the asset identified by searchID.
// The row is locked for the whole read-modify-write so concurrent mutations
// of the same (user, asset) pair cannot lose updates.
func (s *BalanceService) AddAsset(ctx context.Context, userID int64, searchID string, amount decimal.Decimal) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BalanceService.AddAsset"

	slog.Debug("AddAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("searchID", searchID))
	defer func() {
		slog.Debug("AddAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("searchID", searchID))
	}()

	asset, err := s.assets.GetAssetBySearchID(ctx, searchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("asset is invalid or unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("searchID", searchID))
			return model.Holding{}, service.ErrInvalidAsset
		}
		slog.Error("got error from assets.GetAssetBySearchID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetHoldingForUpdate(ctx, userID, asset.ID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			holding = model.Holding{UserID: userID, AssetID: asset.ID, Amount: amount}
			err = s.repo.InsertHolding(ctx, holding)
			if !errors.Is(err, repository.ErrAlreadyExists) {
				return err
			}

			// lost the insert race, fall through to the update path
			existing, err = s.repo.GetHoldingForUpdate(ctx, userID, asset.ID)
			if err != nil {
				return err
			}
		}

		holding = model.Holding{UserID: userID, AssetID: asset.ID, Amount: existing.Amount.Add(amount)}
		return s.repo.UpdateHoldingAmount(ctx, userID, asset.ID, holding.Amount)
	})
	if err != nil {
		slog.Error("failed to add asset to balance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	slog.Info(
		"asset added to balance",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.String("asset", asset.Name),
		slog.String("amount", amount.String()),
	)

	return holding, nil
}

// RemoveAsset debits the user's holding. Decrementing to exactly zero deletes
// the row, a zero-amount holding is never persisted.
func (s *BalanceService) RemoveAsset(ctx context.Context, userID int64, searchID string, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BalanceService.RemoveAsset"

	slog.Debug("RemoveAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("searchID", searchID))
	defer func() {
		slog.Debug("RemoveAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("searchID", searchID))
	}()

	asset, err := s.assets.GetAssetBySearchID(ctx, searchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("asset is invalid or unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("searchID", searchID))
			return service.ErrInvalidAsset
		}
		slog.Error("got error from assets.GetAssetBySearchID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetHoldingForUpdate(ctx, userID, asset.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				slog.Warn(
					"tried to remove non existing asset from balance",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.Int64("userID", userID),
					slog.String("asset", asset.Name),
				)
				return service.ErrHoldingNotFound
			}
			return err
		}

		if existing.Amount.LessThan(amount) {
			slog.Warn(
				"insufficient amount to remove",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.Int64("userID", userID),
				slog.String("asset", asset.Name),
				slog.String("held", existing.Amount.String()),
				slog.String("requested", amount.String()),
			)
			return service.ErrInsufficientAmount
		}

		remaining := existing.Amount.Sub(amount)
		if remaining.IsZero() {
			return s.repo.DeleteHolding(ctx, userID, asset.ID)
		}
		return s.repo.UpdateHoldingAmount(ctx, userID, asset.ID, remaining)
	})
	if err != nil {
		if errors.Is(err, service.ErrHoldingNotFound) || errors.Is(err, service.ErrInsufficientAmount) {
			return err
		}
		slog.Error("failed to remove asset from balance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info(
		"asset removed from balance",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.String("asset", asset.Name),
		slog.String("amount", amount.String()),
	)

	return nil
}

// GetBalanceValues returns the user's holdings annotated with their value in
// the given currency. An empty portfolio short-circuits without touching the
// rate provider. A holding whose rate is missing keeps a zero value, the rest
// of the portfolio is still valued.
func (s *BalanceService) GetBalanceValues(ctx context.Context, userID int64, currency string) (balance model.UserBalance, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BalanceService.GetBalanceValues"

	slog.Debug("GetBalanceValues start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("currency", currency))
	defer func() {
		slog.Debug("GetBalanceValues finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	balance = model.UserBalance{UserID: userID, Assets: []model.ValuedHolding{}}

	holdings, err := s.repo.GetHoldingsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetHoldingsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.UserBalance{}, err
	}

	if len(holdings) == 0 {
		return balance, nil
	}

	searchIDs := make([]string, 0, len(holdings))
	for _, holding := range holdings {
		searchIDs = append(searchIDs, holding.Asset.SearchID)
	}

	rates, err := s.rates.GetRates(ctx, searchIDs, currency)
	if err != nil {
		slog.Error("got error from rates.GetRates", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.UserBalance{}, service.ErrRateUnavailable
	}

	for _, holding := range holdings {
		rate, ok := rates.Rates[holding.Asset.SearchID]
		if !ok {
			slog.Warn(
				"no rate for asset, valuing as zero",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("searchID", holding.Asset.SearchID),
			)
			holding.ValueInCurrency = decimal.Zero
			balance.Assets = append(balance.Assets, holding)
			continue
		}

		holding.ValueInCurrency = holding.Amount.Mul(rate).Round(valueScale)
		balance.Assets = append(balance.Assets, holding)
	}

	return balance, nil
}

// GetTotalBalance sums the user's holding values in the given currency.
func (s *BalanceService) GetTotalBalance(ctx context.Context, userID int64, currency string) (total decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BalanceService.GetTotalBalance"

	slog.Debug("GetTotalBalance start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("currency", currency))
	defer func() {
		slog.Debug("GetTotalBalance finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	balance, err := s.GetBalanceValues(ctx, userID, currency)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(balance.Assets) == 0 {
		return decimal.Zero, nil
	}

	return sumValues(balance.Assets), nil
}

// Rebalance adjusts the targeted holdings so their value shares match the
// target percentages. Held assets missing from the targets keep their amounts
// and do not count toward the rebalance base. All per-asset writes run in one
// transaction, a mid-loop failure rolls back every delta. A holding that
// changed between the valuation read and the row lock aborts the run with
// ErrRebalanceConflict so the caller can retry against fresh values.
func (s *BalanceService) Rebalance(ctx context.Context, userID int64, currency string, targetPercentages map[string]decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BalanceService.Rebalance"

	slog.Debug("Rebalance start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("currency", currency))
	defer func() {
		slog.Debug("Rebalance finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	if err := validateTargetPercentages(targetPercentages); err != nil {
		slog.Warn("invalid target percentages", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	balance, err := s.GetBalanceValues(ctx, userID, currency)
	if err != nil {
		return err
	}

	if len(balance.Assets) == 0 {
		slog.Warn("there are no values to rebalance", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
		return service.ErrNothingToRebalance
	}

	assetsToRebalance := make([]model.ValuedHolding, 0, len(balance.Assets))
	for _, holding := range balance.Assets {
		if _, ok := targetPercentages[holding.Asset.SearchID]; ok {
			assetsToRebalance = append(assetsToRebalance, holding)
		}
	}

	if len(assetsToRebalance) < len(targetPercentages) {
		slog.Warn(
			"target percentages include assets not in user's balance",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Int64("userID", userID),
		)
		return service.ErrUnknownAssetInTargets
	}

	if len(assetsToRebalance) < len(balance.Assets) {
		slog.Warn(
			"some held assets are not included in the rebalance and will be left untouched",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Int64("userID", userID),
		)
	}

	var unsupportedIDs []string
	for _, holding := range assetsToRebalance {
		if holding.ValueInCurrency.IsZero() {
			unsupportedIDs = append(unsupportedIDs, holding.Asset.SearchID)
		}
	}
	if len(unsupportedIDs) > 0 {
		slog.Warn(
			"invalid assets to be rebalanced",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.Any("searchIDs", unsupportedIDs),
		)
		return &service.UnsupportedAssetValueError{SearchIDs: unsupportedIDs}
	}

	totalValue := sumValues(assetsToRebalance)

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, holding := range assetsToRebalance {
			targetPercentage := targetPercentages[holding.Asset.SearchID]
			targetValue := totalValue.Mul(targetPercentage).Div(decimal.NewFromInt(100))

			// derive the unit price from the already computed value instead
			// of querying the provider again
			impliedRate := holding.ValueInCurrency.Div(holding.Amount)
			newAmount := targetValue.Div(impliedRate)

			locked, err := s.repo.GetHoldingForUpdate(ctx, userID, holding.Asset.ID)
			if err != nil {
				return err
			}

			// the targets were derived from the unlocked valuation read; a
			// mutation that committed in between would be erased by the
			// absolute write below
			if !locked.Amount.Equal(holding.Amount) {
				slog.Warn(
					"holding changed since valuation, aborting rebalance",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.Int64("userID", userID),
					slog.String("asset", holding.Asset.Name),
					slog.String("valuedAmount", holding.Amount.String()),
					slog.String("lockedAmount", locked.Amount.String()),
				)
				return service.ErrRebalanceConflict
			}

			if err := s.repo.UpdateHoldingAmount(ctx, userID, holding.Asset.ID, newAmount); err != nil {
				return err
			}

			delta := holding.Amount.Sub(newAmount).Abs()
			direction := "decreasing"
			if newAmount.GreaterThan(holding.Amount) {
				direction = "increasing"
			}
			slog.Info(
				"rebalance delta applied",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.Int64("userID", userID),
				slog.String("asset", holding.Asset.Name),
				slog.String("direction", direction),
				slog.String("delta", delta.String()),
			)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, service.ErrRebalanceConflict) {
			return err
		}
		slog.Error("failed to rebalance assets", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID), slog.String("err", err.Error()))
		return err
	}

	slog.Info("rebalance completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))

	return nil
}

func validateTargetPercentages(targetPercentages map[string]decimal.Decimal) error {
	if len(targetPercentages) == 0 {
		return service.ErrInvalidPercentages
	}

	hundred := decimal.NewFromInt(100)
	sum := decimal.Zero
	for _, percentage := range targetPercentages {
		if !percentage.IsPositive() || percentage.GreaterThanOrEqual(hundred) {
			return service.ErrInvalidPercentages
		}
		sum = sum.Add(percentage)
	}

	if !sum.Equal(hundred) {
		return service.ErrInvalidPercentages
	}

	return nil
}

func sumValues(holdings []model.ValuedHolding) decimal.Decimal {
	total := decimal.Zero
	for _, holding := range holdings {
		total = total.Add(holding.ValueInCurrency)
	}
	return total.Round(valueScale)
}

package dbConverter

import (
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/model/dbModel"
)

func ConvertAsset(dbAsset dbModel.Asset) model.Asset {
	return model.Asset{
		ID:       dbAsset.ID,
		SearchID: dbAsset.SearchID,
		Symbol:   dbAsset.Symbol,
		Name:     dbAsset.Name,
	}
}

func ConvertHolding(dbHolding dbModel.Holding) model.Holding {
	return model.Holding{
		UserID:  dbHolding.UserID,
		AssetID: dbHolding.AssetID,
		Amount:  dbHolding.Amount,
	}
}

func ConvertHoldingWithAsset(dbHolding dbModel.HoldingWithAsset) model.ValuedHolding {
	return model.ValuedHolding{
		Asset: model.Asset{
			ID:       dbHolding.AssetID,
			SearchID: dbHolding.AssetSearchID,
			Symbol:   dbHolding.AssetSymbol,
			Name:     dbHolding.AssetName,
		},
		Amount: dbHolding.Amount,
	}
}

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		CreatedAt:    dbUser.CreatedAt,
	}
}

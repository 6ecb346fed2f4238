package dbModel

import "github.com/shopspring/decimal"

type Holding struct {
	UserID  int64           `db:"user_id"`
	AssetID int64           `db:"asset_id"`
	Amount  decimal.Decimal `db:"amount"`
}

// HoldingWithAsset is the balances row joined with its asset reference data.
type HoldingWithAsset struct {
	UserID        int64           `db:"user_id"`
	AssetID       int64           `db:"asset_id"`
	Amount        decimal.Decimal `db:"amount"`
	AssetSearchID string          `db:"search_id"`
	AssetSymbol   string          `db:"symbol"`
	AssetName     string          `db:"name"`
}

package model

import "github.com/shopspring/decimal"

// Holding is a user's position in a single asset. A holding exists only
// while its amount is positive, zero amounts are deleted instead of stored.
type Holding struct {
	UserID  int64
	AssetID int64
	Amount  decimal.Decimal
}

// ValuedHolding is a holding annotated with its current market value.
// ValueInCurrency stays zero when no rate was available for the asset.
type ValuedHolding struct {
	Asset           Asset
	Amount          decimal.Decimal
	ValueInCurrency decimal.Decimal
}

type UserBalance struct {
	UserID int64
	Assets []ValuedHolding
}

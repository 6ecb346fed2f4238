package coingeckoModel

import "github.com/shopspring/decimal"

// PriceResponse mirrors /simple/price: assetId -> currency -> price.
type PriceResponse map[string]map[string]decimal.Decimal

// CoinListItem mirrors one entry of /coins/list.
type CoinListItem struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

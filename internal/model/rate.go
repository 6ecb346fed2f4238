package model

import "github.com/shopspring/decimal"

// RateCoverage tells how much of a rates request was served from cache.
type RateCoverage string

const (
	RateCoverageAll     RateCoverage = "all"
	RateCoveragePartial RateCoverage = "partial"
	RateCoverageNone    RateCoverage = "none"
)

// Rates is the per-searchID price map for one currency. The map may cover
// only a subset of the requested assets.
type Rates struct {
	Currency string
	Rates    map[string]decimal.Decimal
	Cached   RateCoverage
}

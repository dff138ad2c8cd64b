package model

import (
	"github.com/shopspring/decimal"
)

// MarketData is a single universe row: one company on one date.
type MarketData struct {
	Date       string          `json:"date"`
	Company    string          `json:"company"`
	MarketCapM decimal.Decimal `json:"market_cap_m"`
	Price      decimal.Decimal `json:"price"`
}

// PortfolioStock is a selected index constituent with its allocation.
type PortfolioStock struct {
	MarketData
	Weight           decimal.Decimal
	CumulativeWeight decimal.Decimal
	WeightAdjusted   decimal.Decimal
	DollarsAllocated decimal.Decimal
	NumShares        decimal.Decimal
}

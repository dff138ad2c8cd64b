package dbModel

import (
	"github.com/shopspring/decimal"
)

type MarketData struct {
	Date       string          `db:"date"`
	Company    string          `db:"company"`
	MarketCapM decimal.Decimal `db:"market_cap_m"`
	Price      decimal.Decimal `db:"price"`
}

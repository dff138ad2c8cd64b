package model

import (
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNone Status = ""
	StatusKeep Status = "keep"
	StatusSell Status = "sell"
	StatusBuy  Status = "buy"
)

// Reconciliation compares one company's holdings between two portfolio snapshots.
// Null fields mean the company is absent from the corresponding input.
type Reconciliation struct {
	Company      string
	NumSharesOld decimal.NullDecimal
	NumSharesNew decimal.NullDecimal
	PriceNew     decimal.NullDecimal
	Status       Status
	CurrentValue decimal.Decimal
}

type BoughtStock struct {
	Company   string
	NumShares decimal.Decimal
	Price     decimal.Decimal
}

type SoldStock struct {
	Company    string
	NumShares  decimal.Decimal
	Price      decimal.Decimal
	TotalValue decimal.Decimal
}

type RebalanceReport struct {
	FirstDate        string
	SecondDate       string
	Capital          decimal.Decimal
	Cutoff           decimal.Decimal
	InitialPortfolio []PortfolioStock
	NewPortfolio     []PortfolioStock
	Reconciliation   []Reconciliation
	Bought           []BoughtStock
	Sold             []SoldStock
}

type ReportFile struct {
	Name    string
	Content []byte
}

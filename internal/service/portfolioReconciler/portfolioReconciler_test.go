package portfolioReconciler

import (
	"testing"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/service"
	"github.com/KotFed0t/index_rebalancer/internal/service/indexBuilder"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(date, company string, marketCap, price int64) model.MarketData {
	return model.MarketData{
		Date:       date,
		Company:    company,
		MarketCapM: decimal.NewFromInt(marketCap),
		Price:      decimal.NewFromInt(price),
	}
}

func holding(company string, shares string) model.PortfolioStock {
	return model.PortfolioStock{
		MarketData: model.MarketData{Company: company},
		NumShares:  decimal.RequireFromString(shares),
	}
}

func byCompany(rows []model.Reconciliation) map[string]model.Reconciliation {
	res := make(map[string]model.Reconciliation, len(rows))
	for _, rec := range rows {
		res[rec.Company] = rec
	}
	return res
}

func TestReconcile_Scenario(t *testing.T) {
	firstUniverse := []model.MarketData{
		row("8/04/2025", "A", 1000, 10),
		row("8/04/2025", "B", 900, 20),
		row("8/04/2025", "C", 800, 5),
		row("8/04/2025", "D", 700, 7),
	}
	secondUniverse := []model.MarketData{
		row("9/05/2025", "A", 1100, 11),
		row("9/05/2025", "B", 850, 21),
		row("9/05/2025", "E", 600, 8),
		row("9/05/2025", "C", 100, 6),
		row("9/05/2025", "F", 10, 3),
	}
	capital := decimal.NewFromInt(100)

	oldPortfolio, err := indexBuilder.Build(firstUniverse, capital, decimal.RequireFromString("0.85"))
	require.NoError(t, err)
	newPortfolio, err := indexBuilder.Build(secondUniverse, capital, decimal.RequireFromString("0.99"))
	require.NoError(t, err)
	require.Len(t, newPortfolio, 3)

	rows, err := Reconcile(oldPortfolio, newPortfolio, secondUniverse)
	require.NoError(t, err)

	got := make([]string, 0, len(rows))
	for _, rec := range rows {
		got = append(got, rec.Company)
		assert.False(t, rec.CurrentValue.IsNegative(), rec.Company)
	}
	assert.Equal(t, []string{"A", "B", "C", "E", "F"}, got)

	recs := byCompany(rows)
	assert.Equal(t, model.StatusKeep, recs["A"].Status)
	assert.Equal(t, model.StatusKeep, recs["B"].Status)
	assert.Equal(t, model.StatusSell, recs["C"].Status)
	assert.Equal(t, model.StatusBuy, recs["E"].Status)
	assert.Equal(t, model.StatusNone, recs["F"].Status)

	oldC := oldPortfolio[2]
	require.Equal(t, "C", oldC.Company)
	assert.True(t, oldC.NumShares.Mul(decimal.NewFromInt(6)).Equal(recs["C"].CurrentValue))
	assert.True(t, recs["E"].CurrentValue.IsZero())
	assert.True(t, recs["F"].CurrentValue.IsZero())
	assert.False(t, recs["E"].NumSharesOld.Valid)
	assert.False(t, recs["C"].NumSharesNew.Valid)

	// A is valued with the second date price
	assert.True(t, oldPortfolio[0].NumShares.Mul(decimal.NewFromInt(11)).Equal(recs["A"].CurrentValue))
}

func TestReconcile_CompanySetIsUnionOfInputs(t *testing.T) {
	oldPortfolio := []model.PortfolioStock{holding("A", "1"), holding("OLD", "2")}
	newPortfolio := []model.PortfolioStock{holding("A", "3"), holding("NEW", "4")}
	universe := []model.MarketData{row("d", "A", 10, 2), row("d", "NEW", 5, 1), row("d", "OTHER", 1, 1)}

	rows, err := Reconcile(oldPortfolio, newPortfolio, universe)
	require.NoError(t, err)

	recs := byCompany(rows)
	assert.Len(t, recs, 4)
	for _, company := range []string{"A", "OLD", "NEW", "OTHER"} {
		assert.Contains(t, recs, company)
	}

	for _, rec := range rows {
		assert.Contains(t, []model.Status{model.StatusKeep, model.StatusSell, model.StatusBuy, model.StatusNone}, rec.Status)
	}
}

func TestReconcile_MissingNewPriceIsValuedAtZero(t *testing.T) {
	oldPortfolio := []model.PortfolioStock{holding("GONE", "12.5")}

	rows, err := Reconcile(oldPortfolio, nil, []model.MarketData{row("d", "A", 10, 2)})
	require.NoError(t, err)

	rec := byCompany(rows)["GONE"]
	assert.Equal(t, model.StatusSell, rec.Status)
	assert.False(t, rec.PriceNew.Valid)
	assert.True(t, rec.CurrentValue.IsZero())
}

func TestReconcile_EmptyInputs(t *testing.T) {
	rows, err := Reconcile(nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReconcile_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		old      []model.PortfolioStock
		new      []model.PortfolioStock
		universe []model.MarketData
	}{
		{
			name: "duplicate in old portfolio",
			old:  []model.PortfolioStock{holding("A", "1"), holding("A", "2")},
		},
		{
			name: "duplicate in new portfolio",
			new:  []model.PortfolioStock{holding("B", "1"), holding("B", "2")},
		},
		{
			name:     "duplicate in new universe",
			universe: []model.MarketData{row("d", "C", 1, 1), row("d", "C", 2, 2)},
		},
		{
			name: "empty company",
			old:  []model.PortfolioStock{holding("", "1")},
		},
		{
			name:     "negative new price",
			old:      []model.PortfolioStock{holding("A", "10")},
			universe: []model.MarketData{row("d", "A", 10, -3)},
		},
		{
			name:     "zero new price",
			universe: []model.MarketData{row("d", "A", 10, 0)},
		},
		{
			name: "negative shares in old portfolio",
			old:  []model.PortfolioStock{holding("A", "-10")},
		},
		{
			name: "zero shares in new portfolio",
			new:  []model.PortfolioStock{holding("A", "0")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Reconcile(tt.old, tt.new, tt.universe)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
			assert.Nil(t, rows)
		})
	}
}

func TestBoughtAndSold(t *testing.T) {
	rows := []model.Reconciliation{
		{
			Company:      "A",
			NumSharesOld: decimal.NewNullDecimal(decimal.NewFromInt(1)),
			NumSharesNew: decimal.NewNullDecimal(decimal.NewFromInt(2)),
			PriceNew:     decimal.NewNullDecimal(decimal.NewFromInt(3)),
			Status:       model.StatusKeep,
			CurrentValue: decimal.NewFromInt(3),
		},
		{
			Company:      "C",
			NumSharesOld: decimal.NewNullDecimal(decimal.NewFromInt(4)),
			PriceNew:     decimal.NewNullDecimal(decimal.NewFromInt(6)),
			Status:       model.StatusSell,
			CurrentValue: decimal.NewFromInt(24),
		},
		{
			Company:      "E",
			NumSharesNew: decimal.NewNullDecimal(decimal.NewFromInt(5)),
			PriceNew:     decimal.NewNullDecimal(decimal.NewFromInt(8)),
			Status:       model.StatusBuy,
			CurrentValue: decimal.Zero,
		},
		{
			Company:  "F",
			PriceNew: decimal.NewNullDecimal(decimal.NewFromInt(1)),
			Status:   model.StatusNone,
		},
	}

	bought := Bought(rows)
	require.Len(t, bought, 1)
	assert.Equal(t, "E", bought[0].Company)
	assert.True(t, bought[0].NumShares.Equal(decimal.NewFromInt(5)))
	assert.True(t, bought[0].Price.Equal(decimal.NewFromInt(8)))

	sold := Sold(rows)
	require.Len(t, sold, 1)
	assert.Equal(t, "C", sold[0].Company)
	assert.True(t, sold[0].NumShares.Equal(decimal.NewFromInt(4)))
	assert.True(t, sold[0].Price.Equal(decimal.NewFromInt(6)))
	assert.True(t, sold[0].TotalValue.Equal(decimal.NewFromInt(24)))

	assert.Empty(t, Bought(nil))
	assert.Empty(t, Sold(nil))
}

package indexBuilder

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/service"
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

func firstDateUniverse() []model.MarketData {
	return []model.MarketData{
		row("8/04/2025", "A", 1000, 10),
		row("8/04/2025", "B", 900, 20),
		row("8/04/2025", "C", 800, 5),
		row("8/04/2025", "D", 700, 7),
	}
}

func companies(portfolio []model.PortfolioStock) []string {
	res := make([]string, 0, len(portfolio))
	for _, stock := range portfolio {
		res = append(res, stock.Company)
	}
	return res
}

func sumOf(portfolio []model.PortfolioStock, field func(model.PortfolioStock) decimal.Decimal) float64 {
	total := decimal.Zero
	for _, stock := range portfolio {
		total = total.Add(field(stock))
	}
	return total.InexactFloat64()
}

func TestBuild_Scenario(t *testing.T) {
	portfolio, err := Build(firstDateUniverse(), decimal.NewFromInt(100), decimal.RequireFromString("0.85"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, companies(portfolio))

	expectedWeights := []float64{1000.0 / 3400, 900.0 / 3400, 800.0 / 3400}
	expectedCumulative := []float64{1000.0 / 3400, 1900.0 / 3400, 2700.0 / 3400}
	for i, stock := range portfolio {
		assert.InDelta(t, expectedWeights[i], stock.Weight.InexactFloat64(), 1e-12)
		assert.InDelta(t, expectedCumulative[i], stock.CumulativeWeight.InexactFloat64(), 1e-12)
		assert.InDelta(t, stock.MarketCapM.InexactFloat64()/2700, stock.WeightAdjusted.InexactFloat64(), 1e-12)
	}

	assert.InDelta(t, 1, sumOf(portfolio, func(s model.PortfolioStock) decimal.Decimal { return s.WeightAdjusted }), 1e-12)
	assert.InDelta(t, 100, sumOf(portfolio, func(s model.PortfolioStock) decimal.Decimal { return s.DollarsAllocated }), 1e-9)

	// A: 1000/2700 of 100 dollars at price 10
	assert.InDelta(t, 100.0*1000/2700/10, portfolio[0].NumShares.InexactFloat64(), 1e-9)
	for _, stock := range portfolio {
		assert.True(t, stock.NumShares.IsPositive(), stock.Company)
	}
}

func TestBuild_FullCutoffSelectsEverything(t *testing.T) {
	portfolio, err := Build(firstDateUniverse(), decimal.NewFromInt(100), decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, companies(portfolio))
	assert.True(t, portfolio[3].CumulativeWeight.Equal(decimal.NewFromInt(1)))
}

func TestBuild_LargestAboveCutoffGivesEmptyPortfolio(t *testing.T) {
	universe := []model.MarketData{
		row("8/04/2025", "X", 900, 1),
		row("8/04/2025", "Y", 100, 1),
	}

	portfolio, err := Build(universe, decimal.NewFromInt(100), decimal.RequireFromString("0.85"))
	require.NoError(t, err)
	assert.NotNil(t, portfolio)
	assert.Empty(t, portfolio)
}

func TestBuild_TiesBrokenByCompany(t *testing.T) {
	universe := []model.MarketData{
		row("d", "B", 500, 1),
		row("d", "A", 500, 1),
		row("d", "C", 1000, 1),
	}
	reversed := slices.Clone(universe)
	slices.Reverse(reversed)

	cutoff := decimal.RequireFromString("0.75")

	portfolio, err := Build(universe, decimal.NewFromInt(100), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, companies(portfolio))

	portfolioReversed, err := Build(reversed, decimal.NewFromInt(100), cutoff)
	require.NoError(t, err)
	assert.Equal(t, portfolio, portfolioReversed)
}

func TestBuild_IsIdempotentAndDoesNotMutateInput(t *testing.T) {
	universe := []model.MarketData{
		row("d", "D", 700, 7),
		row("d", "B", 900, 20),
		row("d", "A", 1000, 10),
		row("d", "C", 800, 5),
	}
	original := slices.Clone(universe)

	first, err := Build(universe, decimal.NewFromInt(100), decimal.RequireFromString("0.85"))
	require.NoError(t, err)

	second, err := Build(slices.Clone(universe), decimal.NewFromInt(100), decimal.RequireFromString("0.85"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, original, universe)
}

func TestBuild_Properties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	for n := 0; n < 200; n++ {
		size := 1 + rnd.Intn(30)
		universe := make([]model.MarketData, 0, size)
		for i := 0; i < size; i++ {
			universe = append(universe, row("d", fmt.Sprintf("C%02d", i), 1+rnd.Int63n(5000), 1+rnd.Int63n(300)))
		}
		cutoff := decimal.NewFromInt(1 + rnd.Int63n(100)).Div(decimal.NewFromInt(100))

		portfolio, err := Build(universe, decimal.NewFromInt(1_000_000), cutoff)
		require.NoError(t, err)

		ranked := slices.Clone(universe)
		slices.SortStableFunc(ranked, func(a, b model.MarketData) int {
			if c := b.MarketCapM.Cmp(a.MarketCapM); c != 0 {
				return c
			}
			if a.Company < b.Company {
				return -1
			}
			return 1
		})

		total := decimal.Zero
		for _, r := range ranked {
			total = total.Add(r.MarketCapM)
		}

		selectedCap := decimal.Zero
		for i, stock := range portfolio {
			assert.Equal(t, ranked[i].Company, stock.Company, "portfolio must be a prefix of the ranking")
			assert.True(t, stock.NumShares.IsPositive())
			selectedCap = selectedCap.Add(stock.MarketCapM)
		}
		assert.True(t, selectedCap.LessThanOrEqual(cutoff.Mul(total)))

		if len(portfolio) < len(ranked) {
			next := selectedCap.Add(ranked[len(portfolio)].MarketCapM)
			assert.True(t, next.GreaterThan(cutoff.Mul(total)), "next excluded company must break the cutoff")
		}

		if len(portfolio) > 0 {
			assert.InDelta(t, 1, sumOf(portfolio, func(s model.PortfolioStock) decimal.Decimal { return s.WeightAdjusted }), 1e-12)
			assert.InDelta(t, 1_000_000, sumOf(portfolio, func(s model.PortfolioStock) decimal.Decimal { return s.DollarsAllocated }), 1e-6)
		}
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	cutoff := decimal.RequireFromString("0.85")

	tests := []struct {
		name     string
		universe []model.MarketData
		capital  decimal.Decimal
		cutoff   decimal.Decimal
	}{
		{name: "empty universe", universe: nil, capital: hundred, cutoff: cutoff},
		{name: "zero capital", universe: firstDateUniverse(), capital: decimal.Zero, cutoff: cutoff},
		{name: "negative capital", universe: firstDateUniverse(), capital: decimal.NewFromInt(-1), cutoff: cutoff},
		{name: "zero cutoff", universe: firstDateUniverse(), capital: hundred, cutoff: decimal.Zero},
		{name: "cutoff above one", universe: firstDateUniverse(), capital: hundred, cutoff: decimal.RequireFromString("1.01")},
		{
			name:     "zero price",
			universe: []model.MarketData{row("d", "A", 10, 0)},
			capital:  hundred, cutoff: cutoff,
		},
		{
			name:     "negative market cap",
			universe: []model.MarketData{row("d", "A", -10, 1)},
			capital:  hundred, cutoff: cutoff,
		},
		{
			name:     "missing market cap",
			universe: []model.MarketData{{Date: "d", Company: "A", Price: decimal.NewFromInt(1)}},
			capital:  hundred, cutoff: cutoff,
		},
		{
			name:     "duplicate company",
			universe: []model.MarketData{row("d", "A", 10, 1), row("d", "A", 20, 1)},
			capital:  hundred, cutoff: cutoff,
		},
		{
			name:     "mixed dates",
			universe: []model.MarketData{row("d1", "A", 10, 1), row("d2", "B", 20, 1)},
			capital:  hundred, cutoff: cutoff,
		},
		{
			name:     "empty company",
			universe: []model.MarketData{row("d", "", 10, 1)},
			capital:  hundred, cutoff: cutoff,
		},
		{
			name:     "empty date",
			universe: []model.MarketData{row("", "A", 10, 1)},
			capital:  hundred, cutoff: cutoff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portfolio, err := Build(tt.universe, tt.capital, tt.cutoff)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
			assert.Nil(t, portfolio)
		})
	}
}

// Package indexBuilder selects and weights index constituents from a single-date universe
// and allocates capital to them.
package indexBuilder

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/service"
	"github.com/shopspring/decimal"
)

// Build returns the capitalization-weighted portfolio for universe.
//
// Companies are ranked by market cap descending (ties by company name ascending) and taken
// while their cumulative weight stays within cutoff. The selected weights are renormalized to
// sum to one and capital is split accordingly. An empty portfolio is a valid result when the
// largest company alone exceeds cutoff.
func Build(universe []model.MarketData, capital, cutoff decimal.Decimal) ([]model.PortfolioStock, error) {
	if err := validate(universe, capital, cutoff); err != nil {
		return nil, err
	}

	sorted := slices.Clone(universe)
	slices.SortStableFunc(sorted, func(a, b model.MarketData) int {
		if c := b.MarketCapM.Cmp(a.MarketCapM); c != 0 {
			return c
		}
		return cmp.Compare(a.Company, b.Company)
	})

	totalCap := decimal.Zero
	for _, row := range sorted {
		totalCap = totalCap.Add(row.MarketCapM)
	}

	// comparing market caps against cutoff*total keeps the boundary exact
	capLimit := cutoff.Mul(totalCap)

	portfolio := make([]model.PortfolioStock, 0, len(sorted))
	runningCap := decimal.Zero
	for _, row := range sorted {
		next := runningCap.Add(row.MarketCapM)
		if next.GreaterThan(capLimit) {
			break
		}
		runningCap = next

		portfolio = append(portfolio, model.PortfolioStock{
			MarketData:       row,
			Weight:           row.MarketCapM.Div(totalCap),
			CumulativeWeight: runningCap.Div(totalCap),
		})
	}

	if len(portfolio) == 0 {
		return portfolio, nil
	}

	selectedCap := runningCap
	for i := range portfolio {
		stock := &portfolio[i]
		stock.WeightAdjusted = stock.MarketCapM.Div(selectedCap)
		stock.DollarsAllocated = stock.WeightAdjusted.Mul(capital)
		stock.NumShares = stock.DollarsAllocated.Div(stock.Price)
	}

	return portfolio, nil
}

func validate(universe []model.MarketData, capital, cutoff decimal.Decimal) error {
	if len(universe) == 0 {
		return fmt.Errorf("%w: empty universe", service.ErrInvalidInput)
	}

	if !capital.IsPositive() {
		return fmt.Errorf("%w: capital must be positive, got %s", service.ErrInvalidInput, capital)
	}

	if !cutoff.IsPositive() || cutoff.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: cutoff must be in (0, 1], got %s", service.ErrInvalidInput, cutoff)
	}

	date := universe[0].Date
	seen := make(map[string]struct{}, len(universe))

	for _, row := range universe {
		if row.Date == "" {
			return fmt.Errorf("%w: company %q has empty date", service.ErrInvalidInput, row.Company)
		}
		if row.Date != date {
			return fmt.Errorf("%w: universe mixes dates %s and %s", service.ErrInvalidInput, date, row.Date)
		}
		if row.Company == "" {
			return fmt.Errorf("%w: date %s: empty company", service.ErrInvalidInput, date)
		}
		if _, ok := seen[row.Company]; ok {
			return fmt.Errorf("%w: date %s: duplicate company %q", service.ErrInvalidInput, date, row.Company)
		}
		seen[row.Company] = struct{}{}

		if !row.MarketCapM.IsPositive() {
			return fmt.Errorf("%w: date %s: company %q market cap must be positive, got %s",
				service.ErrInvalidInput, date, row.Company, row.MarketCapM)
		}
		if !row.Price.IsPositive() {
			return fmt.Errorf("%w: date %s: company %q price must be positive, got %s",
				service.ErrInvalidInput, date, row.Company, row.Price)
		}
	}

	return nil
}

// Package portfolioReconciler compares two index portfolios and labels every company with
// the action needed to move from the old one to the new one.
package portfolioReconciler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/service"
	"github.com/shopspring/decimal"
)

// Reconcile joins oldPortfolio, newPortfolio and newUniverse by company.
//
// The result holds one row per company found in any of the inputs, ordered by company.
// newUniverse only contributes prices. A company without a new price is valued at zero.
// Empty or duplicate companies and non-positive prices or share counts fail with
// service.ErrInvalidInput.
func Reconcile(
	oldPortfolio []model.PortfolioStock,
	newPortfolio []model.PortfolioStock,
	newUniverse []model.MarketData,
) ([]model.Reconciliation, error) {
	oldShares, err := sharesByCompany(oldPortfolio, "old portfolio")
	if err != nil {
		return nil, err
	}

	newShares, err := sharesByCompany(newPortfolio, "new portfolio")
	if err != nil {
		return nil, err
	}

	newPrices := make(map[string]decimal.Decimal, len(newUniverse))
	for _, row := range newUniverse {
		if err := checkKey(newPrices, row.Company, "new universe"); err != nil {
			return nil, err
		}
		if err := checkPositive(row.Price, row.Company, "new universe", "price"); err != nil {
			return nil, err
		}
		newPrices[row.Company] = row.Price
	}

	keys := make(map[string]struct{}, len(oldShares)+len(newShares)+len(newPrices))
	for company := range oldShares {
		keys[company] = struct{}{}
	}
	for company := range newShares {
		keys[company] = struct{}{}
	}
	for company := range newPrices {
		keys[company] = struct{}{}
	}

	res := make([]model.Reconciliation, 0, len(keys))
	for company := range keys {
		rec := model.Reconciliation{Company: company}

		if shares, ok := oldShares[company]; ok {
			rec.NumSharesOld = decimal.NewNullDecimal(shares)
		}
		if shares, ok := newShares[company]; ok {
			rec.NumSharesNew = decimal.NewNullDecimal(shares)
		}
		if price, ok := newPrices[company]; ok {
			rec.PriceNew = decimal.NewNullDecimal(price)
		}

		rec.Status = status(rec.NumSharesOld.Valid, rec.NumSharesNew.Valid)
		rec.CurrentValue = valueOrZero(rec.NumSharesOld).Mul(valueOrZero(rec.PriceNew))

		res = append(res, rec)
	}

	slices.SortFunc(res, func(a, b model.Reconciliation) int {
		return cmp.Compare(a.Company, b.Company)
	})

	return res, nil
}

// Bought returns the companies entering the index with their new share count and price.
func Bought(rows []model.Reconciliation) []model.BoughtStock {
	res := make([]model.BoughtStock, 0)
	for _, rec := range rows {
		if rec.Status != model.StatusBuy {
			continue
		}
		res = append(res, model.BoughtStock{
			Company:   rec.Company,
			NumShares: rec.NumSharesNew.Decimal,
			Price:     valueOrZero(rec.PriceNew),
		})
	}
	return res
}

// Sold returns the companies leaving the index valued at the new price.
func Sold(rows []model.Reconciliation) []model.SoldStock {
	res := make([]model.SoldStock, 0)
	for _, rec := range rows {
		if rec.Status != model.StatusSell {
			continue
		}
		res = append(res, model.SoldStock{
			Company:    rec.Company,
			NumShares:  rec.NumSharesOld.Decimal,
			Price:      valueOrZero(rec.PriceNew),
			TotalValue: rec.CurrentValue,
		})
	}
	return res
}

func status(inOld, inNew bool) model.Status {
	switch {
	case inOld && inNew:
		return model.StatusKeep
	case inOld:
		return model.StatusSell
	case inNew:
		return model.StatusBuy
	default:
		return model.StatusNone
	}
}

func sharesByCompany(portfolio []model.PortfolioStock, name string) (map[string]decimal.Decimal, error) {
	res := make(map[string]decimal.Decimal, len(portfolio))
	for _, stock := range portfolio {
		if err := checkKey(res, stock.Company, name); err != nil {
			return nil, err
		}
		if err := checkPositive(stock.NumShares, stock.Company, name, "num_shares"); err != nil {
			return nil, err
		}
		res[stock.Company] = stock.NumShares
	}
	return res, nil
}

func checkKey(seen map[string]decimal.Decimal, company, name string) error {
	if company == "" {
		return fmt.Errorf("%w: %s: empty company", service.ErrInvalidInput, name)
	}
	if _, ok := seen[company]; ok {
		return fmt.Errorf("%w: %s: duplicate company %q", service.ErrInvalidInput, name, company)
	}
	return nil
}

// checkPositive keeps every current value non-negative.
func checkPositive(value decimal.Decimal, company, name, field string) error {
	if !value.IsPositive() {
		return fmt.Errorf("%w: %s: company %q %s must be positive, got %s", service.ErrInvalidInput, name, company, field, value)
	}
	return nil
}

func valueOrZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

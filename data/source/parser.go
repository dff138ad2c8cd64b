// Package source reads market capitalisation datasets into universe rows.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/service"
	"github.com/shopspring/decimal"
)

const (
	ColumnDate       = "date"
	ColumnCompany    = "company"
	ColumnMarketCapM = "market_cap_m"
	ColumnPrice      = "price"
)

var requiredColumns = []string{ColumnDate, ColumnCompany, ColumnMarketCapM, ColumnPrice}

// ParseCSV reads a delimited dataset with a header row.
func ParseCSV(r io.Reader) ([]model.MarketData, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %w", service.ErrSchema, err)
	}

	return ParseRecords(records)
}

// ParseRecords converts a header row followed by data rows. Column order is free,
// extra columns are ignored.
func ParseRecords(records [][]string) ([]model.MarketData, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", service.ErrSchema)
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", service.ErrSchema, column)
		}
	}

	res := make([]model.MarketData, 0, len(records)-1)
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}

		line := i + 2
		cell := func(column string) (string, error) {
			j := index[column]
			if j >= len(record) || strings.TrimSpace(record[j]) == "" {
				return "", fmt.Errorf("%w: line %d: missing value for %q", service.ErrSchema, line, column)
			}
			return strings.TrimSpace(record[j]), nil
		}

		number := func(column string) (decimal.Decimal, error) {
			raw, err := cell(column)
			if err != nil {
				return decimal.Decimal{}, err
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return decimal.Decimal{}, fmt.Errorf("%w: line %d: %q is not numeric: %q", service.ErrSchema, line, column, raw)
			}
			return d, nil
		}

		var (
			row model.MarketData
			err error
		)

		if row.Date, err = cell(ColumnDate); err != nil {
			return nil, err
		}
		if row.Company, err = cell(ColumnCompany); err != nil {
			return nil, err
		}
		if row.MarketCapM, err = number(ColumnMarketCapM); err != nil {
			return nil, err
		}
		if row.Price, err = number(ColumnPrice); err != nil {
			return nil, err
		}

		res = append(res, row)
	}

	return res, nil
}

// FilterByDate keeps the rows of one date, failing with service.ErrNotFound when there are none.
func FilterByDate(rows []model.MarketData, date string) ([]model.MarketData, error) {
	res := make([]model.MarketData, 0)
	for _, row := range rows {
		if row.Date == date {
			res = append(res, row)
		}
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("%w: no market data for date %s", service.ErrNotFound, date)
	}

	return res, nil
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

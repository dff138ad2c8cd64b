package csvGenerator

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
)

const (
	InitialPortfolioFile = "initial_portfolio.csv"
	NewPortfolioFile     = "new_portfolio.csv"
	EquitiesBoughtFile   = "equities_bought.csv"
	EquitiesSoldFile     = "equities_sold.csv"
)

var (
	portfolioHeader = []string{"date", "company", "market_cap_m", "price", "dollars_allocated", "num_shares"}
	boughtHeader    = []string{"company", "num_shares", "price"}
	soldHeader      = []string{"company", "num_shares", "price", "total_value"}
)

type CSVGenerator struct{}

func New() *CSVGenerator {
	return &CSVGenerator{}
}

func (g *CSVGenerator) Generate(ctx context.Context, report model.RebalanceReport) ([]model.ReportFile, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CSVGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{name: InitialPortfolioFile, header: portfolioHeader, rows: portfolioRows(report.InitialPortfolio)},
		{name: NewPortfolioFile, header: portfolioHeader, rows: portfolioRows(report.NewPortfolio)},
		{name: EquitiesBoughtFile, header: boughtHeader, rows: boughtRows(report.Bought)},
		{name: EquitiesSoldFile, header: soldHeader, rows: soldRows(report.Sold)},
	}

	files := make([]model.ReportFile, 0, len(tables))
	for _, table := range tables {
		content, err := encode(table.header, table.rows)
		if err != nil {
			slog.Error("can't encode csv", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", table.name), slog.String("err", err.Error()))
			return nil, err
		}
		files = append(files, model.ReportFile{Name: table.name, Content: content})
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return files, nil
}

func encode(header []string, rows [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func portfolioRows(portfolio []model.PortfolioStock) [][]string {
	rows := make([][]string, 0, len(portfolio))
	for _, stock := range portfolio {
		rows = append(rows, []string{
			stock.Date,
			stock.Company,
			stock.MarketCapM.String(),
			stock.Price.String(),
			stock.DollarsAllocated.String(),
			stock.NumShares.String(),
		})
	}
	return rows
}

func boughtRows(bought []model.BoughtStock) [][]string {
	rows := make([][]string, 0, len(bought))
	for _, stock := range bought {
		rows = append(rows, []string{stock.Company, stock.NumShares.String(), stock.Price.String()})
	}
	return rows
}

func soldRows(sold []model.SoldStock) [][]string {
	rows := make([][]string, 0, len(sold))
	for _, stock := range sold {
		rows = append(rows, []string{stock.Company, stock.NumShares.String(), stock.Price.String(), stock.TotalValue.String()})
	}
	return rows
}

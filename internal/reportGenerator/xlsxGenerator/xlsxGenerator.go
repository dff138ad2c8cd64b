package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	InitialPortfolioSheet = "Initial portfolio"
	NewPortfolioSheet     = "New portfolio"
	BoughtSheet           = "Bought"
	SoldSheet             = "Sold"
	ReconciliationSheet   = "Reconciliation"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func FileName(report model.RebalanceReport) string {
	return fmt.Sprintf("rebalance_%s_%s.xlsx", fileSafe(report.FirstDate), fileSafe(report.SecondDate))
}

func (g *XLSXGenerator) Generate(ctx context.Context, report model.RebalanceReport) (files []model.ReportFile, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	sheets := []func(*excelize.File, model.RebalanceReport) error{
		fillInitialPortfolio,
		fillNewPortfolio,
		fillBought,
		fillSold,
		fillReconciliation,
	}
	for _, fill := range sheets {
		if err := fill(f, report); err != nil {
			slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}
	}

	// default sheet
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return []model.ReportFile{{Name: FileName(report), Content: buf.Bytes()}}, nil
}

// newSheet writes a merged, colored title row and a column header row.
func newSheet(f *excelize.File, sheet, title, color string, header []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, "A1", title); err != nil {
		return err
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("set title style: %w", err)
	}

	cells := make([]any, 0, len(header))
	for _, h := range header {
		cells = append(cells, h)
	}
	return f.SetSheetRow(sheet, "A2", &cells)
}

func setRow(f *excelize.File, sheet string, rowNum int, values ...any) error {
	return f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &values)
}

func fillPortfolio(f *excelize.File, sheet, title, color string, portfolio []model.PortfolioStock) error {
	header := []string{"date", "company", "market_cap_m", "price", "weight", "cumulative_weight", "weight_adjusted", "dollars_allocated", "num_shares"}
	if err := newSheet(f, sheet, title, color, header); err != nil {
		return err
	}

	for i, stock := range portfolio {
		err := setRow(f, sheet, i+3,
			stock.Date,
			stock.Company,
			stock.MarketCapM.InexactFloat64(),
			stock.Price.InexactFloat64(),
			stock.Weight.InexactFloat64(),
			stock.CumulativeWeight.InexactFloat64(),
			stock.WeightAdjusted.InexactFloat64(),
			stock.DollarsAllocated.InexactFloat64(),
			stock.NumShares.InexactFloat64(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func fillInitialPortfolio(f *excelize.File, report model.RebalanceReport) error {
	return fillPortfolio(f, InitialPortfolioSheet, "Portfolio on "+report.FirstDate, "#cfe2f3", report.InitialPortfolio)
}

func fillNewPortfolio(f *excelize.File, report model.RebalanceReport) error {
	return fillPortfolio(f, NewPortfolioSheet, "Portfolio on "+report.SecondDate, "#cfe2f3", report.NewPortfolio)
}

func fillBought(f *excelize.File, report model.RebalanceReport) error {
	if err := newSheet(f, BoughtSheet, "Equities bought", "#d9ead3", []string{"company", "num_shares", "price"}); err != nil {
		return err
	}

	for i, stock := range report.Bought {
		if err := setRow(f, BoughtSheet, i+3, stock.Company, stock.NumShares.InexactFloat64(), stock.Price.InexactFloat64()); err != nil {
			return err
		}
	}

	return nil
}

func fillSold(f *excelize.File, report model.RebalanceReport) error {
	if err := newSheet(f, SoldSheet, "Equities sold", "#f4cccc", []string{"company", "num_shares", "price", "total_value"}); err != nil {
		return err
	}

	for i, stock := range report.Sold {
		err := setRow(f, SoldSheet, i+3,
			stock.Company,
			stock.NumShares.InexactFloat64(),
			stock.Price.InexactFloat64(),
			stock.TotalValue.InexactFloat64(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func fillReconciliation(f *excelize.File, report model.RebalanceReport) error {
	header := []string{"company", "num_shares_old", "num_shares_new", "price_new", "status", "current_value"}
	if err := newSheet(f, ReconciliationSheet, "Reconciliation", "#f9cb9c", header); err != nil {
		return err
	}

	for i, rec := range report.Reconciliation {
		err := setRow(f, ReconciliationSheet, i+3,
			rec.Company,
			nullable(rec.NumSharesOld),
			nullable(rec.NumSharesNew),
			nullable(rec.PriceNew),
			string(rec.Status),
			rec.CurrentValue.InexactFloat64(),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// nullable leaves the cell empty for absent values.
func nullable(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func fileSafe(date string) string {
	res := []rune(date)
	for i, r := range res {
		if r == '/' || r == '\\' || r == ' ' || r == ':' {
			res[i] = '-'
		}
	}
	return string(res)
}

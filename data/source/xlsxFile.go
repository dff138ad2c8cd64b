package source

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/xuri/excelize/v2"
)

// XLSXFile reads the dataset from one sheet of a workbook.
type XLSXFile struct {
	path  string
	sheet string
}

func NewXLSXFile(path, sheet string) *XLSXFile {
	return &XLSXFile{path: path, sheet: sheet}
}

func (s *XLSXFile) Name() string {
	return "xlsx:" + s.path + "#" + s.sheet
}

func (s *XLSXFile) GetUniverse(ctx context.Context, date string) (universe []model.MarketData, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXFile.GetUniverse"

	slog.Debug("GetUniverse start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", s.path), slog.String("date", date))
	defer func() {
		if err != nil {
			slog.Error("GetUniverse failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUniverse completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(universe)))
		}
	}()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	records, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, err
	}

	rows, err := ParseRecords(records)
	if err != nil {
		return nil, err
	}

	return FilterByDate(rows, date)
}

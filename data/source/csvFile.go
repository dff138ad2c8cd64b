package source

import (
	"context"
	"log/slog"
	"os"

	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
)

type CSVFile struct {
	path string
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

func (s *CSVFile) Name() string {
	return "csv:" + s.path
}

func (s *CSVFile) GetUniverse(ctx context.Context, date string) (universe []model.MarketData, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "CSVFile.GetUniverse"

	slog.Debug("GetUniverse start", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", s.path), slog.String("date", date))
	defer func() {
		if err != nil {
			slog.Error("GetUniverse failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUniverse completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(universe)))
		}
	}()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseCSV(f)
	if err != nil {
		return nil, err
	}

	return FilterByDate(rows, date)
}

package rebalanceService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/service/indexBuilder"
	"github.com/KotFed0t/index_rebalancer/internal/service/portfolioReconciler"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/shopspring/decimal"
)

type MarketDataSource interface {
	Name() string
	GetUniverse(ctx context.Context, date string) ([]model.MarketData, error)
}

type Cache interface {
	GetUniverse(ctx context.Context, sourceName, date string) ([]model.MarketData, error)
	SetUniverse(ctx context.Context, sourceName, date string, universe []model.MarketData) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.RebalanceReport) ([]model.ReportFile, error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type Notifier interface {
	Notify(ctx context.Context, report model.RebalanceReport, files []model.ReportFile) error
}

type RebalanceService struct {
	cfg          *config.Config
	source       MarketDataSource
	cache        Cache
	generators   []ReportGenerator
	cloudStorage CloudStorage
	notifier     Notifier
}

// New wires the service. cache, cloudStorage and notifier are optional and may be nil.
func New(
	cfg *config.Config,
	source MarketDataSource,
	cache Cache,
	generators []ReportGenerator,
	cloudStorage CloudStorage,
	notifier Notifier,
) *RebalanceService {
	return &RebalanceService{
		cfg:          cfg,
		source:       source,
		cache:        cache,
		generators:   generators,
		cloudStorage: cloudStorage,
		notifier:     notifier,
	}
}

// Run rebalances between the configured dates and publishes the reports.
func (s *RebalanceService) Run(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RebalanceService.Run"

	slog.Info("Run start", slog.String("rqID", rqID), slog.String("op", op),
		slog.String("firstDate", s.cfg.Index.FirstDate), slog.String("secondDate", s.cfg.Index.SecondDate))

	report, err := s.Rebalance(ctx, s.cfg.Index.FirstDate, s.cfg.Index.SecondDate, s.cfg.Index.Capital, s.cfg.Index.Cutoff)
	if err != nil {
		return err
	}

	paths, err := s.Publish(ctx, report)
	if err != nil {
		return err
	}

	slog.Info("Run finished", slog.String("rqID", rqID), slog.String("op", op), slog.Any("files", paths))

	return nil
}

// Rebalance builds the index on both dates and reconciles them.
func (s *RebalanceService) Rebalance(ctx context.Context, firstDate, secondDate string, capital, cutoff decimal.Decimal) (model.RebalanceReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RebalanceService.Rebalance"

	slog.Debug("Rebalance start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Rebalance finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	initialPortfolio, _, err := s.buildIndex(ctx, firstDate, capital, cutoff)
	if err != nil {
		return model.RebalanceReport{}, err
	}

	newPortfolio, newUniverse, err := s.buildIndex(ctx, secondDate, capital, cutoff)
	if err != nil {
		return model.RebalanceReport{}, err
	}

	reconciliation, err := portfolioReconciler.Reconcile(initialPortfolio, newPortfolio, newUniverse)
	if err != nil {
		slog.Error("got error from portfolioReconciler.Reconcile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.RebalanceReport{}, fmt.Errorf("reconcile %s with %s: %w", firstDate, secondDate, err)
	}

	for _, rec := range reconciliation {
		if rec.NumSharesOld.Valid && !rec.PriceNew.Valid {
			slog.Warn("held company has no price on second date, valued at zero",
				slog.String("rqID", rqID), slog.String("op", op),
				slog.String("company", rec.Company), slog.String("date", secondDate))
		}
	}

	report := model.RebalanceReport{
		FirstDate:        firstDate,
		SecondDate:       secondDate,
		Capital:          capital,
		Cutoff:           cutoff,
		InitialPortfolio: initialPortfolio,
		NewPortfolio:     newPortfolio,
		Reconciliation:   reconciliation,
		Bought:           portfolioReconciler.Bought(reconciliation),
		Sold:             portfolioReconciler.Sold(reconciliation),
	}

	slog.Info("rebalance computed",
		slog.String("rqID", rqID), slog.String("op", op),
		slog.Int("initialConstituents", len(initialPortfolio)),
		slog.Int("newConstituents", len(newPortfolio)),
		slog.Int("bought", len(report.Bought)),
		slog.Int("sold", len(report.Sold)),
	)

	return report, nil
}

// Publish writes every generated report to the output dir, then shares the files
// through the optional cloud storage and notifier.
func (s *RebalanceService) Publish(ctx context.Context, report model.RebalanceReport) (paths []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RebalanceService.Publish"

	slog.Debug("Publish start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Publish finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	var files []model.ReportFile
	for _, generator := range s.generators {
		generated, err := generator.Generate(ctx, report)
		if err != nil {
			slog.Error("got error from generator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}
		files = append(files, generated...)
	}

	if err := os.MkdirAll(s.cfg.Output.Dir, 0o755); err != nil {
		slog.Error("can't create output dir", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	for _, file := range files {
		path := filepath.Join(s.cfg.Output.Dir, file.Name)
		if err := os.WriteFile(path, file.Content, 0o644); err != nil {
			slog.Error("can't write report", slog.String("rqID", rqID), slog.String("op", op), slog.String("path", path), slog.String("err", err.Error()))
			return nil, err
		}
		paths = append(paths, path)
	}

	if s.cloudStorage != nil {
		for _, file := range files {
			link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(file.Content), file.Name)
			if err != nil {
				slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
				return paths, err
			}
			slog.Info("report uploaded", slog.String("rqID", rqID), slog.String("file", file.Name), slog.String("link", link))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, report, files); err != nil {
			slog.Error("got error from notifier.Notify", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return paths, err
		}
	}

	return paths, nil
}

func (s *RebalanceService) buildIndex(ctx context.Context, date string, capital, cutoff decimal.Decimal) (portfolio []model.PortfolioStock, universe []model.MarketData, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RebalanceService.buildIndex"

	universe, err = s.getUniverse(ctx, date)
	if err != nil {
		return nil, nil, err
	}

	portfolio, err = indexBuilder.Build(universe, capital, cutoff)
	if err != nil {
		slog.Error("got error from indexBuilder.Build", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date), slog.String("err", err.Error()))
		return nil, nil, fmt.Errorf("build index for %s: %w", date, err)
	}

	if len(portfolio) == 0 {
		slog.Warn("no company fits the cutoff, index is empty", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date))
	}

	return portfolio, universe, nil
}

func (s *RebalanceService) getUniverse(ctx context.Context, date string) ([]model.MarketData, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RebalanceService.getUniverse"

	if s.cache != nil {
		universe, err := s.cache.GetUniverse(ctx, s.source.Name(), date)
		if err == nil {
			slog.Debug("got universe from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date))
			return universe, nil
		}
		slog.Warn("can't get universe from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	universe, err := s.source.GetUniverse(ctx, date)
	if err != nil {
		slog.Error("got error from source.GetUniverse", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date), slog.String("err", err.Error()))
		return nil, fmt.Errorf("load universe for %s: %w", date, err)
	}

	if s.cache != nil {
		if err := s.cache.SetUniverse(ctx, s.source.Name(), date, universe); err != nil {
			slog.Warn("can't save universe to cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	return universe, nil
}

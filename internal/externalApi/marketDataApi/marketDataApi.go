package marketDataApi

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/KotFed0t/index_rebalancer/data/source"
	"github.com/KotFed0t/index_rebalancer/internal/externalApi"
	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/go-resty/resty/v2"
)

// MarketDataApi downloads a published market capitalisation csv snapshot.
type MarketDataApi struct {
	client *resty.Client
	url    string
}

func New(cfg *config.Config) *MarketDataApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout)
	return &MarketDataApi{client: client, url: cfg.Source.URL}
}

func (a *MarketDataApi) Name() string {
	return "http:" + a.url
}

func (a *MarketDataApi) GetUniverse(ctx context.Context, date string) ([]model.MarketData, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	op := "MarketDataApi.GetUniverse"

	slog.Debug("start MarketDataApi.GetUniverse request", slog.String("rqID", rqId), slog.String("op", op), slog.String("date", date))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		Get(a.url)
	if err != nil {
		slog.Error("error while dialing MarketDataApi", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("MarketDataApi responded with error", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqId))
		return nil, fmt.Errorf("%w: %s", externalApi.ErrUnexpectedStatus, resp.Status())
	}

	rows, err := source.ParseCSV(bytes.NewReader(resp.Body()))
	if err != nil {
		slog.Error("can't parse market data", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	universe, err := source.FilterByDate(rows, date)
	if err != nil {
		slog.Warn("no market data for date", slog.String("date", date), slog.String("rqID", rqId))
		return nil, err
	}

	slog.Debug("MarketDataApi.GetUniverse request complete", slog.String("rqID", rqId), slog.Int("rows", len(universe)))

	return universe, nil
}

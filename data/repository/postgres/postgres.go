package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/index_rebalancer/internal/converter/dbConverter"
	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/model/dbModel"
	"github.com/KotFed0t/index_rebalancer/internal/service"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/jmoiron/sqlx"
)

type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Name() string {
	return "postgres:market_capitalisation"
}

func (p *Postgres) GetUniverse(ctx context.Context, date string) (universe []model.MarketData, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT date, company, market_cap_m, price
		FROM market_capitalisation
		WHERE date = $1
		ORDER BY company
		`

	slog.Debug("GetUniverse start", slog.String("rqID", rqID), slog.String("query", query), slog.String("date", date))
	defer func() {
		if err != nil {
			slog.Error("GetUniverse failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUniverse completed", slog.String("rqID", rqID), slog.Int("rows", len(universe)))
		}
	}()

	var rows []dbModel.MarketData
	err = p.db.SelectContext(ctx, &rows, query, date)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no market data for date %s", service.ErrNotFound, date)
	}

	return dbConverter.ConvertMarketDataSlice(rows), nil
}

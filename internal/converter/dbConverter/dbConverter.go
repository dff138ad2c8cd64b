package dbConverter

import (
	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/internal/model/dbModel"
)

func ConvertMarketData(dbMarketData dbModel.MarketData) model.MarketData {
	return model.MarketData{
		Date:       dbMarketData.Date,
		Company:    dbMarketData.Company,
		MarketCapM: dbMarketData.MarketCapM,
		Price:      dbMarketData.Price,
	}
}

func ConvertMarketDataSlice(dbRows []dbModel.MarketData) []model.MarketData {
	res := make([]model.MarketData, 0, len(dbRows))
	for _, row := range dbRows {
		res = append(res, ConvertMarketData(row))
	}
	return res
}

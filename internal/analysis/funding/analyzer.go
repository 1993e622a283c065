package funding

import (
	"context"
	"fmt"
	"math"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// RateSource отдает последнюю ставку финансирования; nil - у биржи ее нет
type RateSource interface {
	FetchFundingRate(ctx context.Context, exchange, symbol string) (*models.FundingRate, error)
}

// Result показывает, насколько перегружена одна из сторон
type Result struct {
	Rate      float64
	Available bool
	// Crowded - сторона, которая платит экстремальную ставку; пусто при нормальной ставке
	Crowded models.ZoneSide
}

// Analyzer отмечает экстремальное финансирование
type Analyzer struct {
	config config.LiquidationConfig
	source RateSource
}

func NewAnalyzer(cfg config.LiquidationConfig, source RateSource) *Analyzer {
	return &Analyzer{
		config: cfg,
		source: source,
	}
}

// Analyze получает ставку и классифицирует ее. Без ставки возвращается пустой результат
func (a *Analyzer) Analyze(ctx context.Context, exchange, symbol string) (*Result, error) {
	rate, err := a.source.FetchFundingRate(ctx, exchange, symbol)
	if err != nil {
		return nil, fmt.Errorf("funding rate: %w", err)
	}
	if rate == nil {
		return &Result{}, nil
	}
	return a.Evaluate(rate.Rate), nil
}

// Evaluate классифицирует ставку. Положительная ставка - лонги платят шортам
func (a *Analyzer) Evaluate(rate float64) *Result {
	res := &Result{Rate: rate, Available: true}
	switch {
	case rate > a.config.FundingExtreme:
		res.Crowded = models.SideLong
	case rate < -a.config.FundingExtreme:
		res.Crowded = models.SideShort
	}
	return res
}

// Squeezing сообщает, достаточно ли велика ставка, чтобы выдавить перегруженную сторону
func (a *Analyzer) Squeezing(rate float64, side models.ZoneSide) bool {
	switch side {
	case models.SideLong:
		return rate > a.config.FundingSqueeze
	case models.SideShort:
		return rate < -a.config.FundingSqueeze
	}
	return false
}

// Liquidity - условный объем, который детектор приписывает зоне по фандингу
func (a *Analyzer) Liquidity(rate float64) float64 {
	return math.Abs(rate) * a.config.FundingLiquidityMult
}

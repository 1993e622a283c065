package technical

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// CandleSource отдает историю свечей
type CandleSource interface {
	FetchCandles(ctx context.Context, exchange, symbol, timeframe string, limit int) ([]*models.Candle, error)
}

// Engine считает полный набор индикаторов по окну свечей
type Engine struct {
	config config.TechnicalConfig
	source CandleSource
	limit  int
}

// NewEngine создает движок, который запрашивает limit свечей на расчет
func NewEngine(cfg config.TechnicalConfig, source CandleSource, limit int) *Engine {
	return &Engine{
		config: cfg,
		source: source,
		limit:  limit,
	}
}

// CalculateFor загружает свечи пары и считает индикаторы
func (e *Engine) CalculateFor(ctx context.Context, exchange, symbol, timeframe string) (*models.IndicatorSet, error) {
	candles, err := e.source.FetchCandles(ctx, exchange, symbol, timeframe, e.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}

	set, err := e.Calculate(candles)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", exchange, symbol, timeframe, err)
	}

	logger.Debug("indicators calculated",
		zap.String("exchange", exchange),
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("candles", set.Len),
		zap.Float64("rsi", set.RSI.Last()))

	return set, nil
}

// Calculate считает все индикаторы. Свечи идут по возрастанию времени.
// Истории должно хватать и на min_candles, и на самый длинный период (200).
func (e *Engine) Calculate(candles []*models.Candle) (*models.IndicatorSet, error) {
	need := max(e.config.MinCandles, config.LongestIndicatorPeriod)
	if len(candles) < need {
		return nil, fmt.Errorf("%w: %d candles, need %d", models.ErrInsufficientHistory, len(candles), need)
	}

	n := len(candles)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	set := &models.IndicatorSet{
		Len:       n,
		LastClose: closes[n-1],
	}

	// Тренд
	set.SMA20 = series(talib.Sma(closes, 20))
	set.SMA50 = series(talib.Sma(closes, 50))
	set.SMA100 = series(talib.Sma(closes, 100))
	set.SMA200 = series(talib.Sma(closes, 200))
	set.EMA9 = series(talib.Ema(closes, 9))
	set.EMA12 = series(talib.Ema(closes, 12))
	set.EMA20 = series(talib.Ema(closes, 20))
	set.EMA26 = series(talib.Ema(closes, 26))
	set.EMA50 = series(talib.Ema(closes, 50))
	set.EMA200 = series(talib.Ema(closes, 200))

	macd, signal, hist := talib.Macd(closes, e.config.MACDFast, e.config.MACDSlow, e.config.MACDSignal)
	set.MACD = models.MACDSeries{MACD: series(macd), Signal: series(signal), Histogram: series(hist)}
	set.ADX = series(talib.Adx(highs, lows, closes, e.config.ADXPeriod))
	set.SAR = series(talib.Sar(highs, lows, 0.02, 0.2))
	set.Ichimoku = ichimoku(highs, lows)

	// Импульс
	set.RSI = series(talib.Rsi(closes, e.config.RSIPeriod))
	k, d := talib.Stoch(highs, lows, closes, e.config.StochasticPeriod, 3, talib.SMA, 3, talib.SMA)
	set.Stochastic = models.StochasticSeries{K: series(k), D: series(d)}
	set.CCI = series(talib.Cci(highs, lows, closes, 20))
	set.WilliamsR = series(talib.WillR(highs, lows, closes, 14))
	set.ROC = series(talib.Roc(closes, 12))
	set.Momentum = series(talib.Mom(closes, 10))

	// Волатильность
	upper, middle, lower := talib.BBands(closes, e.config.BBPeriod, 2, 2, talib.SMA)
	set.Bollinger = models.BandSeries{Upper: series(upper), Middle: series(middle), Lower: series(lower)}
	set.ATR = series(talib.Atr(highs, lows, closes, e.config.ATRPeriod))
	set.Keltner = keltner(closes, talib.Atr(highs, lows, closes, 20), 20, 2)
	set.Donchian = donchian(highs, lows, 20)

	// Объем
	set.OBV = series(talib.Obv(closes, volumes))
	set.VWAP = vwap(highs, lows, closes, volumes)
	set.MFI = series(talib.Mfi(highs, lows, closes, volumes, 14))
	set.VolumeROC = rateOfChange(volumes, 12)
	set.AD = accumulationDistribution(highs, lows, closes, volumes)
	set.CMF = chaikinMoneyFlow(highs, lows, closes, volumes, 20)

	// Уровни
	from := max(0, n-20)
	recentHigh, recentLow := extremes(highs[from:], lows[from:])
	set.Fibonacci = Fibonacci(recentHigh, recentLow)
	set.Pivots = Pivots(highs[n-1], lows[n-1], closes[n-1])

	if err := validateLengths(set); err != nil {
		return nil, err
	}
	return set, nil
}

func validateLengths(set *models.IndicatorSet) error {
	for name, s := range set.Series() {
		if len(s) != set.Len {
			return fmt.Errorf("indicator %s has %d values, want %d", name, len(s), set.Len)
		}
	}
	return nil
}

package technical

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

func syntheticCandles(n int) []*models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]*models.Candle, n)
	for i := 0; i < n; i++ {
		base := 100 + 10*math.Sin(float64(i)/12) + float64(i)*0.05
		candles[i] = &models.Candle{
			Symbol:   "BTCUSDT",
			Interval: "1h",
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     base - 0.5,
			High:     base + 1.5,
			Low:      base - 1.5,
			Close:    base + 0.3,
			Volume:   1000 + float64(i%7)*50,
		}
	}
	return candles
}

type staticSource struct {
	candles []*models.Candle
	err     error
}

func (s staticSource) FetchCandles(ctx context.Context, exchange, symbol, timeframe string, limit int) ([]*models.Candle, error) {
	return s.candles, s.err
}

func newEngine(source CandleSource) *Engine {
	return NewEngine(config.DefaultTechnical(), source, 500)
}

func TestCalculateSeriesMatchInputLength(t *testing.T) {
	for _, n := range []int{200, 257, 500} {
		set, err := newEngine(nil).Calculate(syntheticCandles(n))
		require.NoError(t, err)
		assert.Equal(t, n, set.Len)

		for name, s := range set.Series() {
			assert.Len(t, s, n, name)
			for i, v := range s {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s[%d] is not finite", name, i)
				}
			}
		}
	}
}

func TestCalculateInsufficientHistory(t *testing.T) {
	_, err := newEngine(nil).Calculate(syntheticCandles(199))
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)

	_, err = newEngine(nil).Calculate(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestCalculateGuardsLongestPeriodWhenMinCandlesIsLow(t *testing.T) {
	cfg := config.DefaultTechnical()
	cfg.MinCandles = 50
	e := NewEngine(cfg, nil, 60)

	var err error
	assert.NotPanics(t, func() {
		_, err = e.Calculate(syntheticCandles(60))
	})
	require.ErrorIs(t, err, models.ErrInsufficientHistory)
	assert.Contains(t, err.Error(), "60 candles, need 200")
}

func TestCalculateForPropagatesFetchError(t *testing.T) {
	e := newEngine(staticSource{err: models.ErrDataUnavailable})
	_, err := e.CalculateFor(context.Background(), "BINANCE", "BTC/USDT", "1h")
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}

func TestCalculateForShortHistory(t *testing.T) {
	e := newEngine(staticSource{candles: syntheticCandles(150)})
	_, err := e.CalculateFor(context.Background(), "BINANCE", "BTC/USDT", "1h")
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestCalculateLastCloseAndRSIRange(t *testing.T) {
	candles := syntheticCandles(300)
	set, err := newEngine(nil).Calculate(candles)
	require.NoError(t, err)

	assert.Equal(t, candles[len(candles)-1].Close, set.LastClose)
	rsi := set.RSI.Last()
	assert.True(t, rsi > 0 && rsi < 100, "rsi %v", rsi)
	assert.InDelta(t, set.SMA20.Last(), average(closes(candles[len(candles)-20:])), 1e-9)
}

func TestPivots(t *testing.T) {
	p := Pivots(110, 90, 100)

	assert.InDelta(t, 100, p.Standard.Pivot, 1e-9)
	assert.InDelta(t, 110, p.Standard.R1, 1e-9)
	assert.InDelta(t, 90, p.Standard.S1, 1e-9)
	assert.InDelta(t, 120, p.Standard.R2, 1e-9)
	assert.InDelta(t, 80, p.Standard.S2, 1e-9)
	assert.InDelta(t, 107.64, p.Fibonacci.R1, 1e-9)
	assert.InDelta(t, 100+20*1.1/2, p.Camarilla.R4, 1e-9)
	assert.InDelta(t, 100-20*1.1/12, p.Camarilla.S1, 1e-9)
}

func TestFibonacci(t *testing.T) {
	f := Fibonacci(200, 100)
	assert.Equal(t, 200.0, f.Level0)
	assert.InDelta(t, 176.4, f.Level236, 1e-9)
	assert.InDelta(t, 150, f.Level500, 1e-9)
	assert.Equal(t, 100.0, f.Level100)
}

func TestDonchianWarmupUsesOwnRange(t *testing.T) {
	highs := []float64{10, 12, 11, 15}
	lows := []float64{8, 9, 7, 10}
	d := donchian(highs, lows, 3)

	assert.Equal(t, models.Series{10, 12, 12, 15}, d.Upper)
	assert.Equal(t, models.Series{8, 9, 7, 7}, d.Lower)
	assert.Equal(t, 9.0, d.Middle[0])
}

func TestChaikinMoneyFlowZeroGuards(t *testing.T) {
	highs := []float64{10, 10, 10}
	lows := []float64{10, 10, 10}
	closes := []float64{10, 10, 10}
	volumes := []float64{0, 0, 0}

	cmf := chaikinMoneyFlow(highs, lows, closes, volumes, 2)
	assert.Equal(t, models.Series{0, 0, 0}, cmf)

	ad := accumulationDistribution(highs, lows, closes, []float64{5, 5, 5})
	assert.Equal(t, models.Series{0, 0, 0}, ad)
}

func TestMidpointLineWarmup(t *testing.T) {
	line := midpointLine([]float64{4, 6, 8}, []float64{2, 2, 4}, 2)
	assert.Equal(t, models.Series{3, 4, 5}, line)
}

func closes(candles []*models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func average(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

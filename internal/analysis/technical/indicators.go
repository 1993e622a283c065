package technical

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/skalibog/cryptopulse/pkg/models"
)

// series копирует результат talib и заменяет NaN/Inf нулями
func series(values []float64) models.Series {
	out := make(models.Series, len(values))
	for i, v := range values {
		out[i] = finite(v)
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func ichimoku(highs, lows []float64) models.IchimokuSeries {
	tenkan := midpointLine(highs, lows, 9)
	kijun := midpointLine(highs, lows, 26)

	senkouA := make(models.Series, len(highs))
	for i := range senkouA {
		senkouA[i] = (tenkan[i] + kijun[i]) / 2
	}

	return models.IchimokuSeries{
		Tenkan:  tenkan,
		Kijun:   kijun,
		SenkouA: senkouA,
		SenkouB: midpointLine(highs, lows, 52),
	}
}

// midpointLine - (максимум + минимум) / 2 по скользящему окну.
// Пока истории мало, окно - вся доступная история
func midpointLine(highs, lows []float64, period int) models.Series {
	result := make(models.Series, len(highs))

	for i := range highs {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		periodHigh, periodLow := extremes(highs[start:i+1], lows[start:i+1])
		result[i] = (periodHigh + periodLow) / 2
	}

	return result
}

func extremes(highs, lows []float64) (float64, float64) {
	hi := math.Inf(-1)
	lo := math.Inf(1)
	for i := range highs {
		hi = math.Max(hi, highs[i])
		lo = math.Min(lo, lows[i])
	}
	return finite(hi), finite(lo)
}

// keltner centres on EMA(period) and offsets by multiplier × ATR.
func keltner(closes, atr []float64, period int, multiplier float64) models.BandSeries {
	middle := series(talib.Ema(closes, period))
	upper := make(models.Series, len(closes))
	lower := make(models.Series, len(closes))
	for i := range closes {
		a := finite(atr[i])
		upper[i] = middle[i] + a*multiplier
		lower[i] = middle[i] - a*multiplier
	}
	return models.BandSeries{Upper: upper, Middle: middle, Lower: lower}
}

// donchian берет диапазон самой свечи, пока окно не заполнено
func donchian(highs, lows []float64, period int) models.BandSeries {
	n := len(highs)
	bands := models.BandSeries{
		Upper:  make(models.Series, n),
		Middle: make(models.Series, n),
		Lower:  make(models.Series, n),
	}

	for i := 0; i < n; i++ {
		hi, lo := highs[i], lows[i]
		if i >= period-1 {
			hi, lo = extremes(highs[i-period+1:i+1], lows[i-period+1:i+1])
		}
		bands.Upper[i] = hi
		bands.Lower[i] = lo
		bands.Middle[i] = (hi + lo) / 2
	}

	return bands
}

// vwap - накопленная типичная цена, взвешенная по объему
func vwap(highs, lows, closes, volumes []float64) models.Series {
	out := make(models.Series, len(closes))
	var pv, vol float64
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		pv += typical * volumes[i]
		vol += volumes[i]
		if vol == 0 {
			out[i] = typical
			continue
		}
		out[i] = pv / vol
	}
	return out
}

func rateOfChange(values []float64, period int) models.Series {
	out := make(models.Series, len(values))
	for i := period; i < len(values); i++ {
		prev := values[i-period]
		if prev == 0 {
			continue
		}
		out[i] = (values[i] - prev) / prev * 100
	}
	return out
}

func closeLocation(high, low, close float64) float64 {
	rng := high - low
	if rng == 0 {
		rng = 1
	}
	return ((close - low) - (high - close)) / rng
}

func accumulationDistribution(highs, lows, closes, volumes []float64) models.Series {
	out := make(models.Series, len(closes))
	var ad float64
	for i := range closes {
		ad += closeLocation(highs[i], lows[i], closes[i]) * volumes[i]
		out[i] = ad
	}
	return out
}

func chaikinMoneyFlow(highs, lows, closes, volumes []float64, period int) models.Series {
	out := make(models.Series, len(closes))
	for i := period - 1; i < len(closes); i++ {
		var flow, vol float64
		for j := i - period + 1; j <= i; j++ {
			flow += closeLocation(highs[j], lows[j], closes[j]) * volumes[j]
			vol += volumes[j]
		}
		if vol != 0 {
			out[i] = flow / vol
		}
	}
	return out
}

// Fibonacci возвращает уровни коррекции от максимума к минимуму
func Fibonacci(high, low float64) models.FibonacciLevels {
	diff := high - low
	return models.FibonacciLevels{
		Level0:   high,
		Level236: high - diff*0.236,
		Level382: high - diff*0.382,
		Level500: high - diff*0.5,
		Level618: high - diff*0.618,
		Level786: high - diff*0.786,
		Level100: low,
	}
}

// Pivots считает классические пивоты, пивоты Фибоначчи и Camarilla по одной свече
func Pivots(high, low, close float64) models.PivotPoints {
	p := (high + low + close) / 3
	rng := high - low

	return models.PivotPoints{
		Standard: models.PivotLevels{
			Pivot: p,
			R1:    2*p - low,
			R2:    p + rng,
			R3:    high + 2*(p-low),
			S1:    2*p - high,
			S2:    p - rng,
			S3:    low - 2*(high-p),
		},
		Fibonacci: models.PivotLevels{
			Pivot: p,
			R1:    p + 0.382*rng,
			R2:    p + 0.618*rng,
			R3:    p + rng,
			S1:    p - 0.382*rng,
			S2:    p - 0.618*rng,
			S3:    p - rng,
		},
		Camarilla: models.PivotLevels{
			Pivot: p,
			R1:    close + rng*1.1/12,
			R2:    close + rng*1.1/6,
			R3:    close + rng*1.1/4,
			R4:    close + rng*1.1/2,
			S1:    close - rng*1.1/12,
			S2:    close - rng*1.1/6,
			S3:    close - rng*1.1/4,
			S4:    close - rng*1.1/2,
		},
	}
}

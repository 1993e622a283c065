package models

// Series - по значению на каждую свечу
type Series []float64

// Last возвращает последнее значение или 0 для пустого ряда
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

type MACDSeries struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

type StochasticSeries struct {
	K Series
	D Series
}

// BandSeries - верхняя, средняя и нижняя линии канала (Bollinger, Keltner, Donchian)
type BandSeries struct {
	Upper  Series
	Middle Series
	Lower  Series
}

type IchimokuSeries struct {
	Tenkan  Series
	Kijun   Series
	SenkouA Series
	SenkouB Series
}

// FibonacciLevels - уровни коррекции вниз от недавнего максимума
type FibonacciLevels struct {
	Level0   float64
	Level236 float64
	Level382 float64
	Level500 float64
	Level618 float64
	Level786 float64
	Level100 float64
}

type PivotLevels struct {
	Pivot float64
	R1    float64
	R2    float64
	R3    float64
	R4    float64
	S1    float64
	S2    float64
	S3    float64
	S4    float64
}

type PivotPoints struct {
	Standard  PivotLevels
	Fibonacci PivotLevels
	Camarilla PivotLevels
}

// IndicatorSet - все индикаторы по одному окну свечей.
// В каждом ряду ровно Len элементов
type IndicatorSet struct {
	Len       int
	LastClose float64

	SMA20  Series
	SMA50  Series
	SMA100 Series
	SMA200 Series
	EMA9   Series
	EMA12  Series
	EMA20  Series
	EMA26  Series
	EMA50  Series
	EMA200 Series

	MACD     MACDSeries
	ADX      Series
	SAR      Series
	Ichimoku IchimokuSeries

	RSI        Series
	Stochastic StochasticSeries
	CCI        Series
	WilliamsR  Series
	ROC        Series
	Momentum   Series

	Bollinger BandSeries
	ATR       Series
	Keltner   BandSeries
	Donchian  BandSeries

	OBV       Series
	VWAP      Series
	MFI       Series
	VolumeROC Series
	AD        Series
	CMF       Series

	Fibonacci FibonacciLevels
	Pivots    PivotPoints
}

// Series возвращает все ряды по именам для проверки длин и диагностики
func (s *IndicatorSet) Series() map[string]Series {
	return map[string]Series{
		"sma20": s.SMA20, "sma50": s.SMA50, "sma100": s.SMA100, "sma200": s.SMA200,
		"ema9": s.EMA9, "ema12": s.EMA12, "ema20": s.EMA20, "ema26": s.EMA26, "ema50": s.EMA50, "ema200": s.EMA200,
		"macd": s.MACD.MACD, "macdSignal": s.MACD.Signal, "macdHistogram": s.MACD.Histogram,
		"adx": s.ADX, "sar": s.SAR,
		"ichimokuTenkan": s.Ichimoku.Tenkan, "ichimokuKijun": s.Ichimoku.Kijun,
		"ichimokuSenkouA": s.Ichimoku.SenkouA, "ichimokuSenkouB": s.Ichimoku.SenkouB,
		"rsi": s.RSI, "stochK": s.Stochastic.K, "stochD": s.Stochastic.D,
		"cci": s.CCI, "williamsR": s.WilliamsR, "roc": s.ROC, "momentum": s.Momentum,
		"bbUpper": s.Bollinger.Upper, "bbMiddle": s.Bollinger.Middle, "bbLower": s.Bollinger.Lower,
		"atr":          s.ATR,
		"keltnerUpper": s.Keltner.Upper, "keltnerMiddle": s.Keltner.Middle, "keltnerLower": s.Keltner.Lower,
		"donchianUpper": s.Donchian.Upper, "donchianMiddle": s.Donchian.Middle, "donchianLower": s.Donchian.Lower,
		"obv": s.OBV, "vwap": s.VWAP, "mfi": s.MFI, "volumeRoc": s.VolumeROC, "ad": s.AD, "cmf": s.CMF,
	}
}

package models

import (
	"time"
)

// Candle - одна свеча OHLCV
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// OrderBookLevel - один ценовой уровень стакана
type OrderBookLevel struct {
	Price  float64
	Amount float64
}

// OrderBook - снимок стакана. Биды от лучшего (высшего), аски от лучшего (низшего)
type OrderBook struct {
	Symbol    string
	Timestamp time.Time
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
}

// Ticker - цена последней сделки
type Ticker struct {
	Symbol    string
	LastPrice float64
	Timestamp time.Time
}

// FundingRate - последняя ставка финансирования бессрочного контракта
type FundingRate struct {
	Symbol          string
	Rate            float64
	Timestamp       time.Time
	NextFundingTime time.Time
}

// OpenInterest - текущий открытый интерес в контрактах
type OpenInterest struct {
	Symbol    string
	Value     float64
	Timestamp time.Time
}

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// TradingSignal - итоговая рекомендация по направлению
type TradingSignal struct {
	ID                  string
	Exchange            string
	Symbol              string
	Timeframe           string
	SignalType          SignalType
	Confidence          float64
	TechnicalConfidence float64
	Price               float64
	Reasons             []string
	SentimentScore      *float64
	InverseSentiment    *float64
	NewsScore           *float64
	SentimentWeight     *float64
	NewsWeight          *float64
	Timestamp           time.Time
	Performance         *SignalPerformance
}

type PerformanceTier string

const (
	TierExcellent PerformanceTier = "EXCELLENT"
	TierGood      PerformanceTier = "GOOD"
	TierAverage   PerformanceTier = "AVERAGE"
	TierPoor      PerformanceTier = "POOR"
)

// SignalPerformance - как отработал сигнал после выдачи
type SignalPerformance struct {
	SignalID         string
	CurrentPrice     float64
	CurrentPnL       float64
	HighestPrice     float64
	LowestPrice      float64
	WeekEndPrice     *float64
	PriceChange      *float64
	DirectionCorrect *bool
	AccuracyScore    *float64
	PerformanceTier  *PerformanceTier
	LastUpdated      time.Time
	TrackingEnded    *time.Time
}

// NewsArticle - оцененный заголовок, привязанный к монете
type NewsArticle struct {
	Symbol      string
	Title       string
	URL         string
	Source      string
	Summary     string
	PublishedAt time.Time
	Sentiment   float64
	Score       float64
}

// SentimentResult - сводная полярность пачки текстов
type SentimentResult struct {
	Compound   float64 `json:"compound"`
	Positive   float64 `json:"positive"`
	Neutral    float64 `json:"neutral"`
	Negative   float64 `json:"negative"`
	Inverse    float64 `json:"inverse"`
	SampleSize int     `json:"sampleSize"`
}

// SentimentSnapshot - сохраненный SentimentResult по базовому активу
type SentimentSnapshot struct {
	Symbol    string
	Source    string
	Result    SentimentResult
	CreatedAt time.Time
}

// Label - грубая текстовая метка для compound
func (r SentimentResult) Label() string {
	switch {
	case r.Compound > 0.05:
		return "bullish"
	case r.Compound < -0.05:
		return "bearish"
	default:
		return "neutral"
	}
}

package models

import "time"

type ZoneSide string

const (
	SideLong  ZoneSide = "LONG"
	SideShort ZoneSide = "SHORT"
)

type Suggestion string

const (
	SuggestBuy     Suggestion = "BUY"
	SuggestSell    Suggestion = "SELL"
	SuggestNeutral Suggestion = "NEUTRAL"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// HeatmapPoint - одна точка профиля ликвидности вокруг зоны
type HeatmapPoint struct {
	Price     float64 `json:"price"`
	Intensity float64 `json:"intensity"`
	Liquidity float64 `json:"liquidity"`
}

// LiquidationZone - ценовой уровень, где вероятно скопление принудительных ликвидаций.
// Между циклами поиска зоны не сохраняют идентичность
type LiquidationZone struct {
	Exchange           string         `json:"exchange"`
	Symbol             string         `json:"symbol"`
	Price              float64        `json:"price"`
	Side               ZoneSide       `json:"side"`
	EstimatedLiquidity float64        `json:"estimatedLiquidity"`
	Confidence         float64        `json:"confidence"`
	Reasoning          []string       `json:"reasoning"`
	Suggestion         Suggestion     `json:"suggestion"`
	StopLoss1          float64        `json:"stopLoss1"`
	StopLoss2          float64        `json:"stopLoss2"`
	TakeProfit1        float64        `json:"takeProfit1"`
	TakeProfit2        float64        `json:"takeProfit2"`
	Heatmap            []HeatmapPoint `json:"heatmap"`
	DetectedAt         time.Time      `json:"detectedAt"`
}

// LiquidationAlert создается, когда цена подходит к уверенной зоне
type LiquidationAlert struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Zone      LiquidationZone `json:"zone"`
	Distance  float64         `json:"distance"`
	RiskLevel RiskLevel       `json:"riskLevel"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// AlertEvent - пачка алертов по паре после цикла мониторинга
type AlertEvent struct {
	Exchange  string             `json:"exchange"`
	Symbol    string             `json:"symbol"`
	Alerts    []LiquidationAlert `json:"alerts"`
	Timestamp time.Time          `json:"timestamp"`
}

package liquidation

import (
	"math"
	"sort"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// RiskLevels - стоп-лосс и тейк-профит от цены зоны
type RiskLevels struct {
	StopLoss1   float64
	StopLoss2   float64
	TakeProfit1 float64
	TakeProfit2 float64
}

type riskMultipliers [4]float64

var (
	buyRisk          = riskMultipliers{0.98, 0.95, 1.015, 1.03}
	sellRisk         = riskMultipliers{1.02, 1.05, 0.985, 0.97}
	neutralLongRisk  = riskMultipliers{0.97, 0.94, 1.02, 1.04}
	neutralShortRisk = riskMultipliers{1.03, 1.06, 0.98, 0.96}
)

// Suggest превращает зону в торговую идею. Зоны с низкой уверенностью всегда NEUTRAL
// squeezed означает, что фандинг выдавливает толпу на стороне зоны (см. funding.Analyzer.Squeezing).
func Suggest(cfg config.LiquidationConfig, side models.ZoneSide, zonePrice, currentPrice, confidence float64, squeezed bool) models.Suggestion {
	if confidence < cfg.MinConfidence || currentPrice == 0 {
		return models.SuggestNeutral
	}

	distance := math.Abs((zonePrice-currentPrice)/currentPrice) * 100
	near := distance < cfg.NearDistancePct && confidence > cfg.StrongConfidence

	switch side {
	case models.SideLong:
		if near {
			return models.SuggestBuy
		}
		if squeezed {
			return models.SuggestSell
		}
	case models.SideShort:
		if near {
			return models.SuggestSell
		}
		if squeezed {
			return models.SuggestBuy
		}
	}

	return models.SuggestNeutral
}

// Risk возвращает стоп и цель как фиксированные множители цены зоны
func Risk(side models.ZoneSide, zonePrice float64, suggestion models.Suggestion) RiskLevels {
	m := neutralShortRisk
	switch {
	case suggestion == models.SuggestBuy:
		m = buyRisk
	case suggestion == models.SuggestSell:
		m = sellRisk
	case side == models.SideLong:
		m = neutralLongRisk
	}

	return RiskLevels{
		StopLoss1:   zonePrice * m[0],
		StopLoss2:   zonePrice * m[1],
		TakeProfit1: zonePrice * m[2],
		TakeProfit2: zonePrice * m[3],
	}
}

// Heatmap строит равномерную сетку интенсивности и ликвидности шириной
// HeatmapRangePct от текущей цены с центром в зоне
func Heatmap(cfg config.LiquidationConfig, zonePrice, currentPrice, confidence float64) []models.HeatmapPoint {
	steps := cfg.HeatmapPoints
	rng := currentPrice * cfg.HeatmapRangePct
	points := make([]models.HeatmapPoint, 0, steps)

	for i := 0; i < steps; i++ {
		offset := float64(i)/float64(steps)*rng - rng/2
		price := zonePrice + offset

		var d float64
		if zonePrice != 0 {
			d = math.Abs(price-zonePrice) / zonePrice
		}

		points = append(points, models.HeatmapPoint{
			Price:     round2(price),
			Intensity: round2(math.Max(0, confidence*(1-d*10))),
			Liquidity: round2(math.Max(0, currentPrice*0.01*(1-d*5))),
		})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Price < points[j].Price })
	return points
}

// Merge схлопывает соседние зоны одной стороны, если они ближе MergeThresholdPct.
// Проход один, по возрастанию цены; объединенная зона сохраняет первую тепловую карту
func Merge(cfg config.LiquidationConfig, zones []models.LiquidationZone) []models.LiquidationZone {
	if len(zones) == 0 {
		return zones
	}

	sorted := make([]models.LiquidationZone, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	merged := make([]models.LiquidationZone, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		diff := math.Inf(1)
		if current.Price != 0 {
			diff = math.Abs((next.Price-current.Price)/current.Price) * 100
		}

		if diff < cfg.MergeThresholdPct && next.Side == current.Side {
			current = combine(current, next)
			continue
		}

		merged = append(merged, current)
		current = next
	}

	return append(merged, current)
}

func combine(a, b models.LiquidationZone) models.LiquidationZone {
	out := a
	out.Price = (a.Price + b.Price) / 2
	out.EstimatedLiquidity = a.EstimatedLiquidity + b.EstimatedLiquidity
	out.Confidence = math.Max(a.Confidence, b.Confidence)
	out.Reasoning = union(a.Reasoning, b.Reasoning)
	out.StopLoss1 = (a.StopLoss1 + b.StopLoss1) / 2
	out.StopLoss2 = (a.StopLoss2 + b.StopLoss2) / 2
	out.TakeProfit1 = (a.TakeProfit1 + b.TakeProfit1) / 2
	out.TakeProfit2 = (a.TakeProfit2 + b.TakeProfit2) / 2
	return out
}

// union сохраняет порядок первого появления
func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

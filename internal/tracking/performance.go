package tracking

import (
	"math"
	"time"

	"github.com/skalibog/cryptopulse/pkg/models"
)

// PnL - доходность позиции от entry в процентах. SELL зарабатывает на падении
func PnL(signalType models.SignalType, entry, current float64) float64 {
	if entry == 0 {
		return 0
	}
	raw := (current - entry) / entry * 100
	if signalType == models.SignalSell {
		return -raw
	}
	return raw
}

// DirectionCorrect сообщает, пошла ли цена туда, куда указывал сигнал.
// Рост предсказывает только BUY; HOLD и SELL засчитываются, если цена не выросла
func DirectionCorrect(signalType models.SignalType, priceChange float64) bool {
	return (signalType == models.SignalBuy) == (priceChange > 0)
}

// AccuracyScore оценивает завершенный сигнал по шкале 0-100
func AccuracyScore(correct bool, priceChange, confidence float64) float64 {
	var score float64
	magnitude := math.Abs(priceChange)
	if correct {
		score += 50
		score += math.Min(magnitude*3, 30)
	}
	score += math.Max(0, 20-math.Abs(confidence-magnitude))
	return math.Min(score, 100)
}

func Tier(score float64) models.PerformanceTier {
	switch {
	case score >= 80:
		return models.TierExcellent
	case score >= 60:
		return models.TierGood
	case score >= 40:
		return models.TierAverage
	default:
		return models.TierPoor
	}
}

// Update применяет свежую цену к результативности сигнала и закрывает ее после окна
// оценки. Возвращается копия, сам сигнал не меняется
func Update(signal *models.TradingSignal, price float64, now time.Time, evaluation time.Duration) *models.SignalPerformance {
	perf := models.SignalPerformance{
		SignalID:     signal.ID,
		HighestPrice: price,
		LowestPrice:  price,
	}
	if signal.Performance != nil {
		perf = *signal.Performance
		perf.SignalID = signal.ID
	}

	perf.CurrentPrice = price
	perf.CurrentPnL = PnL(signal.SignalType, signal.Price, price)
	perf.HighestPrice = math.Max(perf.HighestPrice, price)
	if perf.LowestPrice == 0 || price < perf.LowestPrice {
		perf.LowestPrice = price
	}
	perf.LastUpdated = now

	if perf.AccuracyScore == nil && now.Sub(signal.Timestamp) >= evaluation && signal.Price != 0 {
		change := (price - signal.Price) / signal.Price * 100
		correct := DirectionCorrect(signal.SignalType, change)
		score := AccuracyScore(correct, change, signal.Confidence)
		tier := Tier(score)
		ended := now

		perf.WeekEndPrice = &price
		perf.PriceChange = &change
		perf.DirectionCorrect = &correct
		perf.AccuracyScore = &score
		perf.PerformanceTier = &tier
		perf.TrackingEnded = &ended
	}

	return &perf
}

// TierStats - сводка по завершенным сигналам одного уровня
type TierStats struct {
	Count        int
	AverageScore float64
}

// Stats - сводка по отслеживаемым сигналам
type Stats struct {
	Total      int
	AveragePnL float64
	ByTier     map[models.PerformanceTier]TierStats
}

func Summarize(signals []*models.TradingSignal) Stats {
	stats := Stats{ByTier: make(map[models.PerformanceTier]TierStats)}
	sums := make(map[models.PerformanceTier]float64)

	var pnlSum float64
	var pnlCount int
	for _, s := range signals {
		stats.Total++
		perf := s.Performance
		if perf == nil {
			continue
		}
		if perf.CurrentPrice != 0 {
			pnlSum += perf.CurrentPnL
			pnlCount++
		}
		if perf.PerformanceTier == nil || perf.AccuracyScore == nil {
			continue
		}
		t := stats.ByTier[*perf.PerformanceTier]
		t.Count++
		stats.ByTier[*perf.PerformanceTier] = t
		sums[*perf.PerformanceTier] += *perf.AccuracyScore
	}

	if pnlCount > 0 {
		stats.AveragePnL = pnlSum / float64(pnlCount)
	}
	for tier, t := range stats.ByTier {
		t.AverageScore = sums[tier] / float64(t.Count)
		stats.ByTier[tier] = t
	}
	return stats
}

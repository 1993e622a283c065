package fusion

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/internal/exchange"
	"github.com/skalibog/cryptopulse/internal/storage"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// IndicatorSource считает индикаторы для пары
type IndicatorSource interface {
	CalculateFor(ctx context.Context, exchange, symbol, timeframe string) (*models.IndicatorSet, error)
}

// ZoneSource отдает текущие зоны ликвидаций пары
type ZoneSource interface {
	Detect(ctx context.Context, exchange, symbol string) []models.LiquidationZone
}

// Dependencies - зависимости движка. Zones, Sentiment, News и Recorder необязательны
type Dependencies struct {
	Indicators IndicatorSource
	Zones      ZoneSource
	Sentiment  storage.SentimentStore
	News       storage.NewsStore
	Signals    storage.SignalRepository
	Recorder   storage.Recorder
}

// Engine объединяет технический анализ, настроения и новости в торговые сигналы
type Engine struct {
	config    config.FusionConfig
	watchlist config.WatchlistConfig
	deps      Dependencies
	now       func() time.Time
}

func NewEngine(cfg config.FusionConfig, watchlist config.WatchlistConfig, deps Dependencies) *Engine {
	return &Engine{
		config:    cfg,
		watchlist: watchlist,
		deps:      deps,
		now:       time.Now,
	}
}

// GenerateSignals параллельно запускает Generate для всех пар из watchlist.
// Упавшие пары логируются и не попадают в результат. Ключ - "exchange:symbol"
func (e *Engine) GenerateSignals(ctx context.Context) (map[string]*models.TradingSignal, error) {
	results := make(map[string]*models.TradingSignal)
	var wg sync.WaitGroup
	var mutex sync.Mutex

	for _, ex := range e.watchlist.Exchanges {
		for _, symbol := range e.watchlist.Symbols {
			wg.Add(1)
			go func(ex, sym string) {
				defer wg.Done()

				signal, err := e.Generate(ctx, ex, sym, e.watchlist.Timeframe)
				if err != nil {
					logger.Warn("signal generation failed",
						zap.String("exchange", ex), zap.String("symbol", sym), zap.Error(err))
					return
				}

				mutex.Lock()
				results[PairKey(ex, sym)] = signal
				mutex.Unlock()
			}(ex, symbol)
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// PairKey - ключ результатов по паре
func PairKey(exchangeName, symbol string) string {
	return exchangeName + ":" + symbol
}

// Generate считает, оценивает и сохраняет сигнал для одной пары
func (e *Engine) Generate(ctx context.Context, exchangeName, symbol, timeframe string) (*models.TradingSignal, error) {
	exchangeName = exchange.NormalizeExchange(exchangeName)
	if exchangeName == "" {
		return nil, fmt.Errorf("%w: empty exchange", models.ErrInvalidParameter)
	}
	if err := exchange.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := exchange.ValidateTimeframe(timeframe); err != nil {
		return nil, err
	}

	set, err := e.deps.Indicators.CalculateFor(ctx, exchangeName, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("indicators: %w", err)
	}

	signal, err := e.Score(ctx, exchangeName, symbol, timeframe, set)
	if err != nil {
		return nil, err
	}

	if e.deps.Signals != nil {
		if err := e.deps.Signals.CreateSignal(ctx, signal); err != nil {
			logger.Error("failed to save signal", zap.String("symbol", symbol), zap.String("id", signal.ID), zap.Error(err))
		}
	}
	if e.deps.Recorder != nil {
		if err := e.deps.Recorder.RecordSignal(ctx, signal); err != nil {
			logger.Warn("failed to record signal", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	logger.Info("signal generated",
		zap.String("exchange", exchangeName),
		zap.String("symbol", symbol),
		zap.String("type", string(signal.SignalType)),
		zap.Float64("confidence", signal.Confidence))

	return signal, nil
}

// Score строит сигнал по набору индикаторов. Правила применяются по порядку: RSI задает
// направление, остальные только добавляют уверенность, если с ним согласны
func (e *Engine) Score(ctx context.Context, exchangeName, symbol, timeframe string, set *models.IndicatorSet) (*models.TradingSignal, error) {
	if err := requireSeries(set); err != nil {
		return nil, err
	}

	signalType, confidence, reasons := e.technical(set)

	if e.deps.Zones != nil {
		if zones := e.deps.Zones.Detect(ctx, exchangeName, symbol); len(zones) > 0 {
			reasons = append(reasons, fmt.Sprintf("%d liquidation zone(s) detected", len(zones)))
		}
	}

	technicalConfidence := math.Min(confidence, e.config.MaxConfidence)
	now := e.now()

	signal := &models.TradingSignal{
		ID:                  uuid.NewString(),
		Exchange:            exchangeName,
		Symbol:              symbol,
		Timeframe:           timeframe,
		SignalType:          signalType,
		TechnicalConfidence: technicalConfidence,
		Price:               set.LastClose, // цена входа - последнее закрытие, SMA20 отстает
		Timestamp:           now,
	}

	base := exchange.BaseAsset(symbol)
	sentimentBonus, sentimentReasons := e.sentiment(ctx, signal, base, now)
	newsBonus, newsReasons := e.news(ctx, signal, base, now)
	reasons = append(reasons, sentimentReasons...)
	reasons = append(reasons, newsReasons...)

	signal.Reasons = reasons
	signal.Confidence = math.Min(technicalConfidence+sentimentBonus+newsBonus, e.config.MaxConfidence)
	signal.Performance = &models.SignalPerformance{
		SignalID:     signal.ID,
		HighestPrice: signal.Price,
		LowestPrice:  signal.Price,
		LastUpdated:  now,
	}

	return signal, nil
}

func (e *Engine) technical(set *models.IndicatorSet) (models.SignalType, float64, []string) {
	cfg := e.config
	signalType := models.SignalHold
	var confidence float64
	var reasons []string

	rsi := set.RSI.Last()
	switch {
	case rsi < cfg.RSIOversold:
		signalType = models.SignalBuy
		confidence += cfg.RSIPoints
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", rsi))
	case rsi > cfg.RSIOverbought:
		signalType = models.SignalSell
		confidence += cfg.RSIPoints
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", rsi))
	}

	macd, macdSignal, hist := set.MACD.MACD.Last(), set.MACD.Signal.Last(), set.MACD.Histogram.Last()
	switch {
	case macd > macdSignal && hist > 0:
		if signalType == models.SignalHold {
			signalType = models.SignalBuy
		}
		confidence += cfg.MACDPoints
		reasons = append(reasons, "MACD bullish crossover")
	case macd < macdSignal && hist < 0:
		if signalType == models.SignalHold {
			signalType = models.SignalSell
		}
		confidence += cfg.MACDPoints
		reasons = append(reasons, "MACD bearish crossover")
	}

	k, d := set.Stochastic.K.Last(), set.Stochastic.D.Last()
	switch {
	case k < cfg.StochasticOversold && d < cfg.StochasticOversold:
		if signalType == models.SignalBuy {
			confidence += cfg.StochasticPoints
		}
		reasons = append(reasons, "Stochastic oversold")
	case k > cfg.StochasticOverbought && d > cfg.StochasticOverbought:
		if signalType == models.SignalSell {
			confidence += cfg.StochasticPoints
		}
		reasons = append(reasons, "Stochastic overbought")
	}

	if adx := set.ADX.Last(); adx > cfg.ADXTrend {
		confidence += cfg.ADXPoints
		reasons = append(reasons, fmt.Sprintf("Strong trend (ADX %.1f)", adx))
	}

	if set.SMA20.Last() > set.SMA50.Last() {
		if signalType == models.SignalBuy {
			confidence += cfg.SMAPoints
		}
		reasons = append(reasons, "Bullish MA alignment")
	} else {
		if signalType == models.SignalSell {
			confidence += cfg.SMAPoints
		}
		reasons = append(reasons, "Bearish MA alignment")
	}

	return signalType, confidence, reasons
}

// sentiment возвращает бонус по последнему снимку настроений и заполняет поля сигнала
func (e *Engine) sentiment(ctx context.Context, signal *models.TradingSignal, base string, now time.Time) (float64, []string) {
	if e.deps.Sentiment == nil {
		return 0, nil
	}

	since := now.Add(-time.Duration(e.config.SentimentLookbackMins) * time.Minute)
	snapshot, err := e.deps.Sentiment.LatestSentiment(ctx, base, since)
	if err != nil {
		logger.Warn("sentiment skipped", zap.String("symbol", base),
			zap.Error(fmt.Errorf("%w: %v", models.ErrPartialDataLoss, err)))
		return 0, nil
	}
	if snapshot == nil {
		return 0, nil
	}

	r := snapshot.Result
	var bonus float64
	switch {
	case signal.SignalType == models.SignalBuy && r.Compound > e.config.SentimentThreshold:
		bonus = r.Compound * e.config.SentimentMultiplier
	case signal.SignalType == models.SignalSell && r.Compound < -e.config.SentimentThreshold:
		bonus = math.Abs(r.Compound) * e.config.SentimentMultiplier
	}

	compound, inverse := r.Compound, r.Inverse
	signal.SentimentScore = &compound
	signal.InverseSentiment = &inverse
	signal.SentimentWeight = &bonus

	reasons := []string{fmt.Sprintf("Sentiment %s (compound %.2f over %d posts, +%.1f)", r.Label(), r.Compound, r.SampleSize, bonus)}
	if math.Abs(r.Inverse) > e.config.ContrarianThreshold {
		reasons = append(reasons, fmt.Sprintf("Contrarian warning: crowd sentiment is extreme (inverse %.2f)", r.Inverse))
	}
	return bonus, reasons
}

// news возвращает бонус по самым важным свежим новостям и заполняет поля сигнала
func (e *Engine) news(ctx context.Context, signal *models.TradingSignal, base string, now time.Time) (float64, []string) {
	if e.deps.News == nil {
		return 0, nil
	}

	since := now.Add(-time.Duration(e.config.NewsLookbackHours) * time.Hour)
	articles, err := e.deps.News.RecentNews(ctx, base, since, e.config.NewsLimit)
	if err != nil {
		logger.Warn("news skipped", zap.String("symbol", base),
			zap.Error(fmt.Errorf("%w: %v", models.ErrPartialDataLoss, err)))
		return 0, nil
	}
	if len(articles) == 0 {
		return 0, nil
	}

	mean, top := WeightedNews(articles)

	var bonus float64
	switch {
	case signal.SignalType == models.SignalBuy && mean > e.config.NewsThreshold:
		bonus = mean * top.Score * e.config.NewsMultiplier
	case signal.SignalType == models.SignalSell && mean < -e.config.NewsThreshold:
		bonus = math.Abs(mean) * top.Score * e.config.NewsMultiplier
	}

	signal.NewsScore = &mean
	signal.NewsWeight = &bonus

	return bonus, []string{fmt.Sprintf("Top news (%s, score %.0f): %s", top.Source, top.Score, top.Title)}
}

// WeightedNews возвращает среднее настроение, взвешенное по важности, и самую важную новость
func WeightedNews(articles []*models.NewsArticle) (float64, *models.NewsArticle) {
	var top *models.NewsArticle
	var weighted, total float64
	for _, a := range articles {
		weighted += a.Sentiment * a.Score
		total += a.Score
		if top == nil || a.Score > top.Score {
			top = a
		}
	}
	if total == 0 {
		return 0, top
	}
	return weighted / total, top
}

func requireSeries(set *models.IndicatorSet) error {
	if set == nil || set.Len == 0 {
		return fmt.Errorf("%w: empty indicator set", models.ErrInsufficientHistory)
	}

	required := map[string]models.Series{
		"rsi":            set.RSI,
		"macd":           set.MACD.MACD,
		"macd_signal":    set.MACD.Signal,
		"macd_histogram": set.MACD.Histogram,
		"stochastic_k":   set.Stochastic.K,
		"stochastic_d":   set.Stochastic.D,
		"adx":            set.ADX,
		"sma20":          set.SMA20,
		"sma50":          set.SMA50,
	}
	for name, series := range required {
		if len(series) < set.Len {
			return fmt.Errorf("%w: %s has %d of %d values", models.ErrInsufficientHistory, name, len(series), set.Len)
		}
	}
	return nil
}

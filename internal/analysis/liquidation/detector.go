package liquidation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/analysis/funding"
	"github.com/skalibog/cryptopulse/internal/analysis/oianalysis"
	"github.com/skalibog/cryptopulse/internal/analysis/orderbook"
	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// MarketData - все, что детектор читает с биржи
type MarketData interface {
	orderbook.BookSource
	funding.RateSource
	oianalysis.InterestSource
	FetchTicker(ctx context.Context, exchange, symbol string) (*models.Ticker, error)
}

// Inputs - разобранные рыночные данные для одного прохода. nil ничего не добавляет
type Inputs struct {
	CurrentPrice float64
	Book         *orderbook.Result
	Funding      *funding.Result
	OpenInterest *oianalysis.Result
}

// Detector оценивает зоны ликвидаций по стакану, фандингу и открытому интересу
type Detector struct {
	config   config.LiquidationConfig
	market   MarketData
	bookAnal *orderbook.Analyzer
	fundAnal *funding.Analyzer
	oiAnal   *oianalysis.Analyzer
	now      func() time.Time
}

func NewDetector(cfg config.LiquidationConfig, market MarketData) *Detector {
	return &Detector{
		config:   cfg,
		market:   market,
		bookAnal: orderbook.NewAnalyzer(cfg, market),
		fundAnal: funding.NewAnalyzer(cfg, market),
		oiAnal:   oianalysis.NewAnalyzer(market),
		now:      time.Now,
	}
}

// Detect не возвращает ошибок: недоступные данные пропускаются, без цены зон нет
func (d *Detector) Detect(ctx context.Context, exchange, symbol string) []models.LiquidationZone {
	var (
		wg                          sync.WaitGroup
		ticker                      *models.Ticker
		book                        *orderbook.Result
		fund                        *funding.Result
		oi                          *oianalysis.Result
		tickerErr, bookErr, fundErr error
		oiErr                       error
	)

	wg.Add(4)

	go func() {
		defer wg.Done()
		ticker, tickerErr = d.market.FetchTicker(ctx, exchange, symbol)
	}()

	go func() {
		defer wg.Done()
		book, bookErr = d.bookAnal.Analyze(ctx, exchange, symbol)
	}()

	go func() {
		defer wg.Done()
		fund, fundErr = d.fundAnal.Analyze(ctx, exchange, symbol)
	}()

	go func() {
		defer wg.Done()
		oi, oiErr = d.oiAnal.Analyze(ctx, exchange, symbol)
	}()

	wg.Wait()

	fields := []zap.Field{zap.String("exchange", exchange), zap.String("symbol", symbol)}

	if tickerErr != nil || ticker == nil || ticker.LastPrice <= 0 {
		logger.Warn("liquidation detection skipped: no current price", append(fields, zap.Error(tickerErr))...)
		return nil
	}
	if bookErr != nil {
		logger.Warn("order book unavailable for liquidation detection", append(fields, zap.Error(bookErr))...)
		book = nil
	}
	if fundErr != nil {
		logger.Warn("funding rate unavailable for liquidation detection", append(fields, zap.Error(fundErr))...)
		fund = nil
	}
	if oiErr != nil {
		logger.Warn("open interest unavailable for liquidation detection", append(fields, zap.Error(oiErr))...)
		oi = nil
	}

	zones := d.Build(exchange, symbol, Inputs{
		CurrentPrice: ticker.LastPrice,
		Book:         book,
		Funding:      fund,
		OpenInterest: oi,
	})

	logger.Debug("liquidation zones detected", append(fields, zap.Int("zones", len(zones)))...)
	return zones
}

type candidate struct {
	price      float64
	side       models.ZoneSide
	confidence float64
	liquidity  float64
	reasoning  []string
}

// Build превращает разобранные данные в оцененные и объединенные зоны
func (d *Detector) Build(exchange, symbol string, in Inputs) []models.LiquidationZone {
	if in.CurrentPrice <= 0 {
		return nil
	}

	var order []string
	candidates := make(map[string]*candidate)
	upsert := func(side models.ZoneSide, price float64) *candidate {
		key := fmt.Sprintf("%s_%.2f", side, price)
		c, ok := candidates[key]
		if !ok {
			c = &candidate{price: price, side: side}
			candidates[key] = c
			order = append(order, key)
		}
		return c
	}

	if b := in.Book; b != nil {
		switch b.Pressure {
		case orderbook.LongsExposed:
			c := upsert(models.SideLong, b.BestBid*d.config.LongBookFactor)
			c.confidence += d.config.OrderBookPoints
			c.liquidity += c.price * d.config.BookLiquidityFactor
			c.reasoning = append(c.reasoning, fmt.Sprintf("Thin bids: order book bid share %.1f%% (+%.0f confidence)",
				b.BidRatio*100, d.config.OrderBookPoints))
		case orderbook.ShortsExposed:
			c := upsert(models.SideShort, b.BestAsk*d.config.ShortBookFactor)
			c.confidence += d.config.OrderBookPoints
			c.liquidity += c.price * d.config.BookLiquidityFactor
			c.reasoning = append(c.reasoning, fmt.Sprintf("Thin asks: order book bid share %.1f%% (+%.0f confidence)",
				b.BidRatio*100, d.config.OrderBookPoints))
		}
	}

	var fundingRate float64
	if f := in.Funding; f != nil && f.Available {
		fundingRate = f.Rate
		if f.Crowded != "" {
			factor, sign := d.config.LongFundingFactor, "positive"
			if f.Crowded == models.SideShort {
				factor, sign = d.config.ShortFundingFactor, "negative"
			}
			c := upsert(f.Crowded, in.CurrentPrice*factor)
			c.confidence += d.config.FundingPoints
			c.liquidity += d.fundAnal.Liquidity(f.Rate)
			c.reasoning = append(c.reasoning, fmt.Sprintf("Extreme %s funding rate %.3f%% (+%.0f confidence)",
				sign, f.Rate*100, d.config.FundingPoints))
		}
	}

	if oi := in.OpenInterest; oi != nil && oi.Increasing {
		for _, key := range order {
			c := candidates[key]
			c.confidence += d.config.OpenInterestPoints
			c.reasoning = append(c.reasoning, fmt.Sprintf("Open interest building at %.0f contracts (+%.0f confidence)",
				oi.Value, d.config.OpenInterestPoints))
		}
	}

	detectedAt := d.now()
	zones := make([]models.LiquidationZone, 0, len(order))
	for _, key := range order {
		c := candidates[key]
		confidence := math.Min(c.confidence, 100)
		suggestion := Suggest(d.config, c.side, c.price, in.CurrentPrice, confidence, d.fundAnal.Squeezing(fundingRate, c.side))
		risk := Risk(c.side, c.price, suggestion)

		zones = append(zones, models.LiquidationZone{
			Exchange:           exchange,
			Symbol:             symbol,
			Price:              c.price,
			Side:               c.side,
			EstimatedLiquidity: c.liquidity,
			Confidence:         confidence,
			Reasoning:          c.reasoning,
			Suggestion:         suggestion,
			StopLoss1:          risk.StopLoss1,
			StopLoss2:          risk.StopLoss2,
			TakeProfit1:        risk.TakeProfit1,
			TakeProfit2:        risk.TakeProfit2,
			Heatmap:            Heatmap(d.config, c.price, in.CurrentPrice, confidence),
			DetectedAt:         detectedAt,
		})
	}

	return Merge(d.config, zones)
}

package orderbook

import (
	"context"
	"fmt"
	"sort"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// BookSource отдает снимки стакана
type BookSource interface {
	FetchOrderBook(ctx context.Context, exchange, symbol string, depth int) (*models.OrderBook, error)
}

// Pressure указывает, какая сторона стакана тонкая
type Pressure int

const (
	Balanced Pressure = iota
	// LongsExposed - мало бидов: распродажа пройдет по стопам лонгов
	LongsExposed
	// ShortsExposed - мало асков: сквиз пройдет по стопам шортов
	ShortsExposed
)

// Result - дисбаланс стакана на анализируемой глубине
type Result struct {
	BidVolume float64
	AskVolume float64
	BidRatio  float64
	BestBid   float64
	BestAsk   float64
	Pressure  Pressure
}

// Analyzer измеряет дисбаланс бидов и асков
type Analyzer struct {
	config config.LiquidationConfig
	source BookSource
}

func NewAnalyzer(cfg config.LiquidationConfig, source BookSource) *Analyzer {
	return &Analyzer{
		config: cfg,
		source: source,
	}
}

// Analyze получает стакан и классифицирует дисбаланс
func (a *Analyzer) Analyze(ctx context.Context, exchange, symbol string) (*Result, error) {
	book, err := a.source.FetchOrderBook(ctx, exchange, symbol, a.config.OrderBookDepth)
	if err != nil {
		return nil, fmt.Errorf("order book: %w", err)
	}
	return a.Evaluate(book), nil
}

// Evaluate классифицирует снимок. Стакан без объема считается Balanced
func (a *Analyzer) Evaluate(book *models.OrderBook) *Result {
	bids := sortedLevels(book.Bids, true)
	asks := sortedLevels(book.Asks, false)

	res := &Result{BidRatio: 0.5}
	if len(bids) > 0 {
		res.BestBid = bids[0].Price
	}
	if len(asks) > 0 {
		res.BestAsk = asks[0].Price
	}

	for _, bid := range bids {
		res.BidVolume += bid.Amount
	}
	for _, ask := range asks {
		res.AskVolume += ask.Amount
	}

	total := res.BidVolume + res.AskVolume
	if total == 0 {
		return res
	}
	res.BidRatio = res.BidVolume / total

	switch {
	case res.BidRatio < a.config.ImbalanceLow && res.BestBid > 0:
		res.Pressure = LongsExposed
	case res.BidRatio > a.config.ImbalanceHigh && res.BestAsk > 0:
		res.Pressure = ShortsExposed
	}

	return res
}

// sortedLevels возвращает копию: биды по убыванию цены, аски по возрастанию
func sortedLevels(levels []models.OrderBookLevel, desc bool) []models.OrderBookLevel {
	out := make([]models.OrderBookLevel, len(levels))
	copy(out, levels)
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// MarketClient - API рыночных данных одной биржи. Символы в формате биржи
type MarketClient interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error)
	GetTicker(ctx context.Context, symbol string) (*models.Ticker, error)
	GetFundingRate(ctx context.Context, symbol string) (*models.FundingRate, error)
	GetOpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error)
}

// Provider - рыночные данные, которые потребляют пакеты анализа
type Provider interface {
	FetchCandles(ctx context.Context, exchange, symbol, timeframe string, limit int) ([]*models.Candle, error)
	FetchOrderBook(ctx context.Context, exchange, symbol string, depth int) (*models.OrderBook, error)
	FetchTicker(ctx context.Context, exchange, symbol string) (*models.Ticker, error)
	FetchFundingRate(ctx context.Context, exchange, symbol string) (*models.FundingRate, error)
	FetchOpenInterest(ctx context.Context, exchange, symbol string) (*models.OpenInterest, error)
}

// Registry направляет вызовы клиенту нужной биржи, ограничивает каждый таймаутом
// и сводит сбои к models.ErrDataUnavailable
type Registry struct {
	mu      sync.RWMutex
	clients map[string]MarketClient
	timeout time.Duration
	prices  *PriceCache
}

func NewRegistry(timeout time.Duration, prices *PriceCache) *Registry {
	return &Registry{
		clients: make(map[string]MarketClient),
		timeout: timeout,
		prices:  prices,
	}
}

// Register добавляет биржу под именем в верхнем регистре
func (r *Registry) Register(name string, client MarketClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[NormalizeExchange(name)] = client
}

// Exchanges возвращает имена зарегистрированных бирж
func (r *Registry) Exchanges() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

func (r *Registry) client(exchange, symbol string) (MarketClient, string, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	c, ok := r.clients[NormalizeExchange(exchange)]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported exchange %q", models.ErrInvalidParameter, exchange)
	}
	return c, ExchangeSymbol(symbol), nil
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func unavailable(op, exchange, symbol string, err error) error {
	return fmt.Errorf("%w: %s %s %s: %v", models.ErrDataUnavailable, op, exchange, symbol, err)
}

func (r *Registry) FetchCandles(ctx context.Context, exchange, symbol, timeframe string, limit int) ([]*models.Candle, error) {
	if err := ValidateTimeframe(timeframe); err != nil {
		return nil, err
	}
	c, sym, err := r.client(exchange, symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	candles, err := c.GetKlines(ctx, sym, timeframe, limit)
	if err != nil {
		return nil, unavailable("candles", exchange, symbol, err)
	}
	return candles, nil
}

func (r *Registry) FetchOrderBook(ctx context.Context, exchange, symbol string, depth int) (*models.OrderBook, error) {
	c, sym, err := r.client(exchange, symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	book, err := c.GetOrderBook(ctx, sym, depth)
	if err != nil {
		return nil, unavailable("order book", exchange, symbol, err)
	}
	return book, nil
}

func (r *Registry) FetchTicker(ctx context.Context, exchange, symbol string) (*models.Ticker, error) {
	c, sym, err := r.client(exchange, symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ticker, err := c.GetTicker(ctx, sym)
	if err != nil {
		return nil, unavailable("ticker", exchange, symbol, err)
	}
	if r.prices != nil {
		r.prices.Set(priceKey(exchange, symbol), ticker.LastPrice)
	}
	return ticker, nil
}

// FetchFundingRate возвращает nil без ошибки, если ставки нет
func (r *Registry) FetchFundingRate(ctx context.Context, exchange, symbol string) (*models.FundingRate, error) {
	c, sym, err := r.client(exchange, symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rate, err := c.GetFundingRate(ctx, sym)
	if err != nil {
		return nil, unavailable("funding rate", exchange, symbol, err)
	}
	return rate, nil
}

// FetchOpenInterest возвращает nil без ошибки, если открытого интереса нет
func (r *Registry) FetchOpenInterest(ctx context.Context, exchange, symbol string) (*models.OpenInterest, error) {
	c, sym, err := r.client(exchange, symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	oi, err := c.GetOpenInterest(ctx, sym)
	if err != nil {
		return nil, unavailable("open interest", exchange, symbol, err)
	}
	return oi, nil
}

// Price отдает свежую цену из кеша, иначе запрашивает биржу, а при ее недоступности
// возвращает последнюю известную цену
func (r *Registry) Price(ctx context.Context, exchange, symbol string) (float64, error) {
	key := priceKey(exchange, symbol)
	if r.prices != nil {
		if p, ok := r.prices.Get(key); ok {
			return p, nil
		}
	}

	ticker, err := r.FetchTicker(ctx, exchange, symbol)
	if err == nil {
		return ticker.LastPrice, nil
	}

	if r.prices != nil {
		if p, ok := r.prices.Stale(key); ok {
			logger.Warn("serving stale price",
				zap.String("exchange", exchange),
				zap.String("symbol", symbol),
				zap.Error(err))
			return p, nil
		}
	}
	return 0, err
}

func priceKey(exchange, symbol string) string {
	return NormalizeExchange(exchange) + ":" + ExchangeSymbol(symbol)
}

package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// BinanceClient reads USDⓈ-M futures market data. Symbols are in exchange form (BTCUSDT).
type BinanceClient struct {
	futures *futures.Client
}

// NewBinanceClient создает фьючерсный клиент. Рыночные данные доступны без ключей
func NewBinanceClient(cfg config.BinanceConfig) *BinanceClient {
	futures.UseTestnet = cfg.Testnet
	return &BinanceClient{
		futures: futures.NewClient(cfg.APIKey, cfg.APISecret),
	}
}

// GetKlines возвращает свечи по возрастанию времени
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
	}

	candles := make([]*models.Candle, 0, len(klines))
	for _, k := range klines {
		values, err := parseFloats(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s at %d: %w", symbol, k.OpenTime, err)
		}
		candles = append(candles, &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			CloseTime: time.UnixMilli(k.CloseTime),
		})
	}

	return candles, nil
}

// GetOrderBook возвращает limit лучших уровней с каждой стороны
func (c *BinanceClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	ob, err := c.futures.NewDepthService().
		Symbol(symbol).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch depth %s: %w", symbol, err)
	}

	book := &models.OrderBook{
		Symbol:    symbol,
		Timestamp: time.Now(),
		Bids:      make([]models.OrderBookLevel, 0, len(ob.Bids)),
		Asks:      make([]models.OrderBookLevel, 0, len(ob.Asks)),
	}

	for _, bid := range ob.Bids {
		values, err := parseFloats(bid.Price, bid.Quantity)
		if err != nil {
			return nil, fmt.Errorf("parse bid %s: %w", symbol, err)
		}
		book.Bids = append(book.Bids, models.OrderBookLevel{Price: values[0], Amount: values[1]})
	}

	for _, ask := range ob.Asks {
		values, err := parseFloats(ask.Price, ask.Quantity)
		if err != nil {
			return nil, fmt.Errorf("parse ask %s: %w", symbol, err)
		}
		book.Asks = append(book.Asks, models.OrderBookLevel{Price: values[0], Amount: values[1]})
	}

	return book, nil
}

// GetTicker возвращает цену последней сделки
func (c *BinanceClient) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	prices, err := c.futures.NewListPricesService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no price for %s", symbol)
	}

	last, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return nil, fmt.Errorf("parse price %s: %w", symbol, err)
	}

	return &models.Ticker{
		Symbol:    symbol,
		LastPrice: last.InexactFloat64(),
		Timestamp: time.Now(),
	}, nil
}

// GetFundingRate возвращает последнюю ставку финансирования или nil, если ее нет
func (c *BinanceClient) GetFundingRate(ctx context.Context, symbol string) (*models.FundingRate, error) {
	rates, err := c.futures.NewPremiumIndexService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch premium index %s: %w", symbol, err)
	}
	if len(rates) == 0 || rates[0].LastFundingRate == "" {
		return nil, nil
	}

	rate, err := decimal.NewFromString(rates[0].LastFundingRate)
	if err != nil {
		return nil, fmt.Errorf("parse funding rate %s: %w", symbol, err)
	}

	return &models.FundingRate{
		Symbol:          symbol,
		Rate:            rate.InexactFloat64(),
		Timestamp:       time.Now(),
		NextFundingTime: time.UnixMilli(rates[0].NextFundingTime),
	}, nil
}

// GetOpenInterest возвращает текущий открытый интерес или nil, если биржа его не сообщает
func (c *BinanceClient) GetOpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error) {
	oi, err := c.futures.NewGetOpenInterestService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch open interest %s: %w", symbol, err)
	}
	if oi == nil || oi.OpenInterest == "" {
		return nil, nil
	}

	value, err := decimal.NewFromString(oi.OpenInterest)
	if err != nil {
		return nil, fmt.Errorf("parse open interest %s: %w", symbol, err)
	}

	return &models.OpenInterest{
		Symbol:    symbol,
		Value:     value.InexactFloat64(),
		Timestamp: time.Now(),
	}, nil
}

func parseFloats(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		out[i] = d.InexactFloat64()
	}
	return out, nil
}

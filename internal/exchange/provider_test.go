package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/cryptopulse/pkg/models"
)

type fakeClient struct {
	tickerPrice float64
	tickerErr   error
	calls       int
	lastSymbol  string
	deadlineSet bool
}

func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*models.Candle, error) {
	f.lastSymbol = symbol
	_, f.deadlineSet = ctx.Deadline()
	return make([]*models.Candle, limit), nil
}

func (f *fakeClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	return nil, errors.New("depth endpoint down")
}

func (f *fakeClient) GetTicker(ctx context.Context, symbol string) (*models.Ticker, error) {
	f.calls++
	if f.tickerErr != nil {
		return nil, f.tickerErr
	}
	return &models.Ticker{Symbol: symbol, LastPrice: f.tickerPrice}, nil
}

func (f *fakeClient) GetFundingRate(ctx context.Context, symbol string) (*models.FundingRate, error) {
	return nil, nil
}

func (f *fakeClient) GetOpenInterest(ctx context.Context, symbol string) (*models.OpenInterest, error) {
	return &models.OpenInterest{Symbol: symbol, Value: 1200}, nil
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func newTestRegistry(client *fakeClient, clock *manualClock) *Registry {
	r := NewRegistry(time.Second, NewPriceCache(time.Minute, clock.Now))
	r.Register("binance", client)
	return r
}

func TestRegistryRoutesAndNormalizesSymbols(t *testing.T) {
	client := &fakeClient{}
	r := newTestRegistry(client, &manualClock{now: time.Now()})

	candles, err := r.FetchCandles(context.Background(), "BINANCE", "btc/usdt", "1h", 3)
	require.NoError(t, err)
	assert.Len(t, candles, 3)
	assert.Equal(t, "BTCUSDT", client.lastSymbol)
	assert.True(t, client.deadlineSet)
}

func TestRegistryRejectsInvalidParameters(t *testing.T) {
	r := newTestRegistry(&fakeClient{}, &manualClock{now: time.Now()})

	_, err := r.FetchCandles(context.Background(), "KRAKEN", "BTC/USDT", "1h", 10)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = r.FetchCandles(context.Background(), "BINANCE", "BTC/USDT", "3h", 10)
	assert.ErrorIs(t, err, models.ErrInvalidParameter)

	_, err = r.FetchTicker(context.Background(), "BINANCE", "BTC//USDT")
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestRegistryWrapsFailuresAsDataUnavailable(t *testing.T) {
	r := newTestRegistry(&fakeClient{}, &manualClock{now: time.Now()})

	_, err := r.FetchOrderBook(context.Background(), "BINANCE", "BTC/USDT", 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "depth endpoint down")
}

func TestRegistryFundingAbsentIsNotAnError(t *testing.T) {
	r := newTestRegistry(&fakeClient{}, &manualClock{now: time.Now()})

	rate, err := r.FetchFundingRate(context.Background(), "BINANCE", "BTC/USDT")
	require.NoError(t, err)
	assert.Nil(t, rate)
}

func TestRegistryPriceUsesCache(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	client := &fakeClient{tickerPrice: 50000}
	r := newTestRegistry(client, clock)
	ctx := context.Background()

	p, err := r.Price(ctx, "BINANCE", "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, p)

	client.tickerPrice = 51000
	clock.now = clock.now.Add(30 * time.Second)
	p, err = r.Price(ctx, "BINANCE", "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, p, "fresh entry served from cache")
	assert.Equal(t, 1, client.calls)

	clock.now = clock.now.Add(31 * time.Second)
	p, err = r.Price(ctx, "BINANCE", "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 51000.0, p)
	assert.Equal(t, 2, client.calls)
}

func TestRegistryPriceFallsBackToStale(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	client := &fakeClient{tickerPrice: 3000}
	r := newTestRegistry(client, clock)
	ctx := context.Background()

	_, err := r.Price(ctx, "BINANCE", "ETH/USDT")
	require.NoError(t, err)

	clock.now = clock.now.Add(5 * time.Minute)
	client.tickerErr = errors.New("timeout")

	p, err := r.Price(ctx, "BINANCE", "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, p)

	_, err = r.Price(ctx, "BINANCE", "SOL/USDT")
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestPriceCacheExpiry(t *testing.T) {
	clock := &manualClock{now: time.Unix(0, 0)}
	c := NewPriceCache(60*time.Second, clock.Now)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", 10)
	clock.now = clock.now.Add(59 * time.Second)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	clock.now = clock.now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	v, ok = c.Stale("k")
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
}

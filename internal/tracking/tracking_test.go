package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestPnL(t *testing.T) {
	assert.InDelta(t, 10.0, PnL(models.SignalBuy, 100, 110), 1e-9)
	assert.InDelta(t, -10.0, PnL(models.SignalSell, 100, 110), 1e-9)
	assert.InDelta(t, 5.0, PnL(models.SignalSell, 100, 95), 1e-9)
	assert.Zero(t, PnL(models.SignalBuy, 0, 95))
}

func TestDirectionCorrect(t *testing.T) {
	assert.True(t, DirectionCorrect(models.SignalBuy, 1.5))
	assert.False(t, DirectionCorrect(models.SignalBuy, -1.5))
	assert.True(t, DirectionCorrect(models.SignalSell, -0.2))
	assert.False(t, DirectionCorrect(models.SignalSell, 0.2))
	assert.True(t, DirectionCorrect(models.SignalHold, 0))
}

func TestAccuracyScore(t *testing.T) {
	tests := []struct {
		name       string
		correct    bool
		change     float64
		confidence float64
		want       float64
	}{
		{"correct small move", true, 5, 60, 65},
		{"correct large move close confidence", true, 12, 15, 97},
		{"wrong direction", false, -2, 5, 17},
		{"capped", true, 20, 20, 100},
		{"wrong and far", false, 1, 80, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AccuracyScore(tt.correct, tt.change, tt.confidence), 1e-9)
		})
	}
}

func TestTier(t *testing.T) {
	assert.Equal(t, models.TierExcellent, Tier(80))
	assert.Equal(t, models.TierGood, Tier(79.9))
	assert.Equal(t, models.TierGood, Tier(60))
	assert.Equal(t, models.TierAverage, Tier(40))
	assert.Equal(t, models.TierPoor, Tier(39.99))
}

func buySignal(age time.Duration) *models.TradingSignal {
	return &models.TradingSignal{
		ID:         "sig-1",
		Exchange:   "binance",
		Symbol:     "BTC/USDT",
		SignalType: models.SignalBuy,
		Confidence: 20,
		Price:      100,
		Timestamp:  now.Add(-age),
		Performance: &models.SignalPerformance{
			SignalID:     "sig-1",
			HighestPrice: 105,
			LowestPrice:  98,
		},
	}
}

func TestUpdate_MarksToMarket(t *testing.T) {
	signal := buySignal(48 * time.Hour)

	perf := Update(signal, 103, now, 7*24*time.Hour)

	assert.Equal(t, 103.0, perf.CurrentPrice)
	assert.InDelta(t, 3.0, perf.CurrentPnL, 1e-9)
	assert.Equal(t, 105.0, perf.HighestPrice)
	assert.Equal(t, 98.0, perf.LowestPrice)
	assert.Equal(t, now, perf.LastUpdated)
	assert.Nil(t, perf.AccuracyScore)
	assert.Nil(t, perf.TrackingEnded)
}

func TestUpdate_DoesNotMutateSignal(t *testing.T) {
	signal := buySignal(time.Hour)

	perf := Update(signal, 120, now, 7*24*time.Hour)

	assert.Equal(t, 120.0, perf.HighestPrice)
	assert.Equal(t, 105.0, signal.Performance.HighestPrice)
}

func TestUpdate_FinalisesAfterEvaluationWindow(t *testing.T) {
	signal := buySignal(8 * 24 * time.Hour)

	perf := Update(signal, 103, now, 7*24*time.Hour)

	require.NotNil(t, perf.AccuracyScore)
	assert.InDelta(t, 62.0, *perf.AccuracyScore, 1e-9)
	assert.Equal(t, models.TierGood, *perf.PerformanceTier)
	assert.True(t, *perf.DirectionCorrect)
	assert.InDelta(t, 3.0, *perf.PriceChange, 1e-9)
	assert.Equal(t, 103.0, *perf.WeekEndPrice)
	assert.Equal(t, now, *perf.TrackingEnded)
}

func TestUpdate_FinalisesOnlyOnce(t *testing.T) {
	signal := buySignal(10 * 24 * time.Hour)
	signal.Performance.AccuracyScore = ptr(70.0)
	signal.Performance.PerformanceTier = ptr(models.TierGood)

	perf := Update(signal, 90, now, 7*24*time.Hour)

	assert.Equal(t, 70.0, *perf.AccuracyScore)
	assert.Equal(t, 90.0, perf.CurrentPrice)
	assert.Equal(t, 90.0, perf.LowestPrice)
}

func TestUpdate_SeedsMissingPerformance(t *testing.T) {
	signal := buySignal(time.Hour)
	signal.Performance = nil

	perf := Update(signal, 101, now, 7*24*time.Hour)

	assert.Equal(t, "sig-1", perf.SignalID)
	assert.Equal(t, 101.0, perf.HighestPrice)
	assert.Equal(t, 101.0, perf.LowestPrice)
}

func TestSummarize(t *testing.T) {
	signals := []*models.TradingSignal{
		{Performance: &models.SignalPerformance{CurrentPrice: 1, CurrentPnL: 4, AccuracyScore: ptr(90.0), PerformanceTier: ptr(models.TierExcellent)}},
		{Performance: &models.SignalPerformance{CurrentPrice: 1, CurrentPnL: -2, AccuracyScore: ptr(82.0), PerformanceTier: ptr(models.TierExcellent)}},
		{Performance: &models.SignalPerformance{}},
		{},
	}

	stats := Summarize(signals)

	assert.Equal(t, 4, stats.Total)
	assert.InDelta(t, 1.0, stats.AveragePnL, 1e-9)
	require.Contains(t, stats.ByTier, models.TierExcellent)
	assert.Equal(t, 2, stats.ByTier[models.TierExcellent].Count)
	assert.InDelta(t, 86.0, stats.ByTier[models.TierExcellent].AverageScore, 1e-9)
}

type fakeSignals struct {
	signals []*models.TradingSignal
	err     error
	since   time.Time
	limit   int
	updates []*models.SignalPerformance
}

func (f *fakeSignals) CreateSignal(context.Context, *models.TradingSignal) error { return nil }

func (f *fakeSignals) RecentSignals(_ context.Context, since time.Time, limit int) ([]*models.TradingSignal, error) {
	f.since, f.limit = since, limit
	return f.signals, f.err
}

func (f *fakeSignals) UpdatePerformance(_ context.Context, perf *models.SignalPerformance) error {
	f.updates = append(f.updates, perf)
	return nil
}

type fakePrices map[string]float64

func (f fakePrices) Price(_ context.Context, exchange, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, models.ErrDataUnavailable
	}
	return p, nil
}

func newTestTracker(repo *fakeSignals, prices fakePrices) *Tracker {
	tr := NewTracker(config.TrackingConfig{LookbackDays: 30, BatchSize: 100, EvaluationDays: 7}, repo, prices)
	tr.now = func() time.Time { return now }
	return tr
}

func TestSweep_UpdatesPricedSignals(t *testing.T) {
	eth := buySignal(8 * 24 * time.Hour)
	eth.ID, eth.Symbol = "sig-2", "ETH/USDT"

	repo := &fakeSignals{signals: []*models.TradingSignal{buySignal(time.Hour), eth}}
	tr := newTestTracker(repo, fakePrices{"BTC/USDT": 104})

	stats, err := tr.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 0, -30), repo.since)
	assert.Equal(t, 100, repo.limit)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, "sig-1", repo.updates[0].SignalID)
	assert.InDelta(t, 4.0, repo.updates[0].CurrentPnL, 1e-9)
	assert.Equal(t, 2, stats.Total)
	assert.InDelta(t, 4.0, stats.AveragePnL, 1e-9)
}

func TestSweep_RepositoryError(t *testing.T) {
	repo := &fakeSignals{err: errors.New("db down")}
	tr := newTestTracker(repo, fakePrices{})

	err := tr.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load recent signals")
}

func TestSweep_StopsOnCancelledContext(t *testing.T) {
	repo := &fakeSignals{signals: []*models.TradingSignal{buySignal(time.Hour)}}
	tr := newTestTracker(repo, fakePrices{"BTC/USDT": 104})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.updates)
}

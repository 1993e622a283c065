package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/cryptopulse/pkg/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func ptr[T any](v T) *T { return &v }

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testSignal(id string, at time.Time) *models.TradingSignal {
	return &models.TradingSignal{
		ID:                  id,
		Exchange:            "BINANCE",
		Symbol:              "BTC/USDT",
		Timeframe:           "1h",
		SignalType:          models.SignalBuy,
		Confidence:          72.5,
		TechnicalConfidence: 65,
		Price:               50000,
		Reasons:             []string{"RSI oversold", "MACD bullish crossover"},
		SentimentScore:      ptr(0.5),
		SentimentWeight:     ptr(7.5),
		Timestamp:           at,
	}
}

func TestCreateSignalSeedsPerformance(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	signal := testSignal("sig-1", baseTime)
	require.NoError(t, store.CreateSignal(ctx, signal))
	require.NotNil(t, signal.Performance)

	signals, err := store.RecentSignals(ctx, baseTime.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	got := signals[0]
	assert.Equal(t, "sig-1", got.ID)
	assert.Equal(t, models.SignalBuy, got.SignalType)
	assert.Equal(t, []string{"RSI oversold", "MACD bullish crossover"}, got.Reasons)
	assert.True(t, got.Timestamp.Equal(baseTime))
	require.NotNil(t, got.SentimentScore)
	assert.Equal(t, 0.5, *got.SentimentScore)
	assert.Nil(t, got.NewsScore)
	assert.Nil(t, got.InverseSentiment)

	require.NotNil(t, got.Performance)
	assert.Equal(t, "sig-1", got.Performance.SignalID)
	assert.Zero(t, got.Performance.CurrentPrice)
	assert.Zero(t, got.Performance.CurrentPnL)
	assert.Equal(t, 50000.0, got.Performance.HighestPrice)
	assert.Equal(t, 50000.0, got.Performance.LowestPrice)
	assert.Nil(t, got.Performance.AccuracyScore)
	assert.Nil(t, got.Performance.TrackingEnded)
}

func TestCreateSignalDuplicateRollsBack(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSignal(ctx, testSignal("dup", baseTime)))
	assert.Error(t, store.CreateSignal(ctx, testSignal("dup", baseTime)))

	signals, err := store.RecentSignals(ctx, baseTime.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestRecentSignalsWindowAndOrder(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSignal(ctx, testSignal("old", baseTime.Add(-48*time.Hour))))
	require.NoError(t, store.CreateSignal(ctx, testSignal("a", baseTime.Add(-2*time.Hour))))
	require.NoError(t, store.CreateSignal(ctx, testSignal("b", baseTime.Add(-time.Hour))))

	signals, err := store.RecentSignals(ctx, baseTime.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, "b", signals[0].ID)
	assert.Equal(t, "a", signals[1].ID)

	signals, err = store.RecentSignals(ctx, baseTime.Add(-72*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestUpdatePerformance(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	signal := testSignal("sig-1", baseTime)
	require.NoError(t, store.CreateSignal(ctx, signal))

	tier := models.TierGood
	ended := baseTime.Add(7 * 24 * time.Hour)
	perf := signal.Performance
	perf.CurrentPrice = 51000
	perf.CurrentPnL = 2
	perf.HighestPrice = 51500
	perf.WeekEndPrice = ptr(51000.0)
	perf.PriceChange = ptr(2.0)
	perf.DirectionCorrect = ptr(true)
	perf.AccuracyScore = ptr(63.0)
	perf.PerformanceTier = &tier
	perf.LastUpdated = ended
	perf.TrackingEnded = &ended
	require.NoError(t, store.UpdatePerformance(ctx, perf))

	signals, err := store.RecentSignals(ctx, baseTime.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	got := signals[0].Performance
	require.NotNil(t, got)
	assert.Equal(t, 51000.0, got.CurrentPrice)
	assert.Equal(t, 51500.0, got.HighestPrice)
	require.NotNil(t, got.DirectionCorrect)
	assert.True(t, *got.DirectionCorrect)
	require.NotNil(t, got.PerformanceTier)
	assert.Equal(t, models.TierGood, *got.PerformanceTier)
	require.NotNil(t, got.TrackingEnded)
	assert.True(t, got.TrackingEnded.Equal(ended))
}

func TestUpdatePerformanceNotFound(t *testing.T) {
	store := setupTestDB(t)
	err := store.UpdatePerformance(context.Background(), &models.SignalPerformance{SignalID: "missing", LastUpdated: baseTime})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveLiquidationZone(t *testing.T) {
	store := setupTestDB(t)

	zone := models.LiquidationZone{
		Exchange:   "BINANCE",
		Symbol:     "BTC/USDT",
		Price:      49000,
		Side:       models.SideLong,
		Confidence: 60,
		Reasoning:  []string{"Thin bids"},
		Suggestion: models.SuggestNeutral,
		Heatmap:    []models.HeatmapPoint{{Price: 48000, Intensity: 10, Liquidity: 5}},
		DetectedAt: baseTime,
	}
	require.NoError(t, store.SaveLiquidationZone(context.Background(), zone))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM liquidation_zones WHERE symbol = ?`, "BTC/USDT").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLatestSentiment(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	snap, err := store.LatestSentiment(ctx, "BTC", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, snap)

	for i, compound := range []float64{0.1, 0.4} {
		require.NoError(t, store.SaveSentiment(ctx, &models.SentimentSnapshot{
			Symbol:    "BTC",
			Source:    "news",
			Result:    models.SentimentResult{Compound: compound, Neutral: 0.5, SampleSize: 10},
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}))
	}

	snap, err = store.LatestSentiment(ctx, "BTC", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 0.4, snap.Result.Compound)
	assert.Equal(t, 10, snap.Result.SampleSize)

	snap, err = store.LatestSentiment(ctx, "BTC", baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, snap)

	snap, err = store.LatestSentiment(ctx, "ETH", baseTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestNewsUpsertAndRanking(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	articles := []*models.NewsArticle{
		{Symbol: "BTC", URL: "https://x/1", Title: "low", Source: "CoinDesk", PublishedAt: baseTime, Sentiment: 0.1, Score: 55},
		{Symbol: "BTC", URL: "https://x/2", Title: "high", Source: "CoinDesk", PublishedAt: baseTime, Sentiment: 0.6, Score: 90},
		{Symbol: "BTC", URL: "https://x/3", Title: "stale", Source: "CoinDesk", PublishedAt: baseTime.Add(-72 * time.Hour), Sentiment: 0.9, Score: 99},
		{Symbol: "ETH", URL: "https://x/2", Title: "high", Source: "CoinDesk", PublishedAt: baseTime, Sentiment: 0.6, Score: 90},
	}
	for _, a := range articles {
		require.NoError(t, store.UpsertNews(ctx, a))
	}

	updated := *articles[0]
	updated.Score = 95
	require.NoError(t, store.UpsertNews(ctx, &updated))

	got, err := store.RecentNews(ctx, "BTC", baseTime.Add(-24*time.Hour), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "low", got[0].Title)
	assert.Equal(t, 95.0, got[0].Score)
	assert.Equal(t, "high", got[1].Title)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
}

func whaleTx(hash, symbol string, at time.Time, usd float64) *models.WhaleTransaction {
	return &models.WhaleTransaction{
		TxHash:          hash,
		Blockchain:      "bitcoin",
		Symbol:          symbol,
		Amount:          usd / 50000,
		AmountUSD:       usd,
		FromAddress:     "bc1-cold",
		ToAddress:       "bc1-binance",
		ToOwner:         "Binance",
		ToType:          models.WalletExchange,
		Timestamp:       at,
		BlockNumber:     840000,
		TransactionType: models.WhaleExchangeInflow,
		Significance:    models.SignificanceHigh,
		Source:          "blockchain-api",
	}
}

func TestWhaleTransactionsDeduplicateByHash(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	exists, err := store.WhaleTransactionExists(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, exists)

	created, err := store.SaveWhaleTransaction(ctx, whaleTx("h1", "BTC", baseTime, 25_000_000))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SaveWhaleTransaction(ctx, whaleTx("h1", "BTC", baseTime, 1))
	require.NoError(t, err)
	assert.False(t, created)

	exists, err = store.WhaleTransactionExists(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, mustSave(store, whaleTx("h2", "BTC", baseTime.Add(-48*time.Hour), 6_000_000)))
	require.NoError(t, mustSave(store, whaleTx("h3", "ETH", baseTime, 6_000_000)))

	got, err := store.RecentWhaleTransactions(ctx, "BTC", baseTime.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "h1", got[0].TxHash)
	assert.Equal(t, 25_000_000.0, got[0].AmountUSD)
	assert.Equal(t, models.WhaleExchangeInflow, got[0].TransactionType)
	assert.Equal(t, models.SignificanceHigh, got[0].Significance)
	assert.Equal(t, "Binance", got[0].ToOwner)
	assert.Equal(t, int64(840000), got[0].BlockNumber)
	assert.True(t, got[0].Timestamp.Equal(baseTime))
}

func mustSave(store *SQLiteStorage, tx *models.WhaleTransaction) error {
	_, err := store.SaveWhaleTransaction(context.Background(), tx)
	return err
}

func TestWalletsUpsertFindAndTouch(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	missing, err := store.FindWallet(ctx, "bc1-binance", "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.UpsertWallet(ctx, models.WhaleWallet{
		Address: "bc1-binance", Blockchain: "bitcoin", OwnerName: "Binance Hot", OwnerType: models.WalletExchange,
	}))
	require.NoError(t, store.UpsertWallet(ctx, models.WhaleWallet{
		Address: "bc1-binance", Blockchain: "bitcoin", OwnerName: "Binance", OwnerType: models.WalletExchange,
	}))

	require.NoError(t, store.TouchWallet(ctx, "bc1-binance", "bitcoin", baseTime))
	require.NoError(t, store.TouchWallet(ctx, "bc1-binance", "bitcoin", baseTime.Add(time.Minute)))

	w, err := store.FindWallet(ctx, "bc1-binance", "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Binance", w.OwnerName)
	assert.Equal(t, 2, w.TotalTxCount)
	require.NotNil(t, w.LastSeen)
	assert.True(t, w.LastSeen.Equal(baseTime.Add(time.Minute)))

	other, err := store.FindWallet(ctx, "bc1-binance", "ethereum")
	require.NoError(t, err)
	assert.Nil(t, other)
}

package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skalibog/cryptopulse/internal/analysis/sentiment"
	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/internal/storage"
	"github.com/skalibog/cryptopulse/pkg/models"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

var testCoins = []config.CoinAlias{
	{Symbol: "BTC", Names: []string{"Bitcoin"}},
	{Symbol: "ETH", Names: []string{"Ethereum", "Ether"}},
	{Symbol: "SOL", Names: []string{"Solana"}},
}

func TestCoinMatcher_Extract(t *testing.T) {
	m := NewCoinMatcher(testCoins)

	tests := []struct {
		text string
		want []string
	}{
		{"Bitcoin breaks out", []string{"BTC"}},
		{"btc and ETHEREUM rally", []string{"BTC", "ETH"}},
		{"Solana, Ether and BTC: weekly recap", []string{"BTC", "ETH", "SOL"}},
		{"BTCS shares jump on earnings", nil},
		{"Tethered assets and solanaceae", nil},
		{"Fed holds rates", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Extract(tt.text))
		})
	}
}

func TestImportanceScore(t *testing.T) {
	tests := []struct {
		name     string
		age      time.Duration
		compound float64
		want     float64
	}{
		{"fresh neutral", 30 * time.Minute, 0, 80},
		{"fresh extreme", 10 * time.Minute, -0.9, 98},
		{"few hours", 3 * time.Hour, 0.5, 80},
		{"same day", 12 * time.Hour, 0, 60},
		{"old", 48 * time.Hour, 0.25, 55},
		{"capped at 100", 0, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ImportanceScore(now.Add(-tt.age), now, tt.compound), 1e-9)
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "Bitcoin hits a new high today.", Snippet("<p>Bitcoin hits a <b>new high</b>\n today.</p>"))

	long := strings.Repeat("a", 600)
	assert.Len(t, Snippet(long), summaryLimit)
}

type newsStore struct {
	mu       sync.Mutex
	articles []*models.NewsArticle
	err      error
}

func (s *newsStore) UpsertNews(_ context.Context, a *models.NewsArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.articles = append(s.articles, a)
	return nil
}

func (s *newsStore) RecentNews(context.Context, string, time.Time, int) ([]*models.NewsArticle, error) {
	return nil, nil
}

type sentimentStore struct {
	snapshots map[string]*models.SentimentSnapshot
}

func (s *sentimentStore) SaveSentiment(_ context.Context, snap *models.SentimentSnapshot) error {
	s.snapshots[snap.Symbol] = snap
	return nil
}

func (s *sentimentStore) LatestSentiment(context.Context, string, time.Time) (*models.SentimentSnapshot, error) {
	return nil, nil
}

type recorder struct {
	sentiments int
}

func (r *recorder) RecordSignal(context.Context, *models.TradingSignal) error     { return nil }
func (r *recorder) RecordAlerts(context.Context, []models.LiquidationAlert) error { return nil }
func (r *recorder) RecordSentiment(context.Context, *models.SentimentSnapshot) error {
	r.sentiments++
	return nil
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Crypto Wire</title>
  <link>https://example.com</link>
  <description>test feed</description>
  <item>
    <title>Bitcoin surges to record high</title>
    <link>https://example.com/btc-record</link>
    <description>&lt;p&gt;Bitcoin rallied past its previous peak.&lt;/p&gt;</description>
    <pubDate>Sun, 10 Mar 2024 11:30:00 +0000</pubDate>
  </item>
  <item>
    <title>Ethereum and Solana upgrades go live</title>
    <link>https://example.com/eth-sol</link>
    <description>Two networks shipped upgrades.</description>
    <pubDate>Sun, 10 Mar 2024 08:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Markets quiet ahead of Fed decision</title>
    <link>https://example.com/fed</link>
    <description>Nothing crypto here.</description>
    <pubDate>Sun, 10 Mar 2024 10:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Bitcoin miners recall the 2021 cycle</title>
    <link>https://example.com/old</link>
    <description>Archive piece.</description>
    <pubDate>Fri, 01 Mar 2024 10:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(sources []config.FeedSource, news *newsStore, sents *sentimentStore, rec *recorder) *Scraper {
	cfg := config.NewsConfig{Sources: sources, Coins: testCoins, SentimentHours: 24}
	var r storage.Recorder
	if rec != nil {
		r = rec
	}
	s := NewScraper(cfg, sentiment.NewAnalyzer(nil), news, sents, r)
	s.now = func() time.Time { return now }
	return s
}

func TestScrape_SavesArticlesPerCoin(t *testing.T) {
	srv := feedServer(t)
	news := &newsStore{}
	sents := &sentimentStore{snapshots: map[string]*models.SentimentSnapshot{}}
	rec := &recorder{}

	s := newTestScraper([]config.FeedSource{
		{Name: "Wire", URL: srv.URL + "/rss"},
		{Name: "Broken", URL: srv.URL + "/broken"},
	}, news, sents, rec)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Items)
	assert.Equal(t, 4, res.Saved)
	assert.Equal(t, []string{"Broken"}, res.Failed)

	bySymbol := make(map[string][]*models.NewsArticle)
	for _, a := range news.articles {
		bySymbol[a.Symbol] = append(bySymbol[a.Symbol], a)
	}
	require.Len(t, bySymbol["BTC"], 2)
	require.Len(t, bySymbol["ETH"], 1)
	require.Len(t, bySymbol["SOL"], 1)

	btc := bySymbol["BTC"][0]
	assert.Equal(t, "https://example.com/btc-record", btc.URL)
	assert.Equal(t, "Wire", btc.Source)
	assert.Equal(t, "Bitcoin rallied past its previous peak.", btc.Summary)
	assert.True(t, btc.PublishedAt.Equal(time.Date(2024, 3, 10, 11, 30, 0, 0, time.UTC)))
	assert.GreaterOrEqual(t, btc.Score, 80.0)

	eth := bySymbol["ETH"][0]
	assert.GreaterOrEqual(t, eth.Score, 70.0)
	assert.LessOrEqual(t, eth.Score, 90.0)

	require.Len(t, sents.snapshots, 3)
	assert.Equal(t, SnapshotSource, sents.snapshots["BTC"].Source)
	assert.Equal(t, 1, sents.snapshots["BTC"].Result.SampleSize, "archive headline is outside the sentiment window")
	assert.Equal(t, now, sents.snapshots["ETH"].CreatedAt)
	assert.Equal(t, 3, res.Snapshots)
	assert.Equal(t, 3, rec.sentiments)
}

func TestScrape_AllSourcesFailing(t *testing.T) {
	srv := feedServer(t)
	s := newTestScraper([]config.FeedSource{{Name: "Broken", URL: srv.URL + "/broken"}},
		&newsStore{}, &sentimentStore{snapshots: map[string]*models.SentimentSnapshot{}}, nil)

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestScrape_StoreFailureSkipsSnapshot(t *testing.T) {
	srv := feedServer(t)
	sents := &sentimentStore{snapshots: map[string]*models.SentimentSnapshot{}}
	s := newTestScraper([]config.FeedSource{{Name: "Wire", URL: srv.URL + "/rss"}},
		&newsStore{err: fmt.Errorf("disk full")}, sents, nil)

	res, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Saved)
	assert.Empty(t, sents.snapshots)
}

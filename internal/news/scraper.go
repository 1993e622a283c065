package news

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/analysis/sentiment"
	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/internal/storage"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// SnapshotSource помечает снимки настроений, построенные по заголовкам
const SnapshotSource = "news"

// Scraper забирает RSS-заголовки, привязывает их к монетам и обновляет настроения
type Scraper struct {
	config    config.NewsConfig
	parser    *gofeed.Parser
	matcher   *CoinMatcher
	analyzer  *sentiment.Analyzer
	news      storage.NewsStore
	sentiment storage.SentimentStore
	recorder  storage.Recorder
	now       func() time.Time
}

// NewScraper создает скрапер. recorder может быть nil
func NewScraper(cfg config.NewsConfig, analyzer *sentiment.Analyzer, news storage.NewsStore, sentiments storage.SentimentStore, recorder storage.Recorder) *Scraper {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 30 * time.Second}
	parser.UserAgent = "cryptopulse/1.0"

	return &Scraper{
		config:    cfg,
		parser:    parser,
		matcher:   NewCoinMatcher(cfg.Coins),
		analyzer:  analyzer,
		news:      news,
		sentiment: sentiments,
		recorder:  recorder,
		now:       time.Now,
	}
}

// RunResult - итоги одного прохода
type RunResult struct {
	Items     int
	Saved     int
	Snapshots int
	Failed    []string
}

// Run - точка входа для планировщика
func (s *Scraper) Run(ctx context.Context) error {
	_, err := s.Scrape(ctx)
	return err
}

// Scrape опрашивает каждый источник один раз. Упавший источник пропускается; ошибка, только если упали все
func (s *Scraper) Scrape(ctx context.Context) (RunResult, error) {
	var res RunResult
	now := s.now()
	window := time.Duration(s.config.SentimentHours) * time.Hour
	headlines := make(map[string][]string)

	for _, source := range s.config.Sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		feed, err := s.parser.ParseURLWithContext(source.URL, ctx)
		if err != nil {
			logger.Warn("failed to fetch news feed", zap.String("source", source.Name), zap.Error(err))
			res.Failed = append(res.Failed, source.Name)
			continue
		}
		logger.Debug("fetched news feed", zap.String("source", source.Name), zap.Int("items", len(feed.Items)))

		for _, item := range feed.Items {
			res.Items++
			articles := s.articles(source.Name, item, now)
			for _, article := range articles {
				if err := s.news.UpsertNews(ctx, article); err != nil {
					logger.Error("failed to save news article",
						zap.String("url", article.URL), zap.String("symbol", article.Symbol), zap.Error(err))
					continue
				}
				res.Saved++
				if window <= 0 || now.Sub(article.PublishedAt) < window {
					headlines[article.Symbol] = append(headlines[article.Symbol], article.Title)
				}
			}
		}
	}

	if len(s.config.Sources) > 0 && len(res.Failed) == len(s.config.Sources) {
		return res, fmt.Errorf("all %d news sources failed: %w", len(res.Failed), models.ErrDataUnavailable)
	}

	res.Snapshots = s.saveSnapshots(ctx, headlines, now)

	logger.Info("news scrape finished",
		zap.Int("items", res.Items),
		zap.Int("saved", res.Saved),
		zap.Int("snapshots", res.Snapshots),
		zap.Strings("failed_sources", res.Failed))
	return res, nil
}

// articles превращает запись ленты в статьи по каждой упомянутой монете
func (s *Scraper) articles(source string, item *gofeed.Item, now time.Time) []*models.NewsArticle {
	if item == nil || item.Link == "" || item.Title == "" {
		return nil
	}

	symbols := s.matcher.Extract(item.Title + " " + item.Description + " " + item.Content)
	if len(symbols) == 0 {
		return nil
	}

	published := now
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	compound := s.analyzer.Analyze([]string{item.Title}).Compound
	score := ImportanceScore(published, now, compound)
	summary := Snippet(item.Description)

	out := make([]*models.NewsArticle, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, &models.NewsArticle{
			Symbol:      symbol,
			Title:       item.Title,
			URL:         item.Link,
			Source:      source,
			Summary:     summary,
			PublishedAt: published,
			Sentiment:   compound,
			Score:       score,
		})
	}
	return out
}

func (s *Scraper) saveSnapshots(ctx context.Context, headlines map[string][]string, now time.Time) int {
	var saved int
	for symbol, titles := range headlines {
		snapshot := &models.SentimentSnapshot{
			Symbol:    symbol,
			Source:    SnapshotSource,
			Result:    s.analyzer.Analyze(titles),
			CreatedAt: now,
		}

		if err := s.sentiment.SaveSentiment(ctx, snapshot); err != nil {
			logger.Error("failed to save sentiment snapshot", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		saved++

		if s.recorder != nil {
			if err := s.recorder.RecordSentiment(ctx, snapshot); err != nil {
				logger.Warn("failed to record sentiment", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}
	return saved
}

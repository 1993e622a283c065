package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// SignalRepository хранит сигналы и их результативность
type SignalRepository interface {
	// CreateSignal пишет сигнал и результативность в одной транзакции
	CreateSignal(ctx context.Context, signal *models.TradingSignal) error
	// RecentSignals возвращает сигналы начиная с since, новые первыми, вместе с результативностью
	RecentSignals(ctx context.Context, since time.Time, limit int) ([]*models.TradingSignal, error)
	UpdatePerformance(ctx context.Context, perf *models.SignalPerformance) error
}

type ZoneRepository interface {
	SaveLiquidationZone(ctx context.Context, zone models.LiquidationZone) error
}

// SentimentStore хранит сводные настроения по базовому активу
type SentimentStore interface {
	SaveSentiment(ctx context.Context, snapshot *models.SentimentSnapshot) error
	// LatestSentiment возвращает nil, nil, если снимков с указанного времени нет
	LatestSentiment(ctx context.Context, symbol string, since time.Time) (*models.SentimentSnapshot, error)
}

// NewsStore хранит оцененные заголовки по базовому активу
type NewsStore interface {
	// UpsertNews вставляет или заменяет статью по (URL, Symbol)
	UpsertNews(ctx context.Context, article *models.NewsArticle) error
	// RecentNews возвращает статьи начиная с since, самые важные первыми
	RecentNews(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.NewsArticle, error)
}

// WhaleStore хранит крупные переводы и справочник известных кошельков.
type WhaleStore interface {
	WhaleTransactionExists(ctx context.Context, txHash string) (bool, error)
	// SaveWhaleTransaction возвращает false, если перевод с таким хэшем уже есть.
	SaveWhaleTransaction(ctx context.Context, tx *models.WhaleTransaction) (bool, error)
	RecentWhaleTransactions(ctx context.Context, symbol string, since time.Time) ([]*models.WhaleTransaction, error)
	UpsertWallet(ctx context.Context, wallet models.WhaleWallet) error
	// FindWallet возвращает nil, nil для неизвестного адреса.
	FindWallet(ctx context.Context, address, blockchain string) (*models.WhaleWallet, error)
	TouchWallet(ctx context.Context, address, blockchain string, seen time.Time) error
}

// Store - все реляционное хранилище
type Store interface {
	SignalRepository
	ZoneRepository
	SentimentStore
	NewsStore
	WhaleStore
	Close() error
}

// Recorder пишет точки временного ряда
type Recorder interface {
	RecordSignal(ctx context.Context, signal *models.TradingSignal) error
	RecordAlerts(ctx context.Context, alerts []models.LiquidationAlert) error
	RecordSentiment(ctx context.Context, snapshot *models.SentimentSnapshot) error
}

// New открывает хранилище по cfg.Driver и применяет схему
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: storage driver %q", models.ErrInvalidParameter, cfg.Driver)
	}
}

// seedPerformance возвращает результативность сигнала, создавая начальную при отсутствии
func seedPerformance(signal *models.TradingSignal) *models.SignalPerformance {
	if signal.Performance != nil {
		if signal.Performance.SignalID == "" {
			signal.Performance.SignalID = signal.ID
		}
		return signal.Performance
	}
	signal.Performance = &models.SignalPerformance{
		SignalID:     signal.ID,
		HighestPrice: signal.Price,
		LowestPrice:  signal.Price,
		LastUpdated:  signal.Timestamp,
	}
	return signal.Performance
}

func marshalJSON(v any) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

func unmarshalStrings(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []string
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal json: %w", err)
	}
	return out, nil
}

func tierPtr(s *string) *models.PerformanceTier {
	if s == nil {
		return nil
	}
	t := models.PerformanceTier(*s)
	return &t
}

func tierString(t *models.PerformanceTier) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trading_signals (
	id TEXT PRIMARY KEY,
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	confidence REAL NOT NULL,
	technical_confidence REAL NOT NULL,
	price REAL NOT NULL,
	reasons TEXT NOT NULL DEFAULT '[]',
	sentiment_score REAL,
	inverse_sentiment REAL,
	news_score REAL,
	sentiment_weight REAL,
	news_weight REAL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS signal_performance (
	signal_id TEXT PRIMARY KEY REFERENCES trading_signals(id) ON DELETE CASCADE,
	current_price REAL NOT NULL DEFAULT 0,
	current_pnl REAL NOT NULL DEFAULT 0,
	highest_price REAL NOT NULL,
	lowest_price REAL NOT NULL,
	week_end_price REAL,
	price_change REAL,
	direction_correct BOOLEAN,
	accuracy_score REAL,
	performance_tier TEXT,
	last_updated TIMESTAMP NOT NULL,
	tracking_ended TIMESTAMP
);

CREATE TABLE IF NOT EXISTS liquidation_zones (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	exchange TEXT NOT NULL,
	symbol TEXT NOT NULL,
	price REAL NOT NULL,
	side TEXT NOT NULL,
	estimated_liquidity REAL NOT NULL,
	confidence REAL NOT NULL,
	reasoning TEXT NOT NULL,
	suggestion TEXT NOT NULL,
	stop_loss_1 REAL NOT NULL,
	stop_loss_2 REAL NOT NULL,
	take_profit_1 REAL NOT NULL,
	take_profit_2 REAL NOT NULL,
	heatmap TEXT NOT NULL,
	detected_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sentiment_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	source TEXT NOT NULL,
	compound REAL NOT NULL,
	positive REAL NOT NULL,
	neutral REAL NOT NULL,
	negative REAL NOT NULL,
	inverse REAL NOT NULL,
	sample_size INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS news_articles (
	url TEXT NOT NULL,
	symbol TEXT NOT NULL,
	title TEXT NOT NULL,
	source TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMP NOT NULL,
	sentiment REAL NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY (url, symbol)
);

CREATE TABLE IF NOT EXISTS whale_transactions (
	tx_hash TEXT PRIMARY KEY,
	blockchain TEXT NOT NULL,
	symbol TEXT NOT NULL,
	amount REAL NOT NULL,
	amount_usd REAL NOT NULL,
	from_address TEXT NOT NULL,
	from_owner TEXT NOT NULL DEFAULT '',
	from_type TEXT NOT NULL DEFAULT '',
	to_address TEXT NOT NULL,
	to_owner TEXT NOT NULL DEFAULT '',
	to_type TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMP NOT NULL,
	block_number INTEGER NOT NULL DEFAULT 0,
	confirmations INTEGER NOT NULL DEFAULT 0,
	transaction_type TEXT NOT NULL,
	significance TEXT NOT NULL,
	source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS whale_wallets (
	address TEXT NOT NULL,
	blockchain TEXT NOT NULL,
	owner_name TEXT NOT NULL,
	owner_type TEXT NOT NULL,
	last_seen TIMESTAMP,
	total_tx_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (address, blockchain)
);

CREATE INDEX IF NOT EXISTS idx_trading_signals_created_at ON trading_signals (created_at);
CREATE INDEX IF NOT EXISTS idx_liquidation_zones_symbol_detected_at ON liquidation_zones (exchange, symbol, detected_at);
CREATE INDEX IF NOT EXISTS idx_sentiment_snapshots_symbol_created_at ON sentiment_snapshots (symbol, created_at);
CREATE INDEX IF NOT EXISTS idx_news_articles_symbol_published_at ON news_articles (symbol, published_at);
CREATE INDEX IF NOT EXISTS idx_whale_transactions_symbol_occurred_at ON whale_transactions (symbol, occurred_at);
`

// SQLiteStorage - файловое хранилище для локального запуска и тестов
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage открывает (или создает) базу по пути path и применяет схему
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		path = "./data/cryptopulse.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s': %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database at '%s': %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStorage{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage ready", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateSignal атомарно вставляет сигнал и строку его результативности
func (s *SQLiteStorage) CreateSignal(ctx context.Context, signal *models.TradingSignal) (err error) {
	reasons, err := marshalJSON(signal.Reasons)
	if err != nil {
		return err
	}
	perf := seedPerformance(signal)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, insertSignalQuery, signalArgs(signal, reasons)...); err != nil {
		return fmt.Errorf("failed to insert signal %s: %w", signal.ID, err)
	}
	if _, err = tx.ExecContext(ctx, insertPerformanceQuery, performanceArgs(perf)...); err != nil {
		return fmt.Errorf("failed to insert performance for signal %s: %w", signal.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit signal %s: %w", signal.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) RecentSignals(ctx context.Context, since time.Time, limit int) ([]*models.TradingSignal, error) {
	rows, err := s.db.QueryContext(ctx, recentSignalsQuery, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*models.TradingSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, signal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signals: %w", err)
	}
	return signals, nil
}

func (s *SQLiteStorage) UpdatePerformance(ctx context.Context, perf *models.SignalPerformance) error {
	result, err := s.db.ExecContext(ctx, updatePerformanceQuery, updatePerformanceArgs(perf)...)
	if err != nil {
		return fmt.Errorf("failed to update performance for signal %s: %w", perf.SignalID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for signal %s: %w", perf.SignalID, err)
	}
	if affected == 0 {
		return fmt.Errorf("performance for signal %s: %w", perf.SignalID, models.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) SaveLiquidationZone(ctx context.Context, zone models.LiquidationZone) error {
	args, err := zoneArgs(zone)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, insertZoneQuery, args...); err != nil {
		return fmt.Errorf("failed to insert liquidation zone for %s: %w", zone.Symbol, err)
	}
	return nil
}

func (s *SQLiteStorage) SaveSentiment(ctx context.Context, snapshot *models.SentimentSnapshot) error {
	if _, err := s.db.ExecContext(ctx, insertSentimentQuery, sentimentArgs(snapshot)...); err != nil {
		return fmt.Errorf("failed to insert sentiment for %s: %w", snapshot.Symbol, err)
	}
	return nil
}

func (s *SQLiteStorage) LatestSentiment(ctx context.Context, symbol string, since time.Time) (*models.SentimentSnapshot, error) {
	snapshot, err := scanSentiment(s.db.QueryRowContext(ctx, latestSentimentQuery, symbol, since.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query sentiment for %s: %w", symbol, err)
	}
	return snapshot, nil
}

func (s *SQLiteStorage) UpsertNews(ctx context.Context, article *models.NewsArticle) error {
	if _, err := s.db.ExecContext(ctx, upsertNewsQuery, newsArgs(article)...); err != nil {
		return fmt.Errorf("failed to upsert news %s: %w", article.URL, err)
	}
	return nil
}

func (s *SQLiteStorage) RecentNews(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.NewsArticle, error) {
	rows, err := s.db.QueryContext(ctx, recentNewsQuery, symbol, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query news for %s: %w", symbol, err)
	}
	defer rows.Close()

	var articles []*models.NewsArticle
	for rows.Next() {
		article, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news: %w", err)
	}
	return articles, nil
}

func (s *SQLiteStorage) WhaleTransactionExists(ctx context.Context, txHash string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, whaleExistsQuery, txHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check whale transaction %s: %w", txHash, err)
	}
	return exists, nil
}

func (s *SQLiteStorage) SaveWhaleTransaction(ctx context.Context, tx *models.WhaleTransaction) (bool, error) {
	result, err := s.db.ExecContext(ctx, insertWhaleQuery, whaleArgs(tx)...)
	if err != nil {
		return false, fmt.Errorf("failed to insert whale transaction %s: %w", tx.TxHash, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for whale transaction %s: %w", tx.TxHash, err)
	}
	return affected > 0, nil
}

func (s *SQLiteStorage) RecentWhaleTransactions(ctx context.Context, symbol string, since time.Time) ([]*models.WhaleTransaction, error) {
	rows, err := s.db.QueryContext(ctx, recentWhaleQuery, symbol, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query whale transactions for %s: %w", symbol, err)
	}
	defer rows.Close()

	var txs []*models.WhaleTransaction
	for rows.Next() {
		tx, err := scanWhale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan whale transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate whale transactions: %w", err)
	}
	return txs, nil
}

func (s *SQLiteStorage) UpsertWallet(ctx context.Context, wallet models.WhaleWallet) error {
	if _, err := s.db.ExecContext(ctx, upsertWalletQuery, walletArgs(wallet)...); err != nil {
		return fmt.Errorf("failed to upsert wallet %s: %w", wallet.Address, err)
	}
	return nil
}

func (s *SQLiteStorage) FindWallet(ctx context.Context, address, blockchain string) (*models.WhaleWallet, error) {
	wallet, err := scanWallet(s.db.QueryRowContext(ctx, findWalletQuery, address, blockchain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query wallet %s: %w", address, err)
	}
	return wallet, nil
}

func (s *SQLiteStorage) TouchWallet(ctx context.Context, address, blockchain string, seen time.Time) error {
	if _, err := s.db.ExecContext(ctx, touchWalletQuery, seen.UTC(), address, blockchain); err != nil {
		return fmt.Errorf("failed to touch wallet %s: %w", address, err)
	}
	return nil
}

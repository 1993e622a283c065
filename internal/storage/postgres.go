package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

var postgresSchema = []string{
	`create table if not exists trading_signals (
		id text primary key,
		exchange text not null,
		symbol text not null,
		timeframe text not null,
		signal_type text not null,
		confidence double precision not null,
		technical_confidence double precision not null,
		price double precision not null,
		reasons jsonb not null default '[]'::jsonb,
		sentiment_score double precision null,
		inverse_sentiment double precision null,
		news_score double precision null,
		sentiment_weight double precision null,
		news_weight double precision null,
		created_at timestamptz not null
	);`,
	`create table if not exists signal_performance (
		signal_id text primary key references trading_signals(id) on delete cascade,
		current_price double precision not null default 0,
		current_pnl double precision not null default 0,
		highest_price double precision not null,
		lowest_price double precision not null,
		week_end_price double precision null,
		price_change double precision null,
		direction_correct boolean null,
		accuracy_score double precision null,
		performance_tier text null,
		last_updated timestamptz not null,
		tracking_ended timestamptz null
	);`,
	`create table if not exists liquidation_zones (
		id bigserial primary key,
		exchange text not null,
		symbol text not null,
		price double precision not null,
		side text not null,
		estimated_liquidity double precision not null,
		confidence double precision not null,
		reasoning jsonb not null,
		suggestion text not null,
		stop_loss_1 double precision not null,
		stop_loss_2 double precision not null,
		take_profit_1 double precision not null,
		take_profit_2 double precision not null,
		heatmap jsonb not null,
		detected_at timestamptz not null
	);`,
	`create table if not exists sentiment_snapshots (
		id bigserial primary key,
		symbol text not null,
		source text not null,
		compound double precision not null,
		positive double precision not null,
		neutral double precision not null,
		negative double precision not null,
		inverse double precision not null,
		sample_size int not null,
		created_at timestamptz not null
	);`,
	`create table if not exists news_articles (
		url text not null,
		symbol text not null,
		title text not null,
		source text not null,
		summary text not null default '',
		published_at timestamptz not null,
		sentiment double precision not null,
		score double precision not null,
		primary key (url, symbol)
	);`,
	`create table if not exists whale_transactions (
		tx_hash text primary key,
		blockchain text not null,
		symbol text not null,
		amount double precision not null,
		amount_usd double precision not null,
		from_address text not null,
		from_owner text not null default '',
		from_type text not null default '',
		to_address text not null,
		to_owner text not null default '',
		to_type text not null default '',
		occurred_at timestamptz not null,
		block_number bigint not null default 0,
		confirmations bigint not null default 0,
		transaction_type text not null,
		significance text not null,
		source text not null
	);`,
	`create table if not exists whale_wallets (
		address text not null,
		blockchain text not null,
		owner_name text not null,
		owner_type text not null,
		last_seen timestamptz null,
		total_tx_count int not null default 0,
		primary key (address, blockchain)
	);`,
	`create index if not exists trading_signals_created_at_idx on trading_signals(created_at desc);`,
	`create index if not exists liquidation_zones_symbol_detected_at_idx on liquidation_zones(exchange, symbol, detected_at desc);`,
	`create index if not exists sentiment_snapshots_symbol_created_at_idx on sentiment_snapshots(symbol, created_at desc);`,
	`create index if not exists news_articles_symbol_published_at_idx on news_articles(symbol, published_at desc);`,
	`create index if not exists whale_transactions_symbol_occurred_at_idx on whale_transactions(symbol, occurred_at desc);`,
}

// PostgresStorage - боевое реляционное хранилище
type PostgresStorage struct {
	tx *TxManager
}

// NewPool создает пул pgx по DSN с заданным лимитом соединений
func NewPool(ctx context.Context, cfg config.StorageConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

func NewPostgresStorage(ctx context.Context, cfg config.StorageConfig) (*PostgresStorage, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("PostgreSQL storage ready", zap.Int32("max_conns", pool.Config().MaxConns))
	return &PostgresStorage{tx: NewTxManager(pool)}, nil
}

// Migrate создает таблицы, если их нет
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	s.tx.Close()
	return nil
}

func (s *PostgresStorage) CreateSignal(ctx context.Context, signal *models.TradingSignal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("PostgresStorage.CreateSignal: %w", err)
		}
	}()

	reasons, err := marshalJSON(signal.Reasons)
	if err != nil {
		return err
	}
	perf := seedPerformance(signal)

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx Transaction) error {
		if _, err := tx.Exec(ctxTx, rebind(insertSignalQuery), signalArgs(signal, reasons)...); err != nil {
			return err
		}
		_, err := tx.Exec(ctxTx, rebind(insertPerformanceQuery), performanceArgs(perf)...)
		return err
	})
}

func (s *PostgresStorage) RecentSignals(ctx context.Context, since time.Time, limit int) ([]*models.TradingSignal, error) {
	rows, err := s.tx.Conn().Query(ctx, rebind(recentSignalsQuery), since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("PostgresStorage.RecentSignals: %w", err)
	}
	defer rows.Close()

	var signals []*models.TradingSignal
	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("PostgresStorage.RecentSignals: scan: %w", err)
		}
		signals = append(signals, signal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresStorage.RecentSignals: %w", err)
	}
	return signals, nil
}

func (s *PostgresStorage) UpdatePerformance(ctx context.Context, perf *models.SignalPerformance) error {
	tag, err := s.tx.Conn().Exec(ctx, rebind(updatePerformanceQuery), updatePerformanceArgs(perf)...)
	if err != nil {
		return fmt.Errorf("PostgresStorage.UpdatePerformance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("performance for signal %s: %w", perf.SignalID, models.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) SaveLiquidationZone(ctx context.Context, zone models.LiquidationZone) error {
	args, err := zoneArgs(zone)
	if err != nil {
		return err
	}
	if _, err := s.tx.Conn().Exec(ctx, rebind(insertZoneQuery), args...); err != nil {
		return fmt.Errorf("PostgresStorage.SaveLiquidationZone: %w", err)
	}
	return nil
}

func (s *PostgresStorage) SaveSentiment(ctx context.Context, snapshot *models.SentimentSnapshot) error {
	if _, err := s.tx.Conn().Exec(ctx, rebind(insertSentimentQuery), sentimentArgs(snapshot)...); err != nil {
		return fmt.Errorf("PostgresStorage.SaveSentiment: %w", err)
	}
	return nil
}

func (s *PostgresStorage) LatestSentiment(ctx context.Context, symbol string, since time.Time) (*models.SentimentSnapshot, error) {
	snapshot, err := scanSentiment(s.tx.Conn().QueryRow(ctx, rebind(latestSentimentQuery), symbol, since.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("PostgresStorage.LatestSentiment: %w", err)
	}
	return snapshot, nil
}

func (s *PostgresStorage) UpsertNews(ctx context.Context, article *models.NewsArticle) error {
	if _, err := s.tx.Conn().Exec(ctx, rebind(upsertNewsQuery), newsArgs(article)...); err != nil {
		return fmt.Errorf("PostgresStorage.UpsertNews: %w", err)
	}
	return nil
}

func (s *PostgresStorage) RecentNews(ctx context.Context, symbol string, since time.Time, limit int) ([]*models.NewsArticle, error) {
	rows, err := s.tx.Conn().Query(ctx, rebind(recentNewsQuery), symbol, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("PostgresStorage.RecentNews: %w", err)
	}
	defer rows.Close()

	var articles []*models.NewsArticle
	for rows.Next() {
		article, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("PostgresStorage.RecentNews: scan: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresStorage.RecentNews: %w", err)
	}
	return articles, nil
}

func (s *PostgresStorage) WhaleTransactionExists(ctx context.Context, txHash string) (bool, error) {
	var exists bool
	if err := s.tx.Conn().QueryRow(ctx, rebind(whaleExistsQuery), txHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("PostgresStorage.WhaleTransactionExists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStorage) SaveWhaleTransaction(ctx context.Context, tx *models.WhaleTransaction) (bool, error) {
	tag, err := s.tx.Conn().Exec(ctx, rebind(insertWhaleQuery), whaleArgs(tx)...)
	if err != nil {
		return false, fmt.Errorf("PostgresStorage.SaveWhaleTransaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStorage) RecentWhaleTransactions(ctx context.Context, symbol string, since time.Time) ([]*models.WhaleTransaction, error) {
	rows, err := s.tx.Conn().Query(ctx, rebind(recentWhaleQuery), symbol, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("PostgresStorage.RecentWhaleTransactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.WhaleTransaction
	for rows.Next() {
		tx, err := scanWhale(rows)
		if err != nil {
			return nil, fmt.Errorf("PostgresStorage.RecentWhaleTransactions: scan: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresStorage.RecentWhaleTransactions: %w", err)
	}
	return txs, nil
}

func (s *PostgresStorage) UpsertWallet(ctx context.Context, wallet models.WhaleWallet) error {
	if _, err := s.tx.Conn().Exec(ctx, rebind(upsertWalletQuery), walletArgs(wallet)...); err != nil {
		return fmt.Errorf("PostgresStorage.UpsertWallet: %w", err)
	}
	return nil
}

func (s *PostgresStorage) FindWallet(ctx context.Context, address, blockchain string) (*models.WhaleWallet, error) {
	wallet, err := scanWallet(s.tx.Conn().QueryRow(ctx, rebind(findWalletQuery), address, blockchain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("PostgresStorage.FindWallet: %w", err)
	}
	return wallet, nil
}

func (s *PostgresStorage) TouchWallet(ctx context.Context, address, blockchain string, seen time.Time) error {
	if _, err := s.tx.Conn().Exec(ctx, rebind(touchWalletQuery), seen.UTC(), address, blockchain); err != nil {
		return fmt.Errorf("PostgresStorage.TouchWallet: %w", err)
	}
	return nil
}

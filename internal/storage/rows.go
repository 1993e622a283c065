package storage

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/skalibog/cryptopulse/pkg/models"
)

// rowScanner подходит для *sql.Row, *sql.Rows, pgx.Row и pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const signalColumns = `s.id, s.exchange, s.symbol, s.timeframe, s.signal_type, s.confidence, s.technical_confidence,
	s.price, s.reasons, s.sentiment_score, s.inverse_sentiment, s.news_score, s.sentiment_weight, s.news_weight,
	s.created_at, p.signal_id, p.current_price, p.current_pnl, p.highest_price, p.lowest_price, p.week_end_price,
	p.price_change, p.direction_correct, p.accuracy_score, p.performance_tier, p.last_updated, p.tracking_ended`

const recentSignalsQuery = `
	SELECT ` + signalColumns + `
	FROM trading_signals s
	LEFT JOIN signal_performance p ON p.signal_id = s.id
	WHERE s.created_at >= ?
	ORDER BY s.created_at DESC
	LIMIT ?`

const insertSignalQuery = `
	INSERT INTO trading_signals (id, exchange, symbol, timeframe, signal_type, confidence, technical_confidence,
		price, reasons, sentiment_score, inverse_sentiment, news_score, sentiment_weight, news_weight, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertPerformanceQuery = `
	INSERT INTO signal_performance (signal_id, current_price, current_pnl, highest_price, lowest_price,
		week_end_price, price_change, direction_correct, accuracy_score, performance_tier, last_updated, tracking_ended)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updatePerformanceQuery = `
	UPDATE signal_performance
	SET current_price = ?, current_pnl = ?, highest_price = ?, lowest_price = ?, week_end_price = ?,
	    price_change = ?, direction_correct = ?, accuracy_score = ?, performance_tier = ?, last_updated = ?,
	    tracking_ended = ?
	WHERE signal_id = ?`

const insertZoneQuery = `
	INSERT INTO liquidation_zones (exchange, symbol, price, side, estimated_liquidity, confidence, reasoning,
		suggestion, stop_loss_1, stop_loss_2, take_profit_1, take_profit_2, heatmap, detected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertSentimentQuery = `
	INSERT INTO sentiment_snapshots (symbol, source, compound, positive, neutral, negative, inverse, sample_size, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const latestSentimentQuery = `
	SELECT symbol, source, compound, positive, neutral, negative, inverse, sample_size, created_at
	FROM sentiment_snapshots
	WHERE symbol = ? AND created_at >= ?
	ORDER BY created_at DESC
	LIMIT 1`

const upsertNewsQuery = `
	INSERT INTO news_articles (url, symbol, title, source, summary, published_at, sentiment, score)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (url, symbol) DO UPDATE SET
		title = excluded.title,
		source = excluded.source,
		summary = excluded.summary,
		published_at = excluded.published_at,
		sentiment = excluded.sentiment,
		score = excluded.score`

const recentNewsQuery = `
	SELECT url, symbol, title, source, summary, published_at, sentiment, score
	FROM news_articles
	WHERE symbol = ? AND published_at >= ?
	ORDER BY score DESC, published_at DESC
	LIMIT ?`

const whaleColumns = `tx_hash, blockchain, symbol, amount, amount_usd, from_address, from_owner, from_type,
	to_address, to_owner, to_type, occurred_at, block_number, confirmations, transaction_type, significance, source`

const whaleExistsQuery = `SELECT EXISTS (SELECT 1 FROM whale_transactions WHERE tx_hash = ?)`

const insertWhaleQuery = `
	INSERT INTO whale_transactions (` + whaleColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tx_hash) DO NOTHING`

const recentWhaleQuery = `
	SELECT ` + whaleColumns + `
	FROM whale_transactions
	WHERE symbol = ? AND occurred_at >= ?
	ORDER BY occurred_at DESC`

const upsertWalletQuery = `
	INSERT INTO whale_wallets (address, blockchain, owner_name, owner_type)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (address, blockchain) DO UPDATE SET
		owner_name = excluded.owner_name,
		owner_type = excluded.owner_type`

const findWalletQuery = `
	SELECT address, blockchain, owner_name, owner_type, last_seen, total_tx_count
	FROM whale_wallets
	WHERE address = ? AND blockchain = ?`

const touchWalletQuery = `
	UPDATE whale_wallets
	SET last_seen = ?, total_tx_count = total_tx_count + 1
	WHERE address = ? AND blockchain = ?`

// rebind заменяет плейсхолдеры ? на $n для PostgreSQL
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func signalArgs(signal *models.TradingSignal, reasons []byte) []any {
	return []any{
		signal.ID, signal.Exchange, signal.Symbol, signal.Timeframe, string(signal.SignalType), signal.Confidence,
		signal.TechnicalConfidence, signal.Price, string(reasons), signal.SentimentScore, signal.InverseSentiment,
		signal.NewsScore, signal.SentimentWeight, signal.NewsWeight, signal.Timestamp.UTC(),
	}
}

func performanceArgs(p *models.SignalPerformance) []any {
	return []any{
		p.SignalID, p.CurrentPrice, p.CurrentPnL, p.HighestPrice, p.LowestPrice, p.WeekEndPrice, p.PriceChange,
		p.DirectionCorrect, p.AccuracyScore, tierString(p.PerformanceTier), p.LastUpdated.UTC(), utcPtr(p.TrackingEnded),
	}
}

func updatePerformanceArgs(p *models.SignalPerformance) []any {
	return []any{
		p.CurrentPrice, p.CurrentPnL, p.HighestPrice, p.LowestPrice, p.WeekEndPrice, p.PriceChange,
		p.DirectionCorrect, p.AccuracyScore, tierString(p.PerformanceTier), p.LastUpdated.UTC(), utcPtr(p.TrackingEnded),
		p.SignalID,
	}
}

func zoneArgs(zone models.LiquidationZone) ([]any, error) {
	reasoning, err := marshalJSON(zone.Reasoning)
	if err != nil {
		return nil, err
	}
	heatmap, err := marshalJSON(zone.Heatmap)
	if err != nil {
		return nil, err
	}
	return []any{
		zone.Exchange, zone.Symbol, zone.Price, string(zone.Side), zone.EstimatedLiquidity, zone.Confidence,
		string(reasoning), string(zone.Suggestion), zone.StopLoss1, zone.StopLoss2, zone.TakeProfit1,
		zone.TakeProfit2, string(heatmap), zone.DetectedAt.UTC(),
	}, nil
}

func sentimentArgs(s *models.SentimentSnapshot) []any {
	r := s.Result
	return []any{s.Symbol, s.Source, r.Compound, r.Positive, r.Neutral, r.Negative, r.Inverse, r.SampleSize, s.CreatedAt.UTC()}
}

func newsArgs(a *models.NewsArticle) []any {
	return []any{a.URL, a.Symbol, a.Title, a.Source, a.Summary, a.PublishedAt.UTC(), a.Sentiment, a.Score}
}

func whaleArgs(tx *models.WhaleTransaction) []any {
	return []any{
		tx.TxHash, tx.Blockchain, tx.Symbol, tx.Amount, tx.AmountUSD, tx.FromAddress, tx.FromOwner, tx.FromType,
		tx.ToAddress, tx.ToOwner, tx.ToType, tx.Timestamp.UTC(), tx.BlockNumber, tx.Confirmations,
		string(tx.TransactionType), string(tx.Significance), tx.Source,
	}
}

func walletArgs(w models.WhaleWallet) []any {
	return []any{w.Address, w.Blockchain, w.OwnerName, w.OwnerType}
}

func scanSignal(row rowScanner) (*models.TradingSignal, error) {
	var (
		s          models.TradingSignal
		signalType string
		reasons    []byte
		sentiment  sql.NullFloat64
		inverse    sql.NullFloat64
		news       sql.NullFloat64
		sentWeight sql.NullFloat64
		newsWeight sql.NullFloat64

		perfID       sql.NullString
		currentPrice sql.NullFloat64
		currentPnL   sql.NullFloat64
		highest      sql.NullFloat64
		lowest       sql.NullFloat64
		weekEnd      sql.NullFloat64
		change       sql.NullFloat64
		correct      sql.NullBool
		accuracy     sql.NullFloat64
		tier         sql.NullString
		lastUpdated  sql.NullTime
		ended        sql.NullTime
	)

	err := row.Scan(
		&s.ID, &s.Exchange, &s.Symbol, &s.Timeframe, &signalType, &s.Confidence, &s.TechnicalConfidence,
		&s.Price, &reasons, &sentiment, &inverse, &news, &sentWeight, &newsWeight, &s.Timestamp,
		&perfID, &currentPrice, &currentPnL, &highest, &lowest, &weekEnd, &change, &correct, &accuracy, &tier,
		&lastUpdated, &ended,
	)
	if err != nil {
		return nil, err
	}

	s.SignalType = models.SignalType(signalType)
	if s.Reasons, err = unmarshalStrings(reasons); err != nil {
		return nil, err
	}
	s.SentimentScore = floatPtr(sentiment)
	s.InverseSentiment = floatPtr(inverse)
	s.NewsScore = floatPtr(news)
	s.SentimentWeight = floatPtr(sentWeight)
	s.NewsWeight = floatPtr(newsWeight)

	if perfID.Valid {
		s.Performance = &models.SignalPerformance{
			SignalID:         perfID.String,
			CurrentPrice:     currentPrice.Float64,
			CurrentPnL:       currentPnL.Float64,
			HighestPrice:     highest.Float64,
			LowestPrice:      lowest.Float64,
			WeekEndPrice:     floatPtr(weekEnd),
			PriceChange:      floatPtr(change),
			DirectionCorrect: boolPtr(correct),
			AccuracyScore:    floatPtr(accuracy),
			PerformanceTier:  tierPtr(stringPtr(tier)),
			LastUpdated:      lastUpdated.Time,
			TrackingEnded:    timePtr(ended),
		}
	}

	return &s, nil
}

func scanSentiment(row rowScanner) (*models.SentimentSnapshot, error) {
	var s models.SentimentSnapshot
	r := &s.Result
	if err := row.Scan(&s.Symbol, &s.Source, &r.Compound, &r.Positive, &r.Neutral, &r.Negative, &r.Inverse,
		&r.SampleSize, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanNews(row rowScanner) (*models.NewsArticle, error) {
	var a models.NewsArticle
	if err := row.Scan(&a.URL, &a.Symbol, &a.Title, &a.Source, &a.Summary, &a.PublishedAt, &a.Sentiment, &a.Score); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanWhale(row rowScanner) (*models.WhaleTransaction, error) {
	var (
		tx           models.WhaleTransaction
		txType       string
		significance string
	)
	if err := row.Scan(&tx.TxHash, &tx.Blockchain, &tx.Symbol, &tx.Amount, &tx.AmountUSD, &tx.FromAddress,
		&tx.FromOwner, &tx.FromType, &tx.ToAddress, &tx.ToOwner, &tx.ToType, &tx.Timestamp, &tx.BlockNumber,
		&tx.Confirmations, &txType, &significance, &tx.Source); err != nil {
		return nil, err
	}
	tx.TransactionType = models.WhaleTxType(txType)
	tx.Significance = models.Significance(significance)
	return &tx, nil
}

func scanWallet(row rowScanner) (*models.WhaleWallet, error) {
	var (
		w        models.WhaleWallet
		lastSeen sql.NullTime
	)
	if err := row.Scan(&w.Address, &w.Blockchain, &w.OwnerName, &w.OwnerType, &lastSeen, &w.TotalTxCount); err != nil {
		return nil, err
	}
	w.LastSeen = timePtr(lastSeen)
	return &w, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/skalibog/cryptopulse/pkg/logger"
)

// LongestIndicatorPeriod — самый длинный период индикаторов (SMA200/EMA200).
// Меньшая история роняет talib, поэтому min_candles не может быть ниже.
const LongestIndicatorPeriod = 200

// Config - полная конфигурация приложения
type Config struct {
	Binance   BinanceConfig   `yaml:"binance"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Market    MarketConfig    `yaml:"market"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	News      NewsConfig      `yaml:"news"`
	Whale     WhaleConfig     `yaml:"whale"`
	Storage   StorageConfig   `yaml:"storage"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	UI        UIConfig        `yaml:"ui"`
	Log       LogConfig       `yaml:"log"`
}

// BinanceConfig - ключи фьючерсного API Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
}

// WatchlistConfig - пары для анализа и мониторинга
type WatchlistConfig struct {
	Exchanges []string `yaml:"exchanges"`
	Symbols   []string `yaml:"symbols"`
	Timeframe string   `yaml:"timeframe"`
}

// MarketConfig - настройки поставщика рыночных данных
type MarketConfig struct {
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	PriceCacheTTLSeconds  int `yaml:"price_cache_ttl_seconds"`
	CandleLimit           int `yaml:"candle_limit"`
}

type AnalysisConfig struct {
	IntervalSeconds int               `yaml:"interval_seconds"`
	Technical       TechnicalConfig   `yaml:"technical"`
	Fusion          FusionConfig      `yaml:"fusion"`
	Liquidation     LiquidationConfig `yaml:"liquidation"`
}

// TechnicalConfig - периоды индикаторов
type TechnicalConfig struct {
	MinCandles       int `yaml:"min_candles"`
	RSIPeriod        int `yaml:"rsi_period"`
	MACDFast         int `yaml:"macd_fast"`
	MACDSlow         int `yaml:"macd_slow"`
	MACDSignal       int `yaml:"macd_signal"`
	BBPeriod         int `yaml:"bb_period"`
	ADXPeriod        int `yaml:"adx_period"`
	StochasticPeriod int `yaml:"stochastic_period"`
	ATRPeriod        int `yaml:"atr_period"`
}

// FusionConfig - пороги и баллы для оценки сигналов
type FusionConfig struct {
	RSIOversold           float64 `yaml:"rsi_oversold"`
	RSIOverbought         float64 `yaml:"rsi_overbought"`
	RSIPoints             float64 `yaml:"rsi_points"`
	MACDPoints            float64 `yaml:"macd_points"`
	StochasticOversold    float64 `yaml:"stochastic_oversold"`
	StochasticOverbought  float64 `yaml:"stochastic_overbought"`
	StochasticPoints      float64 `yaml:"stochastic_points"`
	ADXTrend              float64 `yaml:"adx_trend"`
	ADXPoints             float64 `yaml:"adx_points"`
	SMAPoints             float64 `yaml:"sma_points"`
	SentimentThreshold    float64 `yaml:"sentiment_threshold"`
	SentimentMultiplier   float64 `yaml:"sentiment_multiplier"`
	ContrarianThreshold   float64 `yaml:"contrarian_threshold"`
	NewsThreshold         float64 `yaml:"news_threshold"`
	NewsMultiplier        float64 `yaml:"news_multiplier"`
	SentimentLookbackMins int     `yaml:"sentiment_lookback_minutes"`
	NewsLookbackHours     int     `yaml:"news_lookback_hours"`
	NewsLimit             int     `yaml:"news_limit"`
	MaxConfidence         float64 `yaml:"max_confidence"`
}

// LiquidationConfig - эвристики поиска зон
type LiquidationConfig struct {
	OrderBookDepth       int     `yaml:"order_book_depth"`
	ImbalanceLow         float64 `yaml:"imbalance_low"`
	ImbalanceHigh        float64 `yaml:"imbalance_high"`
	LongBookFactor       float64 `yaml:"long_book_factor"`
	ShortBookFactor      float64 `yaml:"short_book_factor"`
	BookLiquidityFactor  float64 `yaml:"book_liquidity_factor"`
	FundingExtreme       float64 `yaml:"funding_extreme"`
	FundingSqueeze       float64 `yaml:"funding_squeeze"`
	LongFundingFactor    float64 `yaml:"long_funding_factor"`
	ShortFundingFactor   float64 `yaml:"short_funding_factor"`
	FundingLiquidityMult float64 `yaml:"funding_liquidity_multiplier"`
	OrderBookPoints      float64 `yaml:"order_book_points"`
	FundingPoints        float64 `yaml:"funding_points"`
	OpenInterestPoints   float64 `yaml:"open_interest_points"`
	MinConfidence        float64 `yaml:"min_confidence"`
	StrongConfidence     float64 `yaml:"strong_confidence"`
	NearDistancePct      float64 `yaml:"near_distance_pct"`
	MergeThresholdPct    float64 `yaml:"merge_threshold_pct"`
	HeatmapPoints        int     `yaml:"heatmap_points"`
	HeatmapRangePct      float64 `yaml:"heatmap_range_pct"`
	AlertMaxDistancePct  float64 `yaml:"alert_max_distance_pct"`
	AlertMinConfidence   float64 `yaml:"alert_min_confidence"`
}

// MonitorConfig - настройки цикла наблюдения за ликвидациями
type MonitorConfig struct {
	IntervalSeconds   int `yaml:"interval_seconds"`
	JitterSeconds     int `yaml:"jitter_seconds"`
	MaxConcurrency    int `yaml:"max_concurrency"`
	MaxBackoffSeconds int `yaml:"max_backoff_seconds"`
}

type TrackingConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
	LookbackDays    int  `yaml:"lookback_days"`
	BatchSize       int  `yaml:"batch_size"`
	EvaluationDays  int  `yaml:"evaluation_days"`
}

// NewsConfig - RSS-источники и монеты, к которым относим заголовки
type NewsConfig struct {
	Enabled         bool         `yaml:"enabled"`
	IntervalSeconds int          `yaml:"interval_seconds"`
	Sources         []FeedSource `yaml:"sources"`
	Coins           []CoinAlias  `yaml:"coins"`
	SentimentHours  int          `yaml:"sentiment_hours"`
}

// WhaleConfig управляет мониторингом крупных ончейн-переводов.
type WhaleConfig struct {
	Enabled               bool           `yaml:"enabled"`
	IntervalSeconds       int            `yaml:"interval_seconds"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
	MinTransactionUSD     float64        `yaml:"min_transaction_usd"`
	MediumUSD             float64        `yaml:"medium_usd"`
	HighUSD               float64        `yaml:"high_usd"`
	CriticalUSD           float64        `yaml:"critical_usd"`
	PatternHours          int            `yaml:"pattern_hours"`
	PriceExchange         string         `yaml:"price_exchange"`
	QuoteAsset            string         `yaml:"quote_asset"`
	Bitcoin               ChainConfig    `yaml:"bitcoin"`
	Ethereum              ChainConfig    `yaml:"ethereum"`
	Wallets               []WalletConfig `yaml:"wallets"`
}

type ChainConfig struct {
	Enabled   bool    `yaml:"enabled"`
	APIURL    string  `yaml:"api_url"`
	MinAmount float64 `yaml:"min_amount"`
	Blocks    int     `yaml:"blocks"`
}

// WalletConfig — известный кошелёк; type "exchange" делает перевод биржевым.
type WalletConfig struct {
	Address    string `yaml:"address"`
	Blockchain string `yaml:"blockchain"`
	Owner      string `yaml:"owner"`
	Type       string `yaml:"type"`
}

type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type CoinAlias struct {
	Symbol string   `yaml:"symbol"`
	Names  []string `yaml:"names"`
}

// StorageConfig выбирает реляционный драйвер и необязательный InfluxDB
type StorageConfig struct {
	Driver     string       `yaml:"driver"`
	DSN        string       `yaml:"dsn"`
	SQLitePath string       `yaml:"sqlite_path"`
	MaxConns   int32        `yaml:"max_conns"`
	Influx     InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

type AlertsConfig struct {
	ListenAddr string         `yaml:"listen_addr"`
	MinRisk    string         `yaml:"min_push_risk"`
	Telegram   TelegramConfig `yaml:"telegram"`
	FCM        FCMConfig      `yaml:"fcm"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type FCMConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	Topic           string `yaml:"topic"`
}

// UIConfig - настройки терминального дашборда
type UIConfig struct {
	Enabled     bool `yaml:"enabled"`
	RefreshRate int  `yaml:"refresh_rate_ms"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Console  bool   `yaml:"console"`
}

// Options переводит секцию в опции логгера
func (c LogConfig) Options(truncate bool) logger.Options {
	return logger.Options{
		Level:    c.Level,
		File:     c.File,
		JSONFile: c.JSONFile,
		Console:  c.Console,
		Truncate: truncate,
	}
}

// Load читает YAML поверх значений по умолчанию, применяет .env и переменные окружения и проверяет результат
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", zap.Error(err))
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("config loaded", zap.String("path", path), zap.Strings("symbols", cfg.Watchlist.Symbols))
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Binance.APIKey, "BINANCE_API_KEY")
	setString(&cfg.Binance.APISecret, "BINANCE_API_SECRET")
	setString(&cfg.Storage.DSN, "DATABASE_DSN")
	setString(&cfg.Storage.Influx.Token, "INFLUX_TOKEN")
	setString(&cfg.Alerts.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&cfg.Alerts.FCM.CredentialsPath, "FIREBASE_CREDENTIALS_PATH")

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Alerts.Telegram.ChatID = id
		} else {
			logger.Warn("ignoring malformed TELEGRAM_CHAT_ID", zap.String("value", v))
		}
	}
}

// Validate проверяет поля, без которых сервис не запустится
func (c *Config) Validate() error {
	var errs []error

	if len(c.Watchlist.Symbols) == 0 {
		errs = append(errs, errors.New("watchlist.symbols is empty"))
	}
	if len(c.Watchlist.Exchanges) == 0 {
		errs = append(errs, errors.New("watchlist.exchanges is empty"))
	}
	if c.Analysis.Technical.MinCandles < LongestIndicatorPeriod {
		errs = append(errs, fmt.Errorf("analysis.technical.min_candles (%d) must be at least %d",
			c.Analysis.Technical.MinCandles, LongestIndicatorPeriod))
	}
	if c.Analysis.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("analysis.interval_seconds must be positive"))
	}
	if c.Market.CandleLimit < c.Analysis.Technical.MinCandles {
		errs = append(errs, fmt.Errorf("market.candle_limit (%d) is below analysis.technical.min_candles (%d)",
			c.Market.CandleLimit, c.Analysis.Technical.MinCandles))
	}
	if c.Monitor.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("monitor.interval_seconds must be positive"))
	}
	if c.Tracking.Enabled && c.Tracking.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("tracking.interval_seconds must be positive"))
	}
	if c.News.Enabled && c.News.IntervalSeconds <= 0 {
		errs = append(errs, errors.New("news.interval_seconds must be positive"))
	}
	if wh := c.Whale; wh.Enabled {
		if wh.IntervalSeconds <= 0 {
			errs = append(errs, errors.New("whale.interval_seconds must be positive"))
		}
		if !(wh.MinTransactionUSD <= wh.MediumUSD && wh.MediumUSD <= wh.HighUSD && wh.HighUSD <= wh.CriticalUSD) {
			errs = append(errs, errors.New("whale thresholds must satisfy min_transaction_usd <= medium_usd <= high_usd <= critical_usd"))
		}
	}
	lq := c.Analysis.Liquidation
	if lq.ImbalanceLow >= lq.ImbalanceHigh {
		errs = append(errs, errors.New("analysis.liquidation.imbalance_low must be below imbalance_high"))
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

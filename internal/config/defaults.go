package config

// Default возвращает конфигурацию для Binance с локальной базой SQLite
func Default() *Config {
	return &Config{
		Watchlist: WatchlistConfig{
			Exchanges: []string{"BINANCE"},
			Symbols:   []string{"BTC/USDT", "ETH/USDT"},
			Timeframe: "1h",
		},
		Market: MarketConfig{
			RequestTimeoutSeconds: 10,
			PriceCacheTTLSeconds:  60,
			CandleLimit:           500,
		},
		Analysis: AnalysisConfig{
			IntervalSeconds: 300,
			Technical:       DefaultTechnical(),
			Fusion:          DefaultFusion(),
			Liquidation:     DefaultLiquidation(),
		},
		Monitor: MonitorConfig{
			IntervalSeconds:   30,
			JitterSeconds:     3,
			MaxConcurrency:    4,
			MaxBackoffSeconds: 300,
		},
		Tracking: TrackingConfig{
			Enabled:         true,
			IntervalSeconds: 300,
			LookbackDays:    30,
			BatchSize:       100,
			EvaluationDays:  7,
		},
		News: NewsConfig{
			Enabled:         true,
			IntervalSeconds: 1800,
			SentimentHours:  24,
			Sources: []FeedSource{
				{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/"},
				{Name: "Cointelegraph", URL: "https://cointelegraph.com/rss"},
			},
			Coins: []CoinAlias{
				{Symbol: "BTC", Names: []string{"Bitcoin"}},
				{Symbol: "ETH", Names: []string{"Ethereum", "Ether"}},
				{Symbol: "SOL", Names: []string{"Solana"}},
				{Symbol: "XRP", Names: []string{"Ripple"}},
				{Symbol: "DOGE", Names: []string{"Dogecoin"}},
				{Symbol: "ADA", Names: []string{"Cardano"}},
			},
		},
		Whale: DefaultWhale(),
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "./data/cryptopulse.db",
			MaxConns:   10,
		},
		Alerts: AlertsConfig{
			ListenAddr: ":8080",
			MinRisk:    "HIGH",
			FCM:        FCMConfig{Topic: "liquidation_alerts"},
		},
		UI: UIConfig{
			Enabled:     true,
			RefreshRate: 1000,
		},
		Log: LogConfig{
			Level:    "info",
			File:     "app.log",
			JSONFile: "app.json.log",
		},
	}
}

func DefaultTechnical() TechnicalConfig {
	return TechnicalConfig{
		MinCandles:       200,
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		BBPeriod:         20,
		ADXPeriod:        14,
		StochasticPeriod: 14,
		ATRPeriod:        14,
	}
}

func DefaultFusion() FusionConfig {
	return FusionConfig{
		RSIOversold:           30,
		RSIOverbought:         70,
		RSIPoints:             25,
		MACDPoints:            20,
		StochasticOversold:    20,
		StochasticOverbought:  80,
		StochasticPoints:      15,
		ADXTrend:              25,
		ADXPoints:             10,
		SMAPoints:             10,
		SentimentThreshold:    0.3,
		SentimentMultiplier:   15,
		ContrarianThreshold:   0.1,
		NewsThreshold:         0.2,
		NewsMultiplier:        0.15,
		SentimentLookbackMins: 60,
		NewsLookbackHours:     24,
		NewsLimit:             5,
		MaxConfidence:         100,
	}
}

func DefaultLiquidation() LiquidationConfig {
	return LiquidationConfig{
		OrderBookDepth:       100,
		ImbalanceLow:         0.4,
		ImbalanceHigh:        0.6,
		LongBookFactor:       0.98,
		ShortBookFactor:      1.02,
		BookLiquidityFactor:  0.1,
		FundingExtreme:       0.001,
		FundingSqueeze:       0.002,
		LongFundingFactor:    0.95,
		ShortFundingFactor:   1.05,
		FundingLiquidityMult: 1_000_000,
		OrderBookPoints:      30,
		FundingPoints:        40,
		OpenInterestPoints:   20,
		MinConfidence:        40,
		StrongConfidence:     60,
		NearDistancePct:      2,
		MergeThresholdPct:    2,
		HeatmapPoints:        20,
		HeatmapRangePct:      0.1,
		AlertMaxDistancePct:  5,
		AlertMinConfidence:   50,
	}
}

// DefaultWhale следит за BTC и ETH переводами от $5M.
func DefaultWhale() WhaleConfig {
	return WhaleConfig{
		Enabled:               true,
		IntervalSeconds:       60,
		RequestTimeoutSeconds: 10,
		MinTransactionUSD:     5_000_000,
		MediumUSD:             10_000_000,
		HighUSD:               20_000_000,
		CriticalUSD:           50_000_000,
		PatternHours:          24,
		PriceExchange:         "BINANCE",
		QuoteAsset:            "USDT",
		Bitcoin: ChainConfig{
			Enabled:   true,
			APIURL:    "https://blockchain.info",
			MinAmount: 100,
			Blocks:    3,
		},
		Ethereum: ChainConfig{
			Enabled:   true,
			APIURL:    "https://api.blockcypher.com",
			MinAmount: 1000,
			Blocks:    2,
		},
	}
}

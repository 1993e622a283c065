package tracking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/internal/storage"
	"github.com/skalibog/cryptopulse/pkg/logger"
)

type PriceSource interface {
	Price(ctx context.Context, exchange, symbol string) (float64, error)
}

// Tracker периодически переоценивает недавние сигналы по рынку
type Tracker struct {
	config  config.TrackingConfig
	signals storage.SignalRepository
	prices  PriceSource
	now     func() time.Time
}

func NewTracker(cfg config.TrackingConfig, signals storage.SignalRepository, prices PriceSource) *Tracker {
	return &Tracker{
		config:  cfg,
		signals: signals,
		prices:  prices,
		now:     time.Now,
	}
}

// Sweep обновляет сигналы в окне просмотра. Ошибки по отдельным сигналам логируются и пропускаются
func (t *Tracker) Sweep(ctx context.Context) (Stats, error) {
	now := t.now()
	since := now.AddDate(0, 0, -t.config.LookbackDays)
	evaluation := time.Duration(t.config.EvaluationDays) * 24 * time.Hour

	signals, err := t.signals.RecentSignals(ctx, since, t.config.BatchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("load recent signals: %w", err)
	}

	var updated, finalised int
	for _, signal := range signals {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}

		price, err := t.prices.Price(ctx, signal.Exchange, signal.Symbol)
		if err != nil || price <= 0 {
			logger.Warn("no price for signal tracking",
				zap.String("signal_id", signal.ID),
				zap.String("symbol", signal.Symbol),
				zap.Error(err))
			continue
		}

		wasOpen := signal.Performance == nil || signal.Performance.AccuracyScore == nil
		perf := Update(signal, price, now, evaluation)
		if err := t.signals.UpdatePerformance(ctx, perf); err != nil {
			logger.Error("failed to update signal performance",
				zap.String("signal_id", signal.ID),
				zap.Error(err))
			continue
		}
		signal.Performance = perf
		updated++

		if wasOpen && perf.AccuracyScore != nil {
			finalised++
			logger.Info("signal accuracy calculated",
				zap.String("signal_id", signal.ID),
				zap.String("symbol", signal.Symbol),
				zap.Float64("accuracy", *perf.AccuracyScore),
				zap.String("tier", string(*perf.PerformanceTier)))
		}
	}

	stats := Summarize(signals)
	logger.Info("signal tracking sweep finished",
		zap.Int("signals", len(signals)),
		zap.Int("updated", updated),
		zap.Int("finalised", finalised),
		zap.Float64("average_pnl", stats.AveragePnL))

	return stats, nil
}

// Run - обертка Sweep для планировщика
func (t *Tracker) Run(ctx context.Context) error {
	_, err := t.Sweep(ctx)
	return err
}

package scheduler

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skalibog/cryptopulse/internal/alert"
	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// AlertChecker оценивает риск ликвидаций по одной паре
type AlertChecker interface {
	Check(ctx context.Context, exchange, symbol string) ([]models.LiquidationAlert, error)
}

// Job - периодическая фоновая задача, например трекинг или сбор новостей
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

const fallbackInterval = time.Second

type pair struct {
	exchange string
	symbol   string
}

// Scheduler запускает по циклу мониторинга на пару и зарегистрированные задачи
type Scheduler struct {
	pairs       []pair
	monitor     AlertChecker
	publisher   alert.Publisher
	jobs        []Job
	interval    time.Duration
	jitter      time.Duration
	maxBackoff  time.Duration
	concurrency int
	now         func() time.Time
}

func New(cfg config.MonitorConfig, watchlist config.WatchlistConfig, monitor AlertChecker, publisher alert.Publisher) *Scheduler {
	s := &Scheduler{
		monitor:     monitor,
		publisher:   publisher,
		interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		jitter:      time.Duration(cfg.JitterSeconds) * time.Second,
		maxBackoff:  time.Duration(cfg.MaxBackoffSeconds) * time.Second,
		concurrency: cfg.MaxConcurrency,
		now:         time.Now,
	}
	for _, ex := range watchlist.Exchanges {
		for _, sym := range watchlist.Symbols {
			s.pairs = append(s.pairs, pair{exchange: ex, symbol: sym})
		}
	}
	return s
}

// AddJob регистрирует задачу. Добавлять нужно до Run
func (s *Scheduler) AddJob(job Job) {
	s.jobs = append(s.jobs, job)
}

// Run блокируется до отмены ctx и выхода всех циклов
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, p := range s.pairs {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			s.loop(ctx, "monitor "+p.exchange+":"+p.symbol, s.interval, s.jitter, func(ctx context.Context) error {
				return s.checkPair(ctx, p)
			})
		}(p)
	}

	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job.Name, job.Interval, 0, job.Run)
		}(job)
	}

	logger.Info("scheduler started", zap.Int("pairs", len(s.pairs)), zap.Int("jobs", len(s.jobs)))
	wg.Wait()
	logger.Info("scheduler stopped")
	return nil
}

// RunOnce проверяет каждую пару один раз с ограниченным параллелизмом
func (s *Scheduler) RunOnce(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for _, p := range s.pairs {
		g.Go(func() error {
			return s.checkPair(ctx, p)
		})
	}
	return g.Wait()
}

func (s *Scheduler) checkPair(ctx context.Context, p pair) error {
	alerts, err := s.monitor.Check(ctx, p.exchange, p.symbol)
	if err != nil {
		return err
	}
	if len(alerts) == 0 || s.publisher == nil {
		return nil
	}

	s.publisher.Publish(ctx, models.AlertEvent{
		Exchange:  p.exchange,
		Symbol:    p.symbol,
		Alerts:    alerts,
		Timestamp: s.now(),
	})
	return nil
}

// loop запускает fn сразу, затем каждые interval, с бэкоффом после ошибок
func (s *Scheduler) loop(ctx context.Context, name string, interval, jitter time.Duration, fn func(ctx context.Context) error) {
	// нулевой интервал крутил бы цикл вхолостую
	if interval <= 0 {
		logger.Warn("non-positive task interval, using fallback",
			zap.String("task", name), zap.Duration("interval", interval), zap.Duration("fallback", fallbackInterval))
		interval = fallbackInterval
	}

	b := &backoff.Backoff{
		Min:    interval,
		Max:    max(s.maxBackoff, interval),
		Factor: 2,
		Jitter: true,
	}

	for {
		delay := nextDelay(interval, jitter)
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			delay = b.Duration()
			logger.Warn("scheduled task failed", zap.String("task", name), zap.Duration("retry_in", delay), zap.Error(err))
		} else {
			b.Reset()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// nextDelay spreads interval by up to ±jitter so pairs do not fire in lockstep.
func nextDelay(interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	d := interval + time.Duration(rand.Int64N(int64(2*jitter)+1)) - jitter
	if d < time.Second && interval >= time.Second {
		return time.Second
	}
	if d <= 0 {
		return interval
	}
	return d
}

package liquidation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// ZoneRepository сохраняет зоны, по которым сработал алерт
type ZoneRepository interface {
	SaveLiquidationZone(ctx context.Context, zone models.LiquidationZone) error
}

// AlertRecorder пишет сработавшие алерты во временной ряд
type AlertRecorder interface {
	RecordAlerts(ctx context.Context, alerts []models.LiquidationAlert) error
}

// Monitor превращает найденные зоны в алерты о приближении цены
type Monitor struct {
	config   config.LiquidationConfig
	detector *Detector
	market   MarketData
	zones    ZoneRepository
	recorder AlertRecorder
	now      func() time.Time
}

// NewMonitor создает монитор. zones и recorder необязательны
func NewMonitor(cfg config.LiquidationConfig, market MarketData, zones ZoneRepository, recorder AlertRecorder) *Monitor {
	return &Monitor{
		config:   cfg,
		detector: NewDetector(cfg, market),
		market:   market,
		zones:    zones,
		recorder: recorder,
		now:      time.Now,
	}
}

// Detector возвращает детектор зон
func (m *Monitor) Detector() *Detector {
	return m.detector
}

// Check ищет зоны и возвращает алерты для тех, что близко к текущей цене.
// Без цены алертов и ошибки нет; ошибка только при отмене контекста
func (m *Monitor) Check(ctx context.Context, exchange, symbol string) ([]models.LiquidationAlert, error) {
	zones := m.detector.Detect(ctx, exchange, symbol)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, nil
	}

	ticker, err := m.market.FetchTicker(ctx, exchange, symbol)
	if err != nil || ticker == nil {
		logger.Warn("liquidation check skipped: no current price",
			zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
		return nil, nil
	}

	alerts := m.Evaluate(zones, ticker.LastPrice)

	for _, alert := range alerts {
		if m.zones == nil {
			break
		}
		if err := m.zones.SaveLiquidationZone(ctx, alert.Zone); err != nil {
			logger.Error("failed to save liquidation zone",
				zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
		}
	}

	if m.recorder != nil && len(alerts) > 0 {
		if err := m.recorder.RecordAlerts(ctx, alerts); err != nil {
			logger.Warn("failed to record liquidation alerts", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	return alerts, nil
}

// Evaluate - чистая часть Check
func (m *Monitor) Evaluate(zones []models.LiquidationZone, currentPrice float64) []models.LiquidationAlert {
	var alerts []models.LiquidationAlert
	for _, zone := range zones {
		distance := Distance(zone, currentPrice)
		if distance <= 0 || distance >= m.config.AlertMaxDistancePct || zone.Confidence <= m.config.AlertMinConfidence {
			continue
		}

		alerts = append(alerts, models.LiquidationAlert{
			Exchange:  zone.Exchange,
			Symbol:    zone.Symbol,
			Zone:      zone,
			Distance:  distance,
			RiskLevel: RiskLevelForDistance(distance),
			Message: fmt.Sprintf("Potential %s liquidation zone detected at $%.2f (%.2f%% away). Confidence: %.0f%%",
				zone.Side, zone.Price, distance, zone.Confidence),
			Timestamp: m.now(),
		})
	}
	return alerts
}

// Distance - процент со знаком, который цене нужно пройти до зоны.
// Положительное значение - зона еще впереди
func Distance(zone models.LiquidationZone, currentPrice float64) float64 {
	switch zone.Side {
	case models.SideLong:
		if zone.Price == 0 {
			return 0
		}
		return (currentPrice - zone.Price) / zone.Price * 100
	default:
		if currentPrice == 0 {
			return 0
		}
		return (zone.Price - currentPrice) / currentPrice * 100
	}
}

func RiskLevelForDistance(distance float64) models.RiskLevel {
	switch {
	case distance < 1:
		return models.RiskCritical
	case distance < 2:
		return models.RiskHigh
	case distance < 3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

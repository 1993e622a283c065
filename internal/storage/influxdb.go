package storage

import (
	"context"
	"fmt"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/skalibog/cryptopulse/internal/config"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// InfluxDBStorage пишет сигналы, алерты и настроения как точки временного ряда
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage подключается и проверяет, что сервер жив
func NewInfluxDBStorage(ctx context.Context, cfg config.InfluxConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb connection: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influxdb is not healthy: %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// RecordSignal пишет точку на сигнал с тегами пары и направления
func (s *InfluxDBStorage) RecordSignal(ctx context.Context, signal *models.TradingSignal) error {
	fields := map[string]interface{}{
		"confidence":           signal.Confidence,
		"technical_confidence": signal.TechnicalConfidence,
		"price":                signal.Price,
		"reasons":              strings.Join(signal.Reasons, "; "),
	}
	if signal.SentimentScore != nil {
		fields["sentiment_score"] = *signal.SentimentScore
	}
	if signal.NewsScore != nil {
		fields["news_score"] = *signal.NewsScore
	}

	point := influxdb2.NewPoint(
		"signals",
		map[string]string{
			"exchange":    signal.Exchange,
			"symbol":      signal.Symbol,
			"timeframe":   signal.Timeframe,
			"signal_type": string(signal.SignalType),
		},
		fields,
		signal.Timestamp,
	)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("record signal %s: %w", signal.ID, err)
	}
	return nil
}

// RecordAlerts пишет пачку одним запросом
func (s *InfluxDBStorage) RecordAlerts(ctx context.Context, alerts []models.LiquidationAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(alerts))
	for _, alert := range alerts {
		points = append(points, influxdb2.NewPoint(
			"liquidation_alerts",
			map[string]string{
				"exchange":   alert.Exchange,
				"symbol":     alert.Symbol,
				"side":       string(alert.Zone.Side),
				"risk_level": string(alert.RiskLevel),
			},
			map[string]interface{}{
				"zone_price":          alert.Zone.Price,
				"distance":            alert.Distance,
				"confidence":          alert.Zone.Confidence,
				"estimated_liquidity": alert.Zone.EstimatedLiquidity,
				"suggestion":          string(alert.Zone.Suggestion),
			},
			alert.Timestamp,
		))
	}

	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("record %d alerts: %w", len(alerts), err)
	}
	return nil
}

func (s *InfluxDBStorage) RecordSentiment(ctx context.Context, snapshot *models.SentimentSnapshot) error {
	r := snapshot.Result
	point := influxdb2.NewPoint(
		"sentiment",
		map[string]string{
			"symbol": snapshot.Symbol,
			"source": snapshot.Source,
		},
		map[string]interface{}{
			"compound":    r.Compound,
			"positive":    r.Positive,
			"neutral":     r.Neutral,
			"negative":    r.Negative,
			"inverse":     r.Inverse,
			"sample_size": r.SampleSize,
		},
		snapshot.CreatedAt,
	)

	if err := s.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("record sentiment %s: %w", snapshot.Symbol, err)
	}
	return nil
}

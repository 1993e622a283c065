package alert

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier отправляет уведомления Firebase Cloud Messaging в топик
type PushNotifier struct {
	client messageSender
	topic  string
}

// NewPushNotifier инициализирует Firebase по файлу сервисного аккаунта
func NewPushNotifier(ctx context.Context, credentialsPath, topic string) (*PushNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	logger.Info("Firebase Cloud Messaging initialized", zap.String("topic", topic))
	return &PushNotifier{client: client, topic: topic}, nil
}

func (p *PushNotifier) Name() string { return "fcm" }

// Notify отправляет по пушу на каждый алерт
func (p *PushNotifier) Notify(ctx context.Context, event models.AlertEvent) error {
	for _, a := range event.Alerts {
		if _, err := p.client.Send(ctx, pushMessage(p.topic, a)); err != nil {
			return fmt.Errorf("error sending message: %w", err)
		}
	}
	return nil
}

func pushMessage(topic string, a models.LiquidationAlert) *messaging.Message {
	return &messaging.Message{
		Topic: topic,
		Notification: &messaging.Notification{
			Title: fmt.Sprintf("%s liquidation risk: %s", a.RiskLevel, a.Symbol),
			Body:  a.Message,
		},
		Data: map[string]string{
			"type":       TypeLiquidationAlert,
			"exchange":   a.Exchange,
			"symbol":     a.Symbol,
			"side":       string(a.Zone.Side),
			"zonePrice":  strconv.FormatFloat(a.Zone.Price, 'f', 2, 64),
			"distance":   strconv.FormatFloat(a.Distance, 'f', 2, 64),
			"riskLevel":  string(a.RiskLevel),
			"suggestion": string(a.Zone.Suggestion),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "liquidation_alerts",
				Priority:  messaging.PriorityHigh,
			},
		},
	}
}

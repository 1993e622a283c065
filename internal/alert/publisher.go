package alert

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skalibog/cryptopulse/pkg/logger"
	"github.com/skalibog/cryptopulse/pkg/models"
)

// Publisher доставляет пачку алертов по паре. Ошибки доставки только логируются
type Publisher interface {
	Publish(ctx context.Context, event models.AlertEvent)
}

// Publishers доставляет по очереди каждому получателю
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, event models.AlertEvent) {
	for _, p := range ps {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

// Notifier - внешний канал вроде Telegram или мобильных пушей
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event models.AlertEvent) error
}

// WhaleNotifier — канал, который умеет доставлять и алерты о китах.
type WhaleNotifier interface {
	NotifyWhale(ctx context.Context, event models.WhaleEvent) error
}

var riskRank = map[models.RiskLevel]int{
	models.RiskLow:      1,
	models.RiskMedium:   2,
	models.RiskHigh:     3,
	models.RiskCritical: 4,
}

// ParseRisk переводит значение из конфига в уровень риска, по умолчанию HIGH
func ParseRisk(s string) models.RiskLevel {
	level := models.RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := riskRank[level]; !ok {
		return models.RiskHigh
	}
	return level
}

// AtLeast сообщает, не ниже ли level чем min
func AtLeast(level, min models.RiskLevel) bool {
	return riskRank[level] >= riskRank[min]
}

// FilterByRisk оставляет алерты с риском не ниже min. Если подходящих нет, список пуст
func FilterByRisk(event models.AlertEvent, min models.RiskLevel) models.AlertEvent {
	out := event
	out.Alerts = nil
	for _, a := range event.Alerts {
		if AtLeast(a.RiskLevel, min) {
			out.Alerts = append(out.Alerts, a)
		}
	}
	return out
}

// Fanout рассылает каждую пачку в хаб, а срочные алерты передает в каналы уведомлений
type Fanout struct {
	hub       *Hub
	notifiers []Notifier
	minRisk   models.RiskLevel
}

// NewFanout создает рассыльщик. hub может быть nil
func NewFanout(hub *Hub, minRisk models.RiskLevel, notifiers ...Notifier) *Fanout {
	return &Fanout{
		hub:       hub,
		notifiers: notifiers,
		minRisk:   minRisk,
	}
}

func (f *Fanout) Publish(ctx context.Context, event models.AlertEvent) {
	if len(event.Alerts) == 0 {
		return
	}

	if f.hub != nil {
		f.hub.Broadcast(TypeLiquidationAlert, event)
	}

	urgent := FilterByRisk(event, f.minRisk)
	if len(urgent.Alerts) == 0 {
		return
	}

	for _, n := range f.notifiers {
		if err := n.Notify(ctx, urgent); err != nil {
			logger.Error("alert notification failed",
				zap.String("notifier", n.Name()),
				zap.String("symbol", event.Symbol),
				zap.Error(err))
		}
	}
}

// PublishSignal отправляет свежий сигнал websocket-клиентам
func (f *Fanout) PublishSignal(signal *models.TradingSignal) {
	if f.hub != nil && signal != nil {
		f.hub.Broadcast(TypeSignal, signal)
	}
}

// PublishWhale рассылает значимые переводы клиентам хаба и каналам, поддерживающим WhaleNotifier.
func (f *Fanout) PublishWhale(ctx context.Context, event models.WhaleEvent) {
	if len(event.Alerts) == 0 {
		return
	}

	if f.hub != nil {
		f.hub.Broadcast(TypeWhaleAlert, event)
	}

	for _, n := range f.notifiers {
		wn, ok := n.(WhaleNotifier)
		if !ok {
			continue
		}
		if err := wn.NotifyWhale(ctx, event); err != nil {
			logger.Error("whale notification failed", zap.String("notifier", n.Name()), zap.Error(err))
		}
	}
}

// FormatWhaleAlert — текст для чатов.
func FormatWhaleAlert(a models.WhaleAlert) string {
	return fmt.Sprintf("[%s] %s %s\n%s\n%s",
		strings.ToUpper(string(a.Significance)), a.Symbol, a.TransactionType, a.Interpretation, a.ExplorerURL)
}

// FormatAlert форматирует алерт для чатов
func FormatAlert(a models.LiquidationAlert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s\n", a.RiskLevel, a.Exchange, a.Symbol)
	b.WriteString(a.Message)
	fmt.Fprintf(&b, "\nSuggestion: %s | SL %.2f / %.2f | TP %.2f / %.2f",
		a.Zone.Suggestion, a.Zone.StopLoss1, a.Zone.StopLoss2, a.Zone.TakeProfit1, a.Zone.TakeProfit2)
	return b.String()
}

package alert

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/skalibog/cryptopulse/pkg/models"
)

type telegramSender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// TelegramNotifier отправляет алерты в один чат
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Notify(ctx context.Context, event models.AlertEvent) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	parts := make([]string, 0, len(event.Alerts))
	for _, a := range event.Alerts {
		parts = append(parts, FormatAlert(a))
	}

	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, strings.Join(parts, "\n\n"))); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *TelegramNotifier) NotifyWhale(ctx context.Context, event models.WhaleEvent) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	parts := make([]string, 0, len(event.Alerts))
	for _, a := range event.Alerts {
		parts = append(parts, FormatWhaleAlert(a))
	}

	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, strings.Join(parts, "\n\n"))); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

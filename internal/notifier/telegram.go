package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rifahub/raffle-api/internal/domain"
)

// TelegramNotifier pushes each reservation to the organizer's chat so the
// admin hears about new reservations without refreshing the dashboard.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("tgbotapi.NewBotAPI -> %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
	}, nil
}

func (n *TelegramNotifier) NotifyReservation(_ context.Context, buyer domain.BuyerInfo, numbers []string) error {
	text := fmt.Sprintf(
		"Nova reserva!\nNúmeros: %v\nNome: %v\nWhatsApp: %v",
		strings.Join(numbers, ", "),
		buyer.Name,
		buyer.WhatsApp,
	)

	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("n.bot.Send -> %w", err)
	}

	return nil
}

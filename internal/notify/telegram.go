package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers operator-facing messages (daily study reports, startup
// notices) to a Telegram chat. It is optional infrastructure: the chat flow
// never depends on it.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func New(botToken string, chatID int64) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	return &Notifier{api: api, chatID: chatID}, nil
}

func (n *Notifier) Send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send operator message: %w", err)
	}
	return nil
}

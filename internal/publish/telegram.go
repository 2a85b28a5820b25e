package publish

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"launch-radar/internal/domain"
)

// Sender delivers one formatted message to a destination and returns the
// platform's message identifier.
type Sender interface {
	Send(ctx context.Context, dest domain.Destination, text string) (string, error)
}

// TelegramSender sends HTML messages through the Bot API. Destination IDs
// are numeric chat ids or @channel usernames.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender authenticates the bot token against the API.
func NewTelegramSender(token string) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &TelegramSender{api: api}, nil
}

func (s *TelegramSender) Send(ctx context.Context, dest domain.Destination, text string) (string, error) {
	// The bot api has no context support; honor cancellation between sends.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(dest.ID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(dest.ID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := s.api.Send(msg)
	if err != nil {
		return "", fmt.Errorf("telegram send to %s %s: %w", dest.Class, dest.ID, err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

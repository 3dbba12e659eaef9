package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/content_mon/internal/domain"
)

// telegramMessageLimit is the Bot API cap on a single text message.
const telegramMessageLimit = 4096

// TelegramConfig holds the bot credentials and the guardian's chat.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// telegramBot is the part of tgbotapi.BotAPI the sender uses.
type telegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAlertSender implements domain.AlertSender through a Telegram bot.
// The `to` address is ignored; alerts always go to the configured chat.
type TelegramAlertSender struct {
	config  TelegramConfig
	connect func(token string) (telegramBot, error)
	logger  *zap.Logger

	mu  sync.Mutex
	bot telegramBot
}

// NewTelegramAlertSender creates a sender. The bot is authorized on first use
// so an unreachable API does not fail agent start.
func NewTelegramAlertSender(config TelegramConfig, logger *zap.Logger) *TelegramAlertSender {
	return newTelegramAlertSenderWithDeps(config, func(token string) (telegramBot, error) {
		bot, err := tgbotapi.NewBotAPI(token)
		if err != nil {
			return nil, err
		}
		logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
		return bot, nil
	}, logger)
}

func newTelegramAlertSenderWithDeps(config TelegramConfig, connect func(token string) (telegramBot, error), logger *zap.Logger) *TelegramAlertSender {
	return &TelegramAlertSender{config: config, connect: connect, logger: logger}
}

// SendAlert posts subject and body as one message.
func (t *TelegramAlertSender) SendAlert(ctx context.Context, to, subject, body string) error {
	if t.config.Token == "" || t.config.ChatID == 0 {
		return errors.New("telegram not configured")
	}

	text := subject + "\n\n" + body
	if r := []rune(text); len(r) > telegramMessageLimit {
		text = string(r[:telegramMessageLimit])
	}

	done := make(chan error, 1)
	go func() {
		bot, err := t.client()
		if err != nil {
			done <- err
			return
		}
		_, err = bot.Send(tgbotapi.NewMessage(t.config.ChatID, text))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

func (t *TelegramAlertSender) client() (telegramBot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := t.connect(t.config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}

// Ensure TelegramAlertSender implements domain.AlertSender.
var _ domain.AlertSender = (*TelegramAlertSender)(nil)

package channel

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/leadzap/leadzap-backend/internal/model"
)

// TelegramAdapter sends through the Telegram Bot API. Bots are cached
// per connection since each connection carries its own bot token.
type TelegramAdapter struct {
	mu   sync.Mutex
	bots map[int]*tgbotapi.BotAPI
}

func NewTelegramAdapter() *TelegramAdapter {
	return &TelegramAdapter{
		bots: make(map[int]*tgbotapi.BotAPI),
	}
}

func (t *TelegramAdapter) bot(conn *model.Connection) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bot, ok := t.bots[conn.ID]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(conn.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init for connection %d: %w", conn.ID, err)
	}
	t.bots[conn.ID] = bot
	return bot, nil
}

func (t *TelegramAdapter) Send(ctx context.Context, conn *model.Connection, contact *model.Contact, text string) error {
	if contact.ChatID == "" {
		return fmt.Errorf("contact %d has no telegram chat id", contact.ID)
	}
	chatID, err := strconv.ParseInt(contact.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("contact %d has invalid telegram chat id %q", contact.ID, contact.ChatID)
	}

	bot, err := t.bot(conn)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	_, err = bot.Send(msg)
	return err
}

var _ Adapter = (*TelegramAdapter)(nil)

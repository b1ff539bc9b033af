// Package notify delivers operational events to a Telegram chat. A nil
// *Telegram is a no-op, so wiring stays unconditional.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/roleverse/sceneflow/internal/config"
)

type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

// New returns nil when no token is configured.
func New(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create notify bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

// Event sends one operational event. Failures are logged, never surfaced:
// notification must not affect turn processing.
func (t *Telegram) Event(_ context.Context, kind, message string) {
	if t == nil {
		return
	}
	text := fmt.Sprintf("⚠️ *%s*\n\n%s\n*Time:* %s",
		kind, message, time.Now().Format("2006-01-02 15:04:05"))
	if len([]rune(text)) > config.MaxNotifyLen {
		text = string([]rune(text)[:config.MaxNotifyLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
	defer cancel()

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		slog.Error("failed to send notify event", "kind", kind, "error", err)
	}
}

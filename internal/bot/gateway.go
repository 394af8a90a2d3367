package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/core/telegram/sender"
)

// Gateway sends to arbitrary chats. The bot is attached once the runtime starts.
type Gateway struct {
	bot   atomic.Pointer[tele.Bot]
	queue *sender.Dispatcher
}

// NewGateway returns a Gateway that delivers through queue when it is not nil.
func NewGateway(queue *sender.Dispatcher) *Gateway {
	return &Gateway{queue: queue}
}

// Attach sets the bot used for sending; nil detaches it.
func (g *Gateway) Attach(b *tele.Bot) {
	g.bot.Store(b)
}

// SendText sends plain text to chatID right away. Broadcasts call it from their own queue.
func (g *Gateway) SendText(_ context.Context, chatID int64, text string) error {
	return tghelpers.SendTo(g.bot.Load(), &tele.Chat{ID: chatID}, text)
}

// Deliver sends what to chatID through the queue and waits for the outcome.
func (g *Gateway) Deliver(ctx context.Context, chatID int64, what interface{}, opts ...interface{}) error {
	run := func() error {
		return tghelpers.SendTo(g.bot.Load(), &tele.Chat{ID: chatID}, what, opts...)
	}
	if g.queue == nil {
		return run()
	}
	err := g.queue.Deliver(ctx, "send.text", "sendMessage", run)
	if errors.Is(err, sender.ErrQueueClosed) {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "queue.fallback",
			slog.Int64("chat_id", chatID), slog.String("err", err.Error()))
		return run()
	}
	return err
}

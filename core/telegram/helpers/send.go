package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// deliver runs the send through the dispatcher and waits for it, so replies of one
// update keep their order while still getting transient-error retries.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Deliver(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// Send delivers any telebot sendable (text, *tele.Photo, *tele.Video, *tele.Document)
// to the current chat.
func Send(c tele.Context, what interface{}, opts ...interface{}) error {
	action, endpoint := "send.text", "sendMessage"
	switch what.(type) {
	case *tele.Photo:
		action, endpoint = "send.photo", "sendPhoto"
	case *tele.Video:
		action, endpoint = "send.video", "sendVideo"
	case *tele.Document:
		action, endpoint = "send.document", "sendDocument"
	}
	return deliver(c, action, endpoint, func() error {
		return c.Send(what, opts...)
	})
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	if len(opts) > 0 && opts[0] != nil {
		return Send(c, text, opts[0])
	}
	return Send(c, text)
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm})
}

// SendTo delivers a message to an arbitrary chat through the bot, bypassing the update context.
func SendTo(b *tele.Bot, to tele.Recipient, what interface{}, opts ...interface{}) error {
	if b == nil {
		return errors.New("telegram: bot not ready")
	}
	_, err := b.Send(to, what, opts...)
	return err
}

package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/core/telegram/keyboard"
	"github.com/m3rciful/eventbot/internal/dialogue"
)

// render sends dialogue replies in order. Failed sends are logged and skipped.
func (a *App) render(c tele.Context, replies []dialogue.Reply) {
	ctx := tghelpers.BuildContext(c)
	for _, r := range replies {
		var err error
		switch {
		case r.MainMenu:
			err = a.showMenu(c)
		case r.ChatID != 0:
			err = a.gateway.Deliver(ctx, r.ChatID, r.Text, sendOptions(r))
		default:
			err = tghelpers.Send(c, r.Text, sendOptions(r))
		}
		if err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelError, "reply.send",
				slog.String("status", "fail"),
				slog.Int64("to_chat", r.ChatID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}
}

func sendOptions(r dialogue.Reply) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if r.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	switch r.Keyboard {
	case dialogue.RemoveKeyboard:
		opts.ReplyMarkup = keyboard.RemoveKeyboard()
	case dialogue.OptionsKeyboard:
		opts.ReplyMarkup = keyboard.ReplyButtons(r.Options...)
	}
	return opts
}

package bot

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
)

// askerRe takes the asker id from the tail of a forwarded question.
var askerRe = regexp.MustCompile(`(\d+)\s*$`)

// questionAuthor returns the asker of a forwarded question.
func questionAuthor(forwarded string) (int64, bool) {
	m := askerRe.FindStringSubmatch(forwarded)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// isModeratorReply accepts replies to forwarded questions written by the
// moderator or inside the questions chat.
func (a *App) isModeratorReply(c tele.Context) bool {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || c.Sender() == nil {
		return false
	}
	fromModerator := a.moderator != 0 && c.Sender().ID == a.moderator
	inQuestions := a.questions != 0 && c.Chat() != nil && c.Chat().ID == a.questions
	if !fromModerator && !inQuestions {
		return false
	}
	if msg.ReplyTo.Sender != nil && !msg.ReplyTo.Sender.IsBot {
		return false
	}
	_, ok := questionAuthor(msg.ReplyTo.Text)
	return ok
}

// relayAnswer forwards a moderator answer to the asker: notice, answer, hint.
func (a *App) relayAnswer(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	asker, ok := questionAuthor(c.Message().ReplyTo.Text)
	if !ok {
		return nil
	}
	texts := a.content.Texts
	for _, text := range []string{texts.ModeratorAnswered, c.Text(), texts.ModeratorFollowUp} {
		if err := a.gateway.Deliver(ctx, asker, text); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelError, "question.relay",
				slog.String("status", "fail"),
				slog.Int64("to_user", asker),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return fmt.Errorf("relay answer to %d: %w", asker, err)
		}
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "question.relay",
		slog.String("status", "ok"), slog.Int64("to_user", asker))
	return nil
}

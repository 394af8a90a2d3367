package router

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/eventbot/core/telegram"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/core/telegram/middleware"
)

// FSM is the conversation engine consulted for free text.
type FSM interface {
	InProgress(ctx context.Context, userID int64) bool
	HandleInput(c tele.Context) error
}

// ReplyRoute handles reply-to-message updates accepted by Match.
type ReplyRoute struct {
	Match   func(c tele.Context) bool
	Handler tele.HandlerFunc
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	Reply           ReplyRoute
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing.
// Order: matching replies, active dialogues, text commands, fallbacks.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if msg := c.Message(); msg != nil && msg.ReplyTo != nil && opts.Reply.Handler != nil {
			if opts.Reply.Match == nil || opts.Reply.Match(c) {
				return handleWithSummary(c, "reply", start, "", "", func() error {
					return opts.Reply.Handler(c)
				})
			}
		}

		if fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(tghelpers.BuildContext(c), c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.HandleInput(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}

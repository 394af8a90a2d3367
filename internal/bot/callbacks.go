package bot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	coretelegram "github.com/m3rciful/eventbot/core/telegram"
	"github.com/m3rciful/eventbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/internal/dialogue"
)

func (a *App) registerCallbacks(reg *coretelegram.Registry) error {
	handlers := map[string]tele.HandlerFunc{
		cbTour:      a.flow("tour", a.machine.StartTour),
		cbQuestion:  a.flow("question", a.machine.StartQuestion),
		cbResidence: a.flow("residence", a.machine.StartResidence),
		cbChecklist: a.onChecklist,
		cbTiming:    a.onTiming,
		cbTransfer:  a.onTransfer,
		cbContacts:  a.onContacts,
	}
	for key, h := range handlers {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}

type starter func(ctx context.Context, userID int64) ([]dialogue.Reply, error)

// flow returns a handler that opens a dialogue, replacing any running one.
func (a *App) flow(name string, start starter) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil {
			return nil
		}
		ctx := tghelpers.WithFlow(c, name)
		replies, err := start(ctx, c.Sender().ID)
		a.render(c, replies)
		return err
	}
}

func (a *App) onChecklist(c tele.Context) error {
	cl := a.content.Checklist
	photo := &tele.Photo{File: tele.FromDisk(a.mediaPath(cl.File)), Caption: cl.Caption}
	if err := tghelpers.Send(c, photo); err != nil {
		logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelError, "checklist.photo",
			slog.String("status", "fail"), slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		return tghelpers.SendText(c, cl.Caption)
	}
	return nil
}

func (a *App) onTiming(c tele.Context) error {
	n, err := callbacks.PayloadInt(c)
	if err != nil {
		return a.onUnknownCallback(c)
	}
	s, ok := a.content.Timing(n)
	if !ok {
		return a.onUnknownCallback(c)
	}
	return tghelpers.SendHTML(c, s.Text)
}

// onTransfer shows a static transfer day or, for lookup days, asks for a name.
func (a *App) onTransfer(c tele.Context) error {
	n, err := callbacks.PayloadInt(c)
	if err != nil {
		return a.onUnknownCallback(c)
	}
	s, ok := a.content.Transfer(n)
	if !ok {
		return a.onUnknownCallback(c)
	}
	if s.Lookup {
		return a.flow("transfer", a.machine.StartTransfer)(c)
	}
	return tghelpers.SendHTML(c, s.Text)
}

func (a *App) onContacts(c tele.Context) error {
	return tghelpers.SendText(c, a.content.Contacts)
}

func (a *App) onUnknownCallback(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: a.content.Texts.Unsupported})
}

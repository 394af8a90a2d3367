package bot

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	coretelegram "github.com/m3rciful/eventbot/core/telegram"
	"github.com/m3rciful/eventbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/internal/domain"
)

const exportFileName = "participants.csv"

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{Handler: a.onStart, Description: "Главное меню"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: a.onCancel, Description: "Отменить текущую операцию"})
	reg.RegisterCommand("/download", commands.Command{Handler: a.onDownload, Description: "Выгрузка участников", AdminOnly: true})
	reg.RegisterCommand("/send", commands.Command{Handler: a.onSend, Description: "Разослать уведомление", AdminOnly: true})
	reg.RegisterCommand("/notify", commands.Command{Handler: a.onNotify, Description: "Уведомить участников экскурсии", AdminOnly: true})
}

// interrupt ends the caller's dialogue before another command runs.
func (a *App) interrupt(c tele.Context) {
	if c.Sender() == nil {
		return
	}
	a.render(c, a.machine.Interrupt(tghelpers.BuildContext(c), c.Sender().ID))
}

func (a *App) onStart(c tele.Context) error {
	a.interrupt(c)
	ctx := tghelpers.BuildContext(c)
	if c.Sender() != nil {
		if err := a.store.UpsertUser(ctx, c.Sender().ID); err != nil {
			logger.LogEvent(ctx, logger.Registry, slog.LevelWarn, "user.upsert",
				slog.String("status", "fail"), slog.String("err", err.Error()))
		}
	}
	return a.showMenu(c)
}

func (a *App) onCancel(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	replies, err := a.machine.Cancel(tghelpers.BuildContext(c), c.Sender().ID)
	a.render(c, replies)
	return err
}

func (a *App) onDownload(c tele.Context) error {
	a.interrupt(c)
	ctx := tghelpers.BuildContext(c)
	table, err := a.bookings.Export(ctx)
	if err != nil {
		_ = tghelpers.SendText(c, a.content.Texts.ServiceUnavailable)
		return fmt.Errorf("export bookings: %w", err)
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	logger.LogEvent(ctx, logger.Registry, slog.LevelInfo, "registry.export",
		slog.Int("rows", len(table.Rows)), slog.Int("columns", len(table.Columns)))
	doc := &tele.Document{
		File:     tele.FromReader(&buf),
		FileName: exportFileName,
		Caption:  a.content.Texts.ExportCaption,
	}
	return tghelpers.Send(c, doc)
}

func (a *App) onSend(c tele.Context) error {
	a.interrupt(c)
	ctx := tghelpers.BuildContext(c)
	date, hour, ok := a.sendSlot(c.Args())
	if !ok {
		return tghelpers.SendText(c, a.content.Texts.SendUsage)
	}
	n, err := a.store.FindNotification(ctx, date, hour)
	if errors.Is(err, domain.ErrNotFound) {
		return tghelpers.SendText(c, fmt.Sprintf(a.content.Texts.SendNone, date, hour))
	}
	if err != nil {
		_ = tghelpers.SendText(c, a.content.Texts.ServiceUnavailable)
		return fmt.Errorf("find notification %s %d: %w", date, hour, err)
	}
	res, err := a.notifier.ToAll(ctx, n.Text)
	if err != nil {
		_ = tghelpers.SendText(c, a.content.Texts.ServiceUnavailable)
		return fmt.Errorf("broadcast notification %s %d: %w", date, hour, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf(a.content.Texts.NotifyDone, res.Sent, res.Failed))
}

// sendSlot resolves the notification slot of /send: the current date and hour
// in the event timezone, overridden by an optional date and hour argument.
func (a *App) sendSlot(args []string) (string, int, bool) {
	loc := a.cfg.Location()
	now := a.now().In(loc)
	date, hour := now.Format("2006-01-02"), now.Hour()
	if len(args) > 2 {
		return "", 0, false
	}
	if len(args) >= 1 {
		d, ok := tghelpers.ParseFlexibleDate(args[0], now, loc)
		if !ok {
			return "", 0, false
		}
		date = d.Format("2006-01-02")
	}
	if len(args) == 2 {
		h, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil || h < 0 || h > 23 {
			return "", 0, false
		}
		hour = h
	}
	return date, hour, true
}

func (a *App) onNotify(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	a.interrupt(c)
	ctx := tghelpers.WithFlow(c, "notify")
	replies, err := a.machine.StartNotify(ctx, c.Sender().ID)
	a.render(c, replies)
	return err
}

func (a *App) onUnknownText(c tele.Context) error {
	return tghelpers.SendText(c, a.content.Texts.Unknown)
}

func (a *App) onUnknownDocument(c tele.Context) error {
	return tghelpers.SendText(c, a.content.Texts.Unsupported)
}

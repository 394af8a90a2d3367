package bot

import (
	"log/slog"
	"path/filepath"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/core/logger"
	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/core/telegram/keyboard"
	"github.com/m3rciful/eventbot/internal/content"
)

// Callback tokens of the main menu.
const (
	cbTour      = "tour"
	cbQuestion  = "question"
	cbResidence = "residence"
	cbChecklist = "checklist"
	cbTiming    = "timing"
	cbTransfer  = "transfer"
	cbContacts  = "contacts"
)

// menuRows lays out the release menu: timing and transfer of a day share a row.
func menuRows(c *content.Content, withTours bool) [][]keyboard.InlineBtn {
	b := c.Buttons
	rows := [][]keyboard.InlineBtn{{
		{Text: b.Residence, Unique: cbResidence},
		{Text: b.Checklist, Unique: cbChecklist},
	}}
	days := len(c.Timings)
	if len(c.Transfers) > days {
		days = len(c.Transfers)
	}
	for i := 1; i <= days; i++ {
		var row []keyboard.InlineBtn
		if s, ok := c.Timing(i); ok {
			row = append(row, keyboard.InlineBtn{Text: s.Label, Unique: cbTiming, Data: strconv.Itoa(i)})
		}
		if s, ok := c.Transfer(i); ok {
			row = append(row, keyboard.InlineBtn{Text: s.Label, Unique: cbTransfer, Data: strconv.Itoa(i)})
		}
		rows = append(rows, row)
	}
	if withTours {
		rows = append(rows, []keyboard.InlineBtn{{Text: b.Tour, Unique: cbTour}})
	}
	return append(rows,
		[]keyboard.InlineBtn{{Text: b.Contacts, Unique: cbContacts}},
		[]keyboard.InlineBtn{{Text: b.Question, Unique: cbQuestion}},
	)
}

// preReleaseRows is the reduced menu shown under the invitation: one button per row, no tours.
func preReleaseRows(c *content.Content) [][]keyboard.InlineBtn {
	b := c.Buttons
	rows := [][]keyboard.InlineBtn{
		{{Text: b.Checklist, Unique: cbChecklist}},
		{{Text: b.Residence, Unique: cbResidence}},
	}
	for i, s := range c.Transfers {
		rows = append(rows, []keyboard.InlineBtn{{Text: s.Label, Unique: cbTransfer, Data: strconv.Itoa(i + 1)}})
		if t, ok := c.Timing(i + 1); ok {
			rows = append(rows, []keyboard.InlineBtn{{Text: t.Label, Unique: cbTiming, Data: strconv.Itoa(i + 1)}})
		}
	}
	for i := len(c.Transfers) + 1; i <= len(c.Timings); i++ {
		t, _ := c.Timing(i)
		rows = append(rows, []keyboard.InlineBtn{{Text: t.Label, Unique: cbTiming, Data: strconv.Itoa(i)}})
	}
	return append(rows,
		[]keyboard.InlineBtn{{Text: b.Contacts, Unique: cbContacts}},
		[]keyboard.InlineBtn{{Text: b.QuestionPreRelease, Unique: cbQuestion}},
	)
}

// showMenu sends the start screen of the current mode. In release mode the
// tours button is hidden once the user has booked.
func (a *App) showMenu(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if !a.release {
		inv := a.content.Invitation
		markup := keyboard.InlineButtonsRows(preReleaseRows(a.content)...)
		video := &tele.Video{
			File:    tele.FromDisk(a.mediaPath(inv.File)),
			Caption: inv.Caption,
			Width:   inv.Width,
			Height:  inv.Height,
		}
		if err := tghelpers.Send(c, video, markup); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelError, "menu.invitation",
				slog.String("status", "fail"), slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
			return tghelpers.SendText(c, a.content.Texts.MainMenu, &tele.SendOptions{ReplyMarkup: markup})
		}
		return nil
	}

	withTours := true
	if c.Sender() != nil {
		_, booked, err := a.bookings.ActiveBooking(ctx, c.Sender().ID)
		if err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "menu.booking",
				slog.String("status", "fail"), slog.String("err", err.Error()))
		}
		withTours = !booked
	}
	markup := keyboard.InlineButtonsRows(menuRows(a.content, withTours)...)
	return tghelpers.SendText(c, a.content.Texts.MainMenu, &tele.SendOptions{ReplyMarkup: markup})
}

func (a *App) mediaPath(file string) string {
	if file == "" || filepath.IsAbs(file) || a.mediaDir == "" {
		return file
	}
	return filepath.Join(a.mediaDir, file)
}

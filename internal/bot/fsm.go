package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/eventbot/core/telegram/helpers"
	"github.com/m3rciful/eventbot/internal/dialogue"
)

// conversation adapts the dialogue machine to the text router.
type conversation struct {
	app *App
}

func (f conversation) InProgress(ctx context.Context, userID int64) bool {
	return f.app.machine.InProgress(ctx, userID)
}

func (f conversation) HandleInput(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	replies, err := f.app.machine.Handle(ctx, dialogue.NewInput(c.Sender().ID, c.Text()))
	f.app.render(c, replies)
	return err
}

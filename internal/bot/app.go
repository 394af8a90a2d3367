// Package bot wires the event bot to Telegram: commands, menu callbacks, the
// dialogue machine, moderator relays and the rendering of replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	coretelegram "github.com/m3rciful/eventbot/core/telegram"
	"github.com/m3rciful/eventbot/core/telegram/router"
	"github.com/m3rciful/eventbot/core/telegram/sender"
	"github.com/m3rciful/eventbot/internal/broadcast"
	"github.com/m3rciful/eventbot/internal/config"
	"github.com/m3rciful/eventbot/internal/content"
	"github.com/m3rciful/eventbot/internal/dialogue"
	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/participants"
)

// Store is the part of the document store the bot reads directly.
type Store interface {
	UpsertUser(ctx context.Context, userID int64) error
	FindNotification(ctx context.Context, date string, hour int) (domain.Notification, error)
}

// Bookings answers booking questions for menus and exports.
type Bookings interface {
	ActiveBooking(ctx context.Context, userID int64) (string, bool, error)
	Export(ctx context.Context) (participants.Table, error)
}

// Notifier broadcasts to every known user.
type Notifier interface {
	ToAll(ctx context.Context, text string) (broadcast.Result, error)
}

// Options wires an App.
type Options struct {
	Config     *config.Config
	Content    *content.Content
	Store      Store
	Bookings   Bookings
	Machine    *dialogue.Machine
	Notifier   Notifier
	Gateway    *Gateway
	Dispatcher *sender.Dispatcher
	// Closers are released in reverse order by Close.
	Closers []io.Closer
	// Now defaults to time.Now.
	Now func() time.Time
}

// App is the Telegram application.
type App struct {
	cfg        *config.Config
	content    *content.Content
	store      Store
	bookings   Bookings
	machine    *dialogue.Machine
	notifier   Notifier
	gateway    *Gateway
	dispatcher *sender.Dispatcher
	closers    []io.Closer
	now        func() time.Time

	release   bool
	mediaDir  string
	moderator int64
	questions int64
}

// New validates opts and builds an App.
func New(opts Options) (*App, error) {
	switch {
	case opts.Config == nil:
		return nil, fmt.Errorf("bot: nil config")
	case opts.Content == nil:
		return nil, fmt.Errorf("bot: nil content")
	case opts.Store == nil || opts.Bookings == nil:
		return nil, fmt.Errorf("bot: store and bookings are required")
	case opts.Machine == nil:
		return nil, fmt.Errorf("bot: nil dialogue machine")
	case opts.Notifier == nil:
		return nil, fmt.Errorf("bot: nil notifier")
	}
	a := &App{
		cfg:        opts.Config,
		content:    opts.Content,
		store:      opts.Store,
		bookings:   opts.Bookings,
		machine:    opts.Machine,
		notifier:   opts.Notifier,
		gateway:    opts.Gateway,
		dispatcher: opts.Dispatcher,
		closers:    opts.Closers,
		now:        opts.Now,
		release:    opts.Config.Release(),
		mediaDir:   opts.Config.Event.MediaDir,
		moderator:  opts.Config.Telegram.AdminID,
		questions:  opts.Config.Event.QuestionsChatID,
	}
	if a.gateway == nil {
		a.gateway = NewGateway(opts.Dispatcher)
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// TelegramRunOptions registers commands, callbacks and text routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetCallbackNotFound(a.onUnknownCallback)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.TextRoutes(conversation{app: a}, reg, router.TextOptions{
		Reply:           router.ReplyRoute{Match: a.isModeratorReply, Handler: a.relayAnswer},
		UnknownText:     a.onUnknownText,
		UnknownDocument: a.onUnknownDocument,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.gateway.Attach(rt.Bot)
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			a.gateway.Attach(nil)
			return nil
		},
	}, nil
}

// Close releases storage, session and broker handles.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] == nil {
			continue
		}
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

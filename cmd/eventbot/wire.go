package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/m3rciful/eventbot/core/bootstrap"
	coredatabase "github.com/m3rciful/eventbot/core/database"
	"github.com/m3rciful/eventbot/core/telegram/sender"
	"github.com/m3rciful/eventbot/core/telegram/state"
	"github.com/m3rciful/eventbot/internal/bot"
	"github.com/m3rciful/eventbot/internal/broadcast"
	"github.com/m3rciful/eventbot/internal/config"
	"github.com/m3rciful/eventbot/internal/content"
	"github.com/m3rciful/eventbot/internal/dialogue"
	"github.com/m3rciful/eventbot/internal/events"
	"github.com/m3rciful/eventbot/internal/ledger"
	"github.com/m3rciful/eventbot/internal/participants"
	"github.com/m3rciful/eventbot/internal/seed"
	"github.com/m3rciful/eventbot/internal/storage"
	"github.com/m3rciful/eventbot/internal/storage/memory"
	"github.com/m3rciful/eventbot/internal/storage/mongo"
	"github.com/m3rciful/eventbot/internal/storage/postgres"
	"github.com/m3rciful/eventbot/migrations"
)

// documentStore is what every driver provides.
type documentStore interface {
	ledger.Store
	participants.Store
	broadcast.Users
	bot.Store
	seed.Store
}

// build assembles storage, sessions, events and the bot from cfg.
func build(ctx context.Context, cfg *config.Config) (app *bot.App, err error) {
	var closers []io.Closer
	defer func() {
		if err != nil {
			closeAll(closers)
		}
	}()

	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver == storage.DriverPostgres {
		dbCfg = &cfg.Database
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   dbCfg,
		Migrations: migrations.FS,
	})
	if err != nil {
		return nil, err
	}
	closers = append(closers, infra)

	store, err := openStore(ctx, cfg, infra)
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}
	if err := seed.Apply(ctx, store, cfg.Event.SeedFile); err != nil {
		return nil, err
	}

	sessions, closer, err := openSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	pages, err := content.Load(cfg.Event.ContentFile)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.Enabled {
		publisher = events.NewAMQP(cfg.Events.URL, cfg.Events.Queue)
	}

	dispatcher := sender.NewDispatcher(sender.Options{
		QueueSize:    cfg.Sender.QueueSize,
		Workers:      cfg.Sender.Workers,
		MaxRetries:   cfg.Sender.MaxRetries,
		RetryBackoff: time.Duration(cfg.Sender.RetryBackoffMS) * time.Millisecond,
	})
	gateway := bot.NewGateway(dispatcher)
	registry := participants.New(store)
	notifier := broadcast.New(store, registry, gateway.SendText, dispatcher)

	machine := dialogue.New(dialogue.Options{
		Ledger:        ledger.New(store),
		Registry:      registry,
		Broadcaster:   notifier,
		Publisher:     publisher,
		Sessions:      sessions,
		Texts:         pages.Texts,
		QuestionsChat: cfg.Event.QuestionsChatID,
		Release:       cfg.Release(),
		PhoneRegion:   cfg.Event.PhoneRegion,
	})

	return bot.New(bot.Options{
		Config:     cfg,
		Content:    pages,
		Store:      store,
		Bookings:   registry,
		Machine:    machine,
		Notifier:   notifier,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Closers:    closers,
	})
}

func openStore(ctx context.Context, cfg *config.Config, infra *bootstrap.Result) (documentStore, error) {
	switch cfg.Storage.Driver {
	case storage.DriverPostgres:
		if infra.DB == nil {
			return nil, fmt.Errorf("postgres driver selected but no database connection")
		}
		return postgres.New(infra.DB), nil
	case storage.DriverMongo:
		timeout := time.Duration(cfg.Mongo.TimeoutSeconds) * time.Second
		s, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, timeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case storage.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openSessions(ctx context.Context, cfg *config.Config) (state.Store[dialogue.Session], io.Closer, error) {
	if cfg.Sessions.Backend != config.SessionsRedis {
		return state.NewMemoryStore[dialogue.Session](), nil, nil
	}
	client, err := state.Dial(ctx, cfg.Sessions.RedisAddr, cfg.Sessions.RedisPassword, cfg.Sessions.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	store := state.NewRedisStore[dialogue.Session](client, state.RedisOptions{
		Prefix: cfg.Sessions.Prefix,
		TTL:    cfg.SessionTTL(),
	})
	return store, client, nil
}

func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i].Close()
	}
}

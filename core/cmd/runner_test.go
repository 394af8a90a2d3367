package cmd

import (
	"context"
	"testing"

	coreconfig "github.com/m3rciful/eventbot/core/config"
	coretelegram "github.com/m3rciful/eventbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	started bool
	closed  bool
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			a.started = true
			return nil
		},
	}, nil
}

func (a *app) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("EVENTBOT_TEST_CONFIG", "ignored.yaml")
	a := &app{}
	var loadedPath string
	err := Run(Options{
		ConfigEnvVar: "EVENTBOT_TEST_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return a, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			return opts.OnStart(ctx, coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loadedPath != "ignored.yaml" {
		t.Fatalf("config path = %q", loadedPath)
	}
	if !a.started {
		t.Fatal("app OnStart hook was not chained")
	}
	if !a.closed {
		t.Fatal("app was not closed")
	}
}

func TestRunRequiresLoaders(t *testing.T) {
	if err := Run(Options{}); err == nil {
		t.Fatal("expected error without LoadConfig")
	}
}

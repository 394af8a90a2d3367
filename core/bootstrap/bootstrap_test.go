package bootstrap

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/eventbot/core/config"
)

func TestRunWithoutDatabase(t *testing.T) {
	initCalled := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { initCalled = true; return nil },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !initCalled {
		t.Fatal("logger init was not called")
	}
	if res.DB != nil {
		t.Fatal("no database expected")
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestRunSeedersStopsOnError(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	err := RunSeeders(context.Background(),
		NamedSeeder{Name: "tours", Seeder: SeederFunc(func(context.Context) error { order = append(order, "tours"); return nil })},
		NamedSeeder{Name: "roster", Seeder: SeederFunc(func(context.Context) error { order = append(order, "roster"); return boom })},
		NamedSeeder{Name: "notifications", Seeder: SeederFunc(func(context.Context) error { order = append(order, "notifications"); return nil })},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(order) != 2 || order[1] != "roster" {
		t.Fatalf("unexpected order: %v", order)
	}
}

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/eventbot/core/logger"
)

// Seeder loads reference data into a storage implementation.
type Seeder interface {
	Seed(ctx context.Context) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context) error {
	return f(ctx)
}

// NamedSeeder labels a seeder for logs.
type NamedSeeder struct {
	Name string
	Seeder
}

// RunSeeders executes seeders in order and stops at the first failure.
func RunSeeders(ctx context.Context, seeders ...NamedSeeder) error {
	for _, s := range seeders {
		if s.Seeder == nil {
			continue
		}
		start := time.Now()
		if err := s.Seed(ctx); err != nil {
			logger.SEED.Error("seed failed",
				slog.String("event", "db.seed"),
				slog.String("status", "fail"),
				slog.String("collection", s.Name),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("seed %s: %w", s.Name, err)
		}
		logger.SEED.Info("seed done",
			slog.String("event", "db.seed"),
			slog.String("status", "ok"),
			slog.String("collection", s.Name),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return nil
}

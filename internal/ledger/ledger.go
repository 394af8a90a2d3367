// Package ledger tracks tours and their remaining seats.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/internal/domain"
)

// Store is the persistence the ledger needs. DecrementFreePlaces must be a
// single conditional update that never drives free places below zero.
type Store interface {
	ListTours(ctx context.Context) ([]domain.Tour, error)
	GetTour(ctx context.Context, name string) (domain.Tour, error)
	DecrementFreePlaces(ctx context.Context, name string) (bool, error)
	IncrementFreePlaces(ctx context.Context, name string) error
}

// Ledger exposes tour availability and seat accounting.
type Ledger struct {
	store Store
}

// New returns a Ledger backed by store.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// AvailableTours lists tours ordered by name. With onlyFree set, sold-out tours are skipped.
func (l *Ledger) AvailableTours(ctx context.Context, onlyFree bool) ([]domain.Tour, error) {
	tours, err := l.store.ListTours(ctx)
	if err != nil {
		return nil, fmt.Errorf("available tours: %w", err)
	}
	if !onlyFree {
		return tours, nil
	}
	out := tours[:0]
	for _, t := range tours {
		if t.Available() {
			out = append(out, t)
		}
	}
	return out, nil
}

// ValidateAndFetch returns the tour when it exists and still has a free place.
// Unknown and sold-out tours both yield ErrNotAvailable.
func (l *Ledger) ValidateAndFetch(ctx context.Context, name string) (domain.Tour, error) {
	t, err := l.store.GetTour(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Tour{}, fmt.Errorf("tour %q: %w", name, domain.ErrNotAvailable)
	}
	if err != nil {
		return domain.Tour{}, err
	}
	if !t.Available() {
		return domain.Tour{}, fmt.Errorf("tour %q: %w", name, domain.ErrNotAvailable)
	}
	return t, nil
}

// Lookup returns the tour regardless of capacity.
func (l *Ledger) Lookup(ctx context.Context, name string) (domain.Tour, error) {
	return l.store.GetTour(ctx, name)
}

// Decrement takes one seat. It fails with ErrNotAvailable when none is left.
func (l *Ledger) Decrement(ctx context.Context, name string) error {
	ok, err := l.store.DecrementFreePlaces(ctx, name)
	if err != nil {
		return fmt.Errorf("decrement %q: %w", name, err)
	}
	if !ok {
		logger.LogEvent(ctx, logger.Ledger, slog.LevelInfo, "ledger.decrement",
			slog.String("tour", name), slog.String("outcome", "sold_out"))
		return fmt.Errorf("tour %q: %w", name, domain.ErrNotAvailable)
	}
	logger.LogEvent(ctx, logger.Ledger, slog.LevelDebug, "ledger.decrement",
		slog.String("tour", name), slog.String("outcome", "ok"))
	return nil
}

// Release gives back a seat taken by Decrement.
func (l *Ledger) Release(ctx context.Context, name string) error {
	if err := l.store.IncrementFreePlaces(ctx, name); err != nil {
		logger.LogEvent(ctx, logger.Ledger, slog.LevelError, "ledger.release",
			slog.String("tour", name), slog.String("status", "fail"), slog.Any("err", err))
		return fmt.Errorf("release %q: %w", name, err)
	}
	logger.LogEvent(ctx, logger.Ledger, slog.LevelInfo, "ledger.release",
		slog.String("tour", name), slog.String("status", "ok"))
	return nil
}

// Package participants keeps tour bookings and answers roster lookups.
package participants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/internal/domain"
)

// Store is the persistence the registry needs. InsertBooking must reject a
// second booking of the same user with domain.ErrAlreadyBooked.
type Store interface {
	FindBooking(ctx context.Context, userID int64) (domain.Participant, error)
	InsertBooking(ctx context.Context, p domain.Participant) error
	UpdatePassport(ctx context.Context, userID int64, passport string) error
	BookingsByTour(ctx context.Context, tour string) ([]domain.Participant, error)
	ExportBookings(ctx context.Context) ([]domain.Record, error)
	FindRoster(ctx context.Context, collection, prefix string) ([]domain.Record, error)
}

// Registry manages bookings and roster lookups.
type Registry struct {
	store    Store
	validate *validator.Validate
}

// New returns a Registry backed by store.
func New(store Store) *Registry {
	return &Registry{store: store, validate: validator.New()}
}

// ActiveBooking returns the tour the user is booked on, if any.
func (r *Registry) ActiveBooking(ctx context.Context, userID int64) (string, bool, error) {
	p, ok, err := r.Booking(ctx, userID)
	return p.Tour, ok, err
}

// Booking returns the booking of the user, if any.
func (r *Registry) Booking(ctx context.Context, userID int64) (domain.Participant, bool, error) {
	p, err := r.store.FindBooking(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Participant{}, false, nil
	}
	if err != nil {
		return domain.Participant{}, false, err
	}
	return p, true, nil
}

// Validate checks p against the booking field rules without storing it.
func (r *Registry) Validate(p domain.Participant) error {
	if err := r.validate.Struct(p); err != nil {
		return fmt.Errorf("invalid booking: %w", err)
	}
	return nil
}

// CommitBooking validates and stores p. A concurrent duplicate yields domain.ErrAlreadyBooked.
func (r *Registry) CommitBooking(ctx context.Context, p domain.Participant) error {
	if err := r.Validate(p); err != nil {
		return err
	}
	if err := r.store.InsertBooking(ctx, p); err != nil {
		outcome := "fail"
		if errors.Is(err, domain.ErrAlreadyBooked) {
			outcome = "duplicate"
		}
		logger.LogEvent(ctx, logger.Registry, slog.LevelInfo, "registry.commit",
			slog.Int64("user_id", p.UserID), slog.String("tour", p.Tour), slog.String("outcome", outcome))
		return err
	}
	logger.LogEvent(ctx, logger.Registry, slog.LevelInfo, "registry.commit",
		slog.Int64("user_id", p.UserID), slog.String("tour", p.Tour), slog.String("outcome", "ok"))
	return nil
}

// SetPassport stores the passport of an existing booking.
func (r *Registry) SetPassport(ctx context.Context, userID int64, passport string) error {
	passport = strings.TrimSpace(passport)
	if passport == "" {
		return errors.New("empty passport")
	}
	if err := r.validate.Var(passport, fmt.Sprintf("max=%d", domain.MaxPassportLen)); err != nil {
		return fmt.Errorf("invalid passport: %w", err)
	}
	if err := r.store.UpdatePassport(ctx, userID, passport); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.Registry, slog.LevelInfo, "registry.passport",
		slog.Int64("user_id", userID), slog.String("outcome", "ok"))
	return nil
}

// TourParticipants returns the bookings of tour.
func (r *Registry) TourParticipants(ctx context.Context, tour string) ([]domain.Participant, error) {
	return r.store.BookingsByTour(ctx, tour)
}

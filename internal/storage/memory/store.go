// Package memory is an in-process document store used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/eventbot/internal/domain"
)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu            sync.Mutex
	tours         map[string]domain.Tour
	bookings      map[int64]domain.Participant
	users         map[int64]domain.User
	roster        map[string][]domain.Record
	notifications map[string]domain.Notification
	now           func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		tours:         make(map[string]domain.Tour),
		bookings:      make(map[int64]domain.Participant),
		users:         make(map[int64]domain.User),
		roster:        make(map[string][]domain.Record),
		notifications: make(map[string]domain.Notification),
		now:           time.Now,
	}
}

// ListTours returns all tours ordered by name.
func (s *Store) ListTours(_ context.Context) ([]domain.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Tour, 0, len(s.tours))
	for _, t := range s.tours {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetTour returns the named tour.
func (s *Store) GetTour(_ context.Context, name string) (domain.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tours[name]
	if !ok {
		return domain.Tour{}, fmt.Errorf("tour %q: %w", name, domain.ErrNotFound)
	}
	return t, nil
}

// DecrementFreePlaces takes one seat if any is left and reports whether it did.
func (s *Store) DecrementFreePlaces(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tours[name]
	if !ok || t.FreePlaces <= 0 {
		return false, nil
	}
	t.FreePlaces--
	s.tours[name] = t
	return true, nil
}

// IncrementFreePlaces returns one seat to the tour.
func (s *Store) IncrementFreePlaces(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tours[name]
	if !ok {
		return fmt.Errorf("tour %q: %w", name, domain.ErrNotFound)
	}
	t.FreePlaces++
	s.tours[name] = t
	return nil
}

// FindBooking returns the booking of userID.
func (s *Store) FindBooking(_ context.Context, userID int64) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bookings[userID]
	if !ok {
		return domain.Participant{}, fmt.Errorf("booking of %d: %w", userID, domain.ErrNotFound)
	}
	return p, nil
}

// InsertBooking stores p unless the user already has a booking.
func (s *Store) InsertBooking(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[p.UserID]; exists {
		return fmt.Errorf("booking of %d: %w", p.UserID, domain.ErrAlreadyBooked)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.bookings[p.UserID] = p
	return nil
}

// UpdatePassport sets the passport of an existing booking.
func (s *Store) UpdatePassport(_ context.Context, userID int64, passport string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.bookings[userID]
	if !ok {
		return fmt.Errorf("booking of %d: %w", userID, domain.ErrNotFound)
	}
	p.UserPassport = &passport
	s.bookings[userID] = p
	return nil
}

// BookingsByTour returns the bookings of tour ordered by user id.
func (s *Store) BookingsByTour(_ context.Context, tour string) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Participant
	for _, p := range s.bookings {
		if p.Tour == tour {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ExportBookings returns every booking as a flat record.
func (s *Store) ExportBookings(_ context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.bookings))
	for id := range s.bookings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		p := s.bookings[id]
		rec := domain.Record{
			"user_id":    strconv.FormatInt(p.UserID, 10),
			"tour":       p.Tour,
			"user_name":  p.UserName,
			"user_phone": p.UserPhone,
			"created_at": p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if p.UserPassport != nil {
			rec["user_passport"] = *p.UserPassport
		}
		out = append(out, rec)
	}
	return out, nil
}

// FindRoster returns records of collection whose key field starts with prefix.
func (s *Store) FindRoster(_ context.Context, collection, prefix string) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.RosterKeyField(collection)
	var out []domain.Record
	for _, rec := range s.roster[collection] {
		if strings.HasPrefix(rec[key], prefix) {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

// UpsertUser records userID on first contact and keeps the original timestamp.
func (s *Store) UpsertUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = domain.User{ID: userID, CreatedAt: s.now()}
	}
	return nil
}

// UserIDs returns every known user id in ascending order.
func (s *Store) UserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// FindNotification returns the announcement scheduled for date and hour.
func (s *Store) FindNotification(_ context.Context, date string, hour int) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationKey(date, hour)]
	if !ok {
		return domain.Notification{}, fmt.Errorf("notification %s %d: %w", date, hour, domain.ErrNotFound)
	}
	return n, nil
}

// PutTours inserts tours that do not exist yet; existing seat counts are kept.
func (s *Store) PutTours(_ context.Context, tours []domain.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tours {
		if _, ok := s.tours[t.Name]; !ok {
			s.tours[t.Name] = t
		}
	}
	return nil
}

// PutRoster fills collection when it is empty.
func (s *Store) PutRoster(_ context.Context, collection string, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.roster[collection]) > 0 {
		return nil
	}
	for _, rec := range records {
		s.roster[collection] = append(s.roster[collection], copyRecord(rec))
	}
	return nil
}

// PutNotifications inserts notifications whose date and hour are free.
func (s *Store) PutNotifications(_ context.Context, items []domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range items {
		key := notificationKey(n.Date, n.Hour)
		if _, ok := s.notifications[key]; !ok {
			s.notifications[key] = n
		}
	}
	return nil
}

func notificationKey(date string, hour int) string {
	return date + "#" + strconv.Itoa(hour)
}

func copyRecord(rec domain.Record) domain.Record {
	out := make(domain.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

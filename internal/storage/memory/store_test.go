package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/eventbot/internal/domain"
)

func TestDecrementStopsAtZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.PutTours(ctx, []domain.Tour{{Name: "Museum", FreePlaces: 1}}); err != nil {
		t.Fatalf("PutTours: %v", err)
	}
	ok, err := s.DecrementFreePlaces(ctx, "Museum")
	if err != nil || !ok {
		t.Fatalf("first decrement = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.DecrementFreePlaces(ctx, "Museum")
	if err != nil || ok {
		t.Fatalf("second decrement = %v, %v; want false, nil", ok, err)
	}
	tour, _ := s.GetTour(ctx, "Museum")
	if tour.FreePlaces != 0 {
		t.Fatalf("free places = %d, want 0", tour.FreePlaces)
	}
	if ok, _ := s.DecrementFreePlaces(ctx, "Nowhere"); ok {
		t.Fatalf("decrement of unknown tour succeeded")
	}
}

func TestInsertBookingRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := domain.Participant{UserID: 7, Tour: "Museum", UserName: "Anna", UserPhone: "+79990000000"}
	if err := s.InsertBooking(ctx, p); err != nil {
		t.Fatalf("InsertBooking: %v", err)
	}
	if err := s.InsertBooking(ctx, p); !errors.Is(err, domain.ErrAlreadyBooked) {
		t.Fatalf("second insert err = %v, want ErrAlreadyBooked", err)
	}
	got, err := s.FindBooking(ctx, 7)
	if err != nil || got.CreatedAt.IsZero() {
		t.Fatalf("FindBooking = %+v, %v", got, err)
	}
	if err := s.UpdatePassport(ctx, 8, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdatePassport on missing booking err = %v", err)
	}
}

func TestFindRosterPrefixIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.PutRoster(ctx, domain.CollectionTransfers, []domain.Record{
		{"full_name": "Иванов Иван", "transfer": "bus"},
		{"full_name": "Иваненко Олег"},
		{"full_name": "Петров Пётр"},
	})
	if err != nil {
		t.Fatalf("PutRoster: %v", err)
	}
	got, _ := s.FindRoster(ctx, domain.CollectionTransfers, "Иван")
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2", len(got))
	}
	got, _ = s.FindRoster(ctx, domain.CollectionTransfers, "иван")
	if len(got) != 0 {
		t.Fatalf("lower-case prefix matched %d records", len(got))
	}
	got, _ = s.FindRoster(ctx, domain.CollectionTransfers, "Иванов")
	got[0]["transfer"] = "changed"
	again, _ := s.FindRoster(ctx, domain.CollectionTransfers, "Иванов")
	if again[0]["transfer"] != "bus" {
		t.Fatalf("returned record aliases stored data")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.PutTours(ctx, []domain.Tour{{Name: "City Walk", FreePlaces: 3}})
	_, _ = s.DecrementFreePlaces(ctx, "City Walk")
	_ = s.PutTours(ctx, []domain.Tour{{Name: "City Walk", FreePlaces: 3}})
	tour, _ := s.GetTour(ctx, "City Walk")
	if tour.FreePlaces != 2 {
		t.Fatalf("reseeding reset free places to %d", tour.FreePlaces)
	}

	_ = s.PutRoster(ctx, domain.CollectionParticipants, []domain.Record{{"name": "A"}})
	_ = s.PutRoster(ctx, domain.CollectionParticipants, []domain.Record{{"name": "B"}})
	if got, _ := s.FindRoster(ctx, domain.CollectionParticipants, ""); len(got) != 1 {
		t.Fatalf("roster size = %d, want 1", len(got))
	}

	_ = s.PutNotifications(ctx, []domain.Notification{{Date: "2026-04-09", Hour: 10, Text: "first"}})
	_ = s.PutNotifications(ctx, []domain.Notification{{Date: "2026-04-09", Hour: 10, Text: "second"}})
	n, err := s.FindNotification(ctx, "2026-04-09", 10)
	if err != nil || n.Text != "first" {
		t.Fatalf("FindNotification = %+v, %v", n, err)
	}
	if _, err := s.FindNotification(ctx, "2026-04-09", 11); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing notification err = %v", err)
	}
}

func TestUsersUpsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []int64{3, 1, 3, 2} {
		_ = s.UpsertUser(ctx, id)
	}
	ids, _ := s.UserIDs(ctx)
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("UserIDs = %v", ids)
	}
}

package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/storage/memory"
)

func newLedger(t *testing.T, tours ...domain.Tour) (*Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	if err := store.PutTours(context.Background(), tours); err != nil {
		t.Fatalf("PutTours: %v", err)
	}
	return New(store), store
}

func TestAvailableToursSkipsSoldOut(t *testing.T) {
	l, _ := newLedger(t,
		domain.Tour{Name: "Museum", FreePlaces: 2},
		domain.Tour{Name: "City Walk", FreePlaces: 0},
		domain.Tour{Name: "Boat", FreePlaces: 1},
	)
	ctx := context.Background()

	free, err := l.AvailableTours(ctx, true)
	if err != nil {
		t.Fatalf("AvailableTours: %v", err)
	}
	if len(free) != 2 || free[0].Name != "Boat" || free[1].Name != "Museum" {
		t.Fatalf("free tours = %+v", free)
	}
	for _, tour := range free {
		if tour.FreePlaces <= 0 {
			t.Fatalf("sold-out tour %q returned", tour.Name)
		}
	}
	all, _ := l.AvailableTours(ctx, false)
	if len(all) != 3 {
		t.Fatalf("all tours = %d, want 3", len(all))
	}
}

func TestValidateAndFetch(t *testing.T) {
	l, _ := newLedger(t,
		domain.Tour{Name: "Museum", FreePlaces: 1},
		domain.Tour{Name: "City Walk", FreePlaces: 0},
	)
	ctx := context.Background()
	if _, err := l.ValidateAndFetch(ctx, "Museum"); err != nil {
		t.Fatalf("Museum: %v", err)
	}
	if _, err := l.ValidateAndFetch(ctx, "City Walk"); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("City Walk err = %v, want ErrNotAvailable", err)
	}
	if _, err := l.ValidateAndFetch(ctx, "Zoo"); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("unknown tour err = %v, want ErrNotAvailable", err)
	}
	if _, err := l.Lookup(ctx, "City Walk"); err != nil {
		t.Fatalf("Lookup sold-out tour: %v", err)
	}
	if _, err := l.Lookup(ctx, "Zoo"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Lookup unknown err = %v", err)
	}
}

func TestDecrementAndRelease(t *testing.T) {
	l, store := newLedger(t, domain.Tour{Name: "Museum", FreePlaces: 1})
	ctx := context.Background()
	if err := l.Decrement(ctx, "Museum"); err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if err := l.Decrement(ctx, "Museum"); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("second Decrement err = %v", err)
	}
	if err := l.Release(ctx, "Museum"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	tour, _ := store.GetTour(ctx, "Museum")
	if tour.FreePlaces != 1 {
		t.Fatalf("free places = %d, want 1", tour.FreePlaces)
	}
}

func TestConcurrentLastSeatHasOneWinner(t *testing.T) {
	l, store := newLedger(t, domain.Tour{Name: "Museum", FreePlaces: 1})
	ctx := context.Background()

	var wins, losses int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Decrement(ctx, "Museum")
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, domain.ErrNotAvailable):
				atomic.AddInt32(&losses, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || losses != 31 {
		t.Fatalf("wins=%d losses=%d, want 1 and 31", wins, losses)
	}
	tour, _ := store.GetTour(ctx, "Museum")
	if tour.FreePlaces != 0 {
		t.Fatalf("free places = %d, want 0", tour.FreePlaces)
	}
}

package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/storage/memory"
)

const sample = `
tours:
  - name: Museum
    description: Old town museum
    free_places: 2
  - name: City Walk
    free_places: 0
    requires_passport: true
participants:
  - name: "Ivan Petrov"
    hotel_website: "https://hotel.example"
transfers:
  - full_name: "Ivan Petrov"
    arrival: "10:00"
notifications:
  - date: "2026-06-01"
    hour: 9
    text: "Bus leaves at 10"
`

func TestApplySeedsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := memory.New()
	ctx := context.Background()
	if err := Apply(ctx, store, path); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	tours, err := store.ListTours(ctx)
	if err != nil || len(tours) != 2 {
		t.Fatalf("tours = %v, err = %v", tours, err)
	}
	recs, err := store.FindRoster(ctx, domain.CollectionTransfers, "Ivan")
	if err != nil || len(recs) != 1 || recs[0]["arrival"] != "10:00" {
		t.Fatalf("transfers = %v, err = %v", recs, err)
	}
	n, err := store.FindNotification(ctx, "2026-06-01", 9)
	if err != nil || n.Text != "Bus leaves at 10" {
		t.Fatalf("notification = %+v, err = %v", n, err)
	}
}

func TestApplyKeepsSeatCounts(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if err := store.PutTours(ctx, []domain.Tour{{Name: "Museum", FreePlaces: 1}}); err != nil {
		t.Fatalf("PutTours: %v", err)
	}
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, s := range f.Seeders(store) {
		if err := s.Seed(ctx); err != nil {
			t.Fatalf("seed %s: %v", s.Name, err)
		}
	}
	tour, err := store.GetTour(ctx, "Museum")
	if err != nil || tour.FreePlaces != 1 {
		t.Fatalf("tour = %+v, err = %v", tour, err)
	}
}

func TestApplyEmptyPath(t *testing.T) {
	if err := Apply(context.Background(), memory.New(), " "); err != nil {
		t.Fatalf("Apply: %v", err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing name":   "tours:\n  - free_places: 1\n",
		"duplicate tour": "tours:\n  - name: A\n  - name: A\n",
		"negative seats": "tours:\n  - name: A\n    free_places: -1\n",
		"roster key":     "transfers:\n  - name: Ivan\n",
		"bad date":       "notifications:\n  - date: 01.06.2026\n    hour: 9\n    text: x\n",
		"bad hour":       "notifications:\n  - date: \"2026-06-01\"\n    hour: 24\n    text: x\n",
		"empty text":     "notifications:\n  - date: \"2026-06-01\"\n    hour: 9\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

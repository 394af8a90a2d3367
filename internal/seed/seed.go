// Package seed loads the event reference data (tours, rosters and scheduled
// notifications) from a YAML file into a store.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/eventbot/core/bootstrap"
	"github.com/m3rciful/eventbot/internal/domain"
)

// Store receives the seed data. Each Put leaves existing entries untouched.
type Store interface {
	PutTours(ctx context.Context, tours []domain.Tour) error
	PutRoster(ctx context.Context, collection string, records []domain.Record) error
	PutNotifications(ctx context.Context, items []domain.Notification) error
}

// File is the on-disk seed layout.
type File struct {
	Tours         []domain.Tour         `yaml:"tours"`
	Participants  []domain.Record       `yaml:"participants"`
	Transfers     []domain.Record       `yaml:"transfers"`
	Notifications []domain.Notification `yaml:"notifications"`
}

// Load reads and validates the seed file at path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw seed YAML.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := f.validate(validator.New()); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate(v *validator.Validate) error {
	seen := make(map[string]struct{}, len(f.Tours))
	for i, t := range f.Tours {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return fmt.Errorf("tours[%d]: name is required", i)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("tours[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = struct{}{}
		if err := v.Var(t.FreePlaces, "gte=0"); err != nil {
			return fmt.Errorf("tours[%d] %q: free_places must be >= 0", i, t.Name)
		}
		f.Tours[i] = t
	}
	for collection, records := range map[string][]domain.Record{
		domain.CollectionParticipants: f.Participants,
		domain.CollectionTransfers:    f.Transfers,
	} {
		key := domain.RosterKeyField(collection)
		for i, rec := range records {
			if strings.TrimSpace(rec[key]) == "" {
				return fmt.Errorf("%s[%d]: %s is required", collection, i, key)
			}
		}
	}
	for i, n := range f.Notifications {
		if err := v.Var(n.Date, "datetime=2006-01-02"); err != nil {
			return fmt.Errorf("notifications[%d]: date %q is not YYYY-MM-DD", i, n.Date)
		}
		if err := v.Var(n.Hour, "gte=0,lte=23"); err != nil {
			return fmt.Errorf("notifications[%d]: hour %d out of range", i, n.Hour)
		}
		if strings.TrimSpace(n.Text) == "" {
			return fmt.Errorf("notifications[%d]: text is required", i)
		}
	}
	return nil
}

// Seeders returns one named seeder per non-empty section.
func (f *File) Seeders(store Store) []bootstrap.NamedSeeder {
	var out []bootstrap.NamedSeeder
	if len(f.Tours) > 0 {
		out = append(out, bootstrap.NamedSeeder{Name: "tours", Seeder: bootstrap.SeederFunc(func(ctx context.Context) error {
			return store.PutTours(ctx, f.Tours)
		})})
	}
	if len(f.Participants) > 0 {
		out = append(out, rosterSeeder(store, domain.CollectionParticipants, f.Participants))
	}
	if len(f.Transfers) > 0 {
		out = append(out, rosterSeeder(store, domain.CollectionTransfers, f.Transfers))
	}
	if len(f.Notifications) > 0 {
		out = append(out, bootstrap.NamedSeeder{Name: "notifications", Seeder: bootstrap.SeederFunc(func(ctx context.Context) error {
			return store.PutNotifications(ctx, f.Notifications)
		})})
	}
	return out
}

func rosterSeeder(store Store, collection string, records []domain.Record) bootstrap.NamedSeeder {
	return bootstrap.NamedSeeder{Name: collection, Seeder: bootstrap.SeederFunc(func(ctx context.Context) error {
		return store.PutRoster(ctx, collection, records)
	})}
}

// Apply loads path into store. An empty path is a no-op.
func Apply(ctx context.Context, store Store, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := Load(path)
	if err != nil {
		return err
	}
	return bootstrap.RunSeeders(ctx, f.Seeders(store)...)
}

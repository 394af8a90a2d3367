package participants

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/storage/memory"
)

type failingStore struct {
	*memory.Store
}

func (failingStore) FindRoster(context.Context, string, string) ([]domain.Record, error) {
	return nil, errors.New("connection refused")
}

func booking(userID int64, tour string) domain.Participant {
	return domain.Participant{UserID: userID, Tour: tour, UserName: "Анна Смирнова", UserPhone: "+79110000000"}
}

func TestActiveBookingIsMonotonic(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New())

	if _, ok, err := r.ActiveBooking(ctx, 1); ok || err != nil {
		t.Fatalf("ActiveBooking before commit = %v, %v", ok, err)
	}
	if err := r.CommitBooking(ctx, booking(1, "Museum")); err != nil {
		t.Fatalf("CommitBooking: %v", err)
	}
	tour, ok, err := r.ActiveBooking(ctx, 1)
	if err != nil || !ok || tour != "Museum" {
		t.Fatalf("ActiveBooking = %q, %v, %v", tour, ok, err)
	}
	if err := r.CommitBooking(ctx, booking(1, "City Walk")); !errors.Is(err, domain.ErrAlreadyBooked) {
		t.Fatalf("second commit err = %v, want ErrAlreadyBooked", err)
	}
	tour, _, _ = r.ActiveBooking(ctx, 1)
	if tour != "Museum" {
		t.Fatalf("booking changed to %q", tour)
	}
}

func TestCommitBookingValidates(t *testing.T) {
	r := New(memory.New())
	p := booking(1, "Museum")
	p.UserPhone = ""
	if err := r.CommitBooking(context.Background(), p); err == nil {
		t.Fatalf("booking without phone accepted")
	}
}

func TestSetPassport(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	r := New(store)
	_ = r.CommitBooking(ctx, booking(5, "Museum"))
	if err := r.SetPassport(ctx, 5, " 4010 123456 "); err != nil {
		t.Fatalf("SetPassport: %v", err)
	}
	p, _ := store.FindBooking(ctx, 5)
	if p.UserPassport == nil || *p.UserPassport != "4010 123456" {
		t.Fatalf("passport = %v", p.UserPassport)
	}
	if err := r.SetPassport(ctx, 5, "  "); err == nil {
		t.Fatalf("blank passport accepted")
	}
}

func TestValidateChecksFieldLimits(t *testing.T) {
	r := New(memory.New())
	p := booking(6, "Museum")
	if err := r.Validate(p); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	p.UserName = strings.Repeat("Я", domain.MaxNameLen+1)
	if err := r.Validate(p); err == nil {
		t.Fatalf("long name accepted")
	}
	p = booking(6, "Museum")
	p.UserPhone = strings.Repeat("1", domain.MaxPhoneLen+1)
	if err := r.Validate(p); err == nil {
		t.Fatalf("long phone accepted")
	}
}

func TestLookupDistinguishesOutcomes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.PutRoster(ctx, domain.CollectionParticipants, []domain.Record{
		{"name": "Иванов Иван", "hotel_website": "https://hotel.example"},
		{"name": "Петров Пётр", "hotel_website": ""},
	})
	r := New(store)

	res := r.LookupByNamePrefix(ctx, domain.CollectionParticipants, "Иванов")
	if !res.Found() || res.Detail("hotel_website") != "https://hotel.example" {
		t.Fatalf("found lookup = %+v", res)
	}
	res = r.LookupByNamePrefix(ctx, domain.CollectionParticipants, "Петров")
	if !res.Found() || res.Detail("hotel_website") != "" {
		t.Fatalf("empty detail lookup = %+v", res)
	}
	res = r.LookupByNamePrefix(ctx, domain.CollectionParticipants, "Сидоров")
	if res.Found() || res.Err != nil {
		t.Fatalf("missing lookup = %+v", res)
	}
	res = r.LookupByNamePrefix(ctx, domain.CollectionParticipants, "Ив.*")
	if res.Found() {
		t.Fatalf("metacharacters treated as pattern")
	}

	res = New(failingStore{store}).LookupByNamePrefix(ctx, domain.CollectionParticipants, "Иванов")
	if res.Found() || res.Err == nil {
		t.Fatalf("storage failure lookup = %+v", res)
	}
}

func TestExportUnionOfColumns(t *testing.T) {
	ctx := context.Background()
	r := New(memory.New())
	_ = r.CommitBooking(ctx, booking(2, "Museum"))
	p := booking(1, "City Walk")
	passport := "4010 123456"
	p.UserPassport = &passport
	_ = r.CommitBooking(ctx, p)

	table, err := r.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := []string{"user_id", "tour", "user_name", "user_phone", "user_passport", "created_at"}
	if strings.Join(table.Columns, ",") != strings.Join(want, ",") {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 2 || table.Rows[1][4] != "" {
		t.Fatalf("rows = %v", table.Rows)
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[0] != strings.Join(want, ",") {
		t.Fatalf("csv = %q", buf.String())
	}
}

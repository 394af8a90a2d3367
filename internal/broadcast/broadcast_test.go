package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/eventbot/core/telegram/sender"
	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/participants"
	"github.com/m3rciful/eventbot/internal/storage/memory"
)

type recorder struct {
	mu    sync.Mutex
	chats []int64
	fail  map[int64]bool
}

func (r *recorder) send(_ context.Context, chatID int64, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[chatID] {
		return errors.New("Forbidden: bot was blocked by the user (403)")
	}
	r.chats = append(r.chats, chatID)
	return nil
}

func (r *recorder) sorted() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]int64(nil), r.chats...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	for _, id := range []int64{1, 2, 3, 4} {
		_ = s.UpsertUser(ctx, id)
	}
	for _, p := range []domain.Participant{
		{UserID: 1, Tour: "Museum", UserName: "A", UserPhone: "1"},
		{UserID: 3, Tour: "Museum", UserName: "B", UserPhone: "2"},
		{UserID: 4, Tour: "City Walk", UserName: "C", UserPhone: "3"},
	} {
		if err := s.InsertBooking(ctx, p); err != nil {
			t.Fatalf("InsertBooking: %v", err)
		}
	}
	return s
}

func TestToTourReachesOnlyParticipants(t *testing.T) {
	store := seedStore(t)
	rec := &recorder{}
	disp := sender.NewDispatcher(sender.Options{Workers: 2, RetryBackoff: time.Millisecond})
	defer disp.Close()

	b := New(store, participants.New(store), rec.send, disp)
	res, err := b.ToTour(context.Background(), "Museum", "Сбор у входа в 10:00")
	if err != nil {
		t.Fatalf("ToTour: %v", err)
	}
	if res.Total != 2 || res.Sent != 2 || res.Failed != 0 || res.JobID == "" {
		t.Fatalf("result = %+v", res)
	}
	got := rec.sorted()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("recipients = %v, want [1 3]", got)
	}
}

func TestToAllCountsFailuresWithoutStopping(t *testing.T) {
	store := seedStore(t)
	rec := &recorder{fail: map[int64]bool{2: true}}
	b := New(store, participants.New(store), rec.send, nil)

	res, err := b.ToAll(context.Background(), "hello")
	if err != nil {
		t.Fatalf("ToAll: %v", err)
	}
	if res.Total != 4 || res.Sent != 3 || res.Failed != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestClosedQueueCountsAsFailed(t *testing.T) {
	store := seedStore(t)
	rec := &recorder{}
	disp := sender.NewDispatcher(sender.Options{Workers: 1})
	disp.Close()

	b := New(store, participants.New(store), rec.send, disp)
	res, err := b.ToAll(context.Background(), "hello")
	if err != nil {
		t.Fatalf("ToAll: %v", err)
	}
	if res.Failed != 4 || res.Sent != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestEmptyTextRejected(t *testing.T) {
	store := seedStore(t)
	b := New(store, participants.New(store), (&recorder{}).send, nil)
	if _, err := b.ToAll(context.Background(), ""); err == nil {
		t.Fatalf("empty text accepted")
	}
}

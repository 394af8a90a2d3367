package state

import (
	"context"
	"sync"
	"testing"
	"time"
)

type draft struct {
	Step string
	Name string
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[draft]()

	if _, ok, err := store.Load(ctx, 1); err != nil || ok {
		t.Fatalf("expected idle user, ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, 1, draft{Step: "name"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Step != "name" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, 1); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestKeyedMutexSerializesSameUser(t *testing.T) {
	locks := NewKeyedMutex()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(42)
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
	if locks.size() != 0 {
		t.Fatalf("expected lock entries to be released, got %d", locks.size())
	}
}

func TestKeyedMutexDifferentUsersDoNotBlock(t *testing.T) {
	locks := NewKeyedMutex()
	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of another user should not wait")
	}
}

func TestRedisStoreKey(t *testing.T) {
	s := NewRedisStore[draft](nil, RedisOptions{Prefix: "eventbot:session"})
	if got := s.key(42); got != "eventbot:session:42" {
		t.Fatalf("key = %q", got)
	}
	if got := NewRedisStore[draft](nil, RedisOptions{}).key(7); got != "session:7" {
		t.Fatalf("default key = %q", got)
	}
}

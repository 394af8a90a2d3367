package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type updateCtx struct {
	tele.Context
	user   *tele.User
	update tele.Update
	values map[string]interface{}
}

func newUpdateCtx(userID int64, callback bool) *updateCtx {
	upd := tele.Update{ID: 1, Message: &tele.Message{Text: "hi"}}
	if callback {
		upd = tele.Update{ID: 1, Callback: &tele.Callback{Data: "tour"}}
	}
	return &updateCtx{user: &tele.User{ID: userID}, update: upd, values: map[string]interface{}{}}
}

func (u *updateCtx) Sender() *tele.User              { return u.user }
func (u *updateCtx) Chat() *tele.Chat                { return &tele.Chat{ID: u.user.ID} }
func (u *updateCtx) Update() tele.Update             { return u.update }
func (u *updateCtx) Get(key string) interface{}      { return u.values[key] }
func (u *updateCtx) Set(key string, val interface{}) { u.values[key] = val }

func TestRateLimitMiddleware(t *testing.T) {
	clock := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	var calls, limited int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		Exempt:    map[int64]struct{}{1: {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return clock },
	})(func(tele.Context) error { calls++; return nil })

	_ = h(newUpdateCtx(7, false))
	_ = h(newUpdateCtx(7, false))
	if calls != 1 || limited != 1 {
		t.Fatalf("calls=%d limited=%d, want 1/1", calls, limited)
	}

	_ = h(newUpdateCtx(7, true))
	if calls != 2 {
		t.Fatal("excluded callback was limited")
	}

	_ = h(newUpdateCtx(1, false))
	_ = h(newUpdateCtx(1, false))
	if calls != 4 {
		t.Fatal("exempt moderator was limited")
	}

	clock = clock.Add(2 * time.Second)
	_ = h(newUpdateCtx(7, false))
	if calls != 5 {
		t.Fatal("message after the interval was limited")
	}
}

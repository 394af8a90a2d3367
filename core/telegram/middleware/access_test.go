package middleware

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

type senderCtx struct {
	tele.Context
	user *tele.User
}

func (s senderCtx) Sender() *tele.User { return s.user }

func TestAdminOnlyMiddleware(t *testing.T) {
	var calls int
	next := func(tele.Context) error { calls++; return nil }

	h := AdminOnlyMiddleware(AdminOptions{AdminID: 7})(next)
	if err := h(senderCtx{user: &tele.User{ID: 8}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 0 {
		t.Fatal("non-admin should be ignored silently")
	}
	if err := h(senderCtx{user: &tele.User{ID: 7}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("admin call should pass, calls=%d", calls)
	}

	open := AdminOnlyMiddleware(AdminOptions{})(next)
	_ = open(senderCtx{user: &tele.User{ID: 7}})
	if calls != 1 {
		t.Fatal("without a configured admin nobody should pass")
	}
}

func TestAdminOnlyMiddlewareRejectHook(t *testing.T) {
	rejected := false
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:  1,
		OnReject: func(tele.Context) error { rejected = true; return nil },
	})(func(tele.Context) error { return nil })
	_ = h(senderCtx{user: &tele.User{ID: 2}})
	if !rejected {
		t.Fatal("expected reject hook to run")
	}
}

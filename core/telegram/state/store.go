// Package state persists per-user conversation sessions for Telegram bots.
package state

import "context"

// Store keeps one session value of type S per user.
// Load reports false when the user is idle.
type Store[S any] interface {
	Load(ctx context.Context, userID int64) (S, bool, error)
	Save(ctx context.Context, userID int64, session S) error
	Delete(ctx context.Context, userID int64) error
}

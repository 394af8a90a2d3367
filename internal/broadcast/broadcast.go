// Package broadcast fans one notification out to many chats.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/internal/domain"
)

// Users lists every known user.
type Users interface {
	UserIDs(ctx context.Context) ([]int64, error)
}

// Participants lists the bookings of a tour.
type Participants interface {
	TourParticipants(ctx context.Context, tour string) ([]domain.Participant, error)
}

// Queue runs sends asynchronously with retries. done receives the final outcome.
type Queue interface {
	Submit(ctx context.Context, action, endpoint string, run func() error, done func(error)) error
}

// SendFunc delivers text to one chat.
type SendFunc func(ctx context.Context, chatID int64, text string) error

// Target selects the recipients of a job: every user, or the participants of Tour.
type Target struct {
	Tour string
}

// All reports whether the job goes to every known user.
func (t Target) All() bool { return t.Tour == "" }

func (t Target) String() string {
	if t.All() {
		return "all"
	}
	return "tour:" + t.Tour
}

// Job is one notification to deliver.
type Job struct {
	ID     string
	Target Target
	Text   string
}

// NewJob assigns a fresh id.
func NewJob(target Target, text string) Job {
	return Job{ID: uuid.NewString(), Target: target, Text: text}
}

// Result counts the outcome of a job.
type Result struct {
	JobID  string
	Total  int
	Sent   int
	Failed int
}

// Broadcaster resolves recipients and sends to each independently.
type Broadcaster struct {
	users        Users
	participants Participants
	send         SendFunc
	queue        Queue
}

// New returns a Broadcaster. A nil queue sends inline, one recipient after another.
func New(users Users, participants Participants, send SendFunc, queue Queue) *Broadcaster {
	return &Broadcaster{users: users, participants: participants, send: send, queue: queue}
}

// ToAll notifies every known user.
func (b *Broadcaster) ToAll(ctx context.Context, text string) (Result, error) {
	return b.Broadcast(ctx, NewJob(Target{}, text))
}

// ToTour notifies the participants of tour.
func (b *Broadcaster) ToTour(ctx context.Context, tour, text string) (Result, error) {
	return b.Broadcast(ctx, NewJob(Target{Tour: tour}, text))
}

// Broadcast sends job.Text to every recipient and waits for all sends.
// A failed send is counted and never stops the others.
func (b *Broadcaster) Broadcast(ctx context.Context, job Job) (Result, error) {
	if job.Text == "" {
		return Result{JobID: job.ID}, errors.New("broadcast: empty text")
	}
	start := time.Now()
	recipients, err := b.recipients(ctx, job.Target)
	if err != nil {
		return Result{JobID: job.ID}, fmt.Errorf("broadcast %s: %w", job.Target, err)
	}

	var sent, failed atomic.Int64
	var wg sync.WaitGroup
	record := func(chatID int64, err error) {
		if err != nil {
			failed.Add(1)
			logger.LogEvent(ctx, logger.Broadcast, slog.LevelWarn, "broadcast.send",
				slog.String("job_id", job.ID), slog.Int64("chat_id", chatID),
				slog.String("status", "fail"), slog.Any("err", err))
			return
		}
		sent.Add(1)
	}

	for _, chatID := range recipients {
		chatID := chatID
		run := func() error { return b.send(ctx, chatID, job.Text) }
		if b.queue == nil {
			record(chatID, run())
			continue
		}
		wg.Add(1)
		done := func(err error) {
			record(chatID, err)
			wg.Done()
		}
		if err := b.queue.Submit(ctx, "broadcast.send", "sendMessage", run, done); err != nil {
			done(err)
		}
	}
	wg.Wait()

	res := Result{JobID: job.ID, Total: len(recipients), Sent: int(sent.Load()), Failed: int(failed.Load())}
	logger.LogEvent(ctx, logger.Broadcast, slog.LevelInfo, "broadcast.done",
		slog.String("job_id", job.ID),
		slog.String("target", job.Target.String()),
		slog.Int("recipients", res.Total),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Duration("duration_ms", logger.RoundMS(logger.Took(start))),
	)
	return res, nil
}

func (b *Broadcaster) recipients(ctx context.Context, target Target) ([]int64, error) {
	if target.All() {
		return b.users.UserIDs(ctx)
	}
	ps, err := b.participants.TourParticipants(ctx, target.Tour)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(ps))
	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		ids = append(ids, p.UserID)
	}
	return ids, nil
}

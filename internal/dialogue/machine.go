// Package dialogue runs the per-user conversations of the bot: tour booking,
// questions, residence and transfer lookups, and tour notifications.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/core/telegram/state"
	"github.com/m3rciful/eventbot/internal/broadcast"
	"github.com/m3rciful/eventbot/internal/content"
	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/events"
	"github.com/m3rciful/eventbot/internal/participants"
)

// Ledger is the tour capacity the machine consults.
type Ledger interface {
	AvailableTours(ctx context.Context, onlyFree bool) ([]domain.Tour, error)
	ValidateAndFetch(ctx context.Context, name string) (domain.Tour, error)
	Lookup(ctx context.Context, name string) (domain.Tour, error)
	Decrement(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// Registry is the booking and roster store the machine consults.
type Registry interface {
	ActiveBooking(ctx context.Context, userID int64) (string, bool, error)
	Booking(ctx context.Context, userID int64) (domain.Participant, bool, error)
	Validate(p domain.Participant) error
	CommitBooking(ctx context.Context, p domain.Participant) error
	SetPassport(ctx context.Context, userID int64, passport string) error
	LookupByNamePrefix(ctx context.Context, collection, name string) participants.LookupResult
}

// Broadcaster sends a notification to the participants of a tour.
type Broadcaster interface {
	ToTour(ctx context.Context, tour, text string) (broadcast.Result, error)
}

// Options wires a Machine.
type Options struct {
	Ledger      Ledger
	Registry    Registry
	Broadcaster Broadcaster
	// Publisher receives booking confirmations; nil disables publishing.
	Publisher events.Publisher
	// Sessions defaults to an in-memory store.
	Sessions state.Store[Session]
	Texts    content.Texts
	// QuestionsChat receives forwarded questions.
	QuestionsChat int64
	// Release shows the main menu after a residence lookup.
	Release bool
	// PhoneRegion is the default region for phone normalization.
	PhoneRegion string
}

// Machine is the dialogue engine. Inputs of one user are handled one at a time.
type Machine struct {
	ledger      Ledger
	registry    Registry
	broadcaster Broadcaster
	publisher   events.Publisher
	sessions    state.Store[Session]
	texts       content.Texts
	questions   int64
	release     bool
	region      string
	locks       *state.KeyedMutex
}

// New builds a Machine from opts.
func New(opts Options) *Machine {
	m := &Machine{
		ledger:      opts.Ledger,
		registry:    opts.Registry,
		broadcaster: opts.Broadcaster,
		publisher:   opts.Publisher,
		sessions:    opts.Sessions,
		texts:       opts.Texts,
		questions:   opts.QuestionsChat,
		release:     opts.Release,
		region:      opts.PhoneRegion,
		locks:       state.NewKeyedMutex(),
	}
	if m.publisher == nil {
		m.publisher = events.Nop{}
	}
	if m.sessions == nil {
		m.sessions = state.NewMemoryStore[Session]()
	}
	if m.region == "" {
		m.region = "RU"
	}
	return m
}

// EventKind classifies an input.
type EventKind int

const (
	// EventText is plain user text.
	EventText EventKind = iota
	// EventCommand is text starting with a slash.
	EventCommand
)

// Input is one user message fed to the machine.
type Input struct {
	UserID int64
	Text   string
	Kind   EventKind
}

// NewInput classifies text.
func NewInput(userID int64, text string) Input {
	text = strings.TrimSpace(text)
	kind := EventText
	if strings.HasPrefix(text, "/") {
		kind = EventCommand
	}
	return Input{UserID: userID, Text: text, Kind: kind}
}

// step is the result of a transition. A zero Next ends the dialogue.
type step struct {
	replies []Reply
	next    Session
}

type transition func(m *Machine, ctx context.Context, in Input, s Session) step

type transitionKey struct {
	state State
	kind  EventKind
}

var transitions map[transitionKey]transition

func init() {
	transitions = map[transitionKey]transition{
		{TourChoose, EventText}:         (*Machine).tourChoose,
		{TourDescription, EventText}:    (*Machine).tourDescription,
		{TourName, EventText}:           (*Machine).tourName,
		{TourPhone, EventText}:          (*Machine).tourPhone,
		{TourFinish, EventText}:         (*Machine).tourFinish,
		{TourPassport, EventText}:       (*Machine).tourPassport,
		{QuestionAsk, EventText}:        (*Machine).questionAsk,
		{QuestionAsk, EventCommand}:     (*Machine).questionCommand,
		{ResidenceEnterName, EventText}: (*Machine).residence,
		{TransferEnterName, EventText}:  (*Machine).transfer,
		{NotifyChooseTour, EventText}:   (*Machine).notifyChooseTour,
		{NotifyText, EventText}:         (*Machine).notifyText,
	}
}

// InProgress reports whether the user has an active dialogue.
func (m *Machine) InProgress(ctx context.Context, userID int64) bool {
	s, ok, err := m.sessions.Load(ctx, userID)
	if err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.load",
			slog.Int64("user_id", userID), slog.String("status", "fail"), slog.Any("err", err))
		return false
	}
	return ok && s.State != Idle
}

// Current returns the stored session of the user.
func (m *Machine) Current(ctx context.Context, userID int64) (Session, bool, error) {
	return m.sessions.Load(ctx, userID)
}

// Handle feeds one input to the user's dialogue and returns the replies to send.
// Inputs without a transition end the dialogue with the unknown-input hint.
func (m *Machine) Handle(ctx context.Context, in Input) ([]Reply, error) {
	unlock := m.locks.Lock(in.UserID)
	defer unlock()

	s, ok, err := m.sessions.Load(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session of %d: %w", in.UserID, err)
	}
	if !ok || s.State == Idle {
		return nil, nil
	}

	ctx = logger.WithFlow(ctx, s.State.Flow())
	start := time.Now()
	fn, found := transitions[transitionKey{s.State, in.Kind}]
	var st step
	if found {
		st = fn(m, ctx, in, s)
	} else {
		st = step{replies: []Reply{textReply(m.texts.Unknown)}}
	}
	if err := m.store(ctx, in.UserID, st.next); err != nil {
		return st.replies, err
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.transition",
		slog.Int64("user_id", in.UserID),
		slog.String("state", s.State.String()),
		slog.String("next_state", st.next.State.String()),
		slog.Duration("duration_ms", logger.RoundMS(logger.Took(start))),
	)
	return st.replies, nil
}

// Cancel ends any dialogue of the user and acknowledges with the keyboard removed.
func (m *Machine) Cancel(ctx context.Context, userID int64) ([]Reply, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()
	if err := m.sessions.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("cancel session of %d: %w", userID, err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.cancel",
		slog.Int64("user_id", userID), slog.String("outcome", "cancelled"))
	return []Reply{removeKeyboard(textReply(m.texts.Cancel))}, nil
}

// Interrupt discards the dialogue because another command arrived. A pending
// question is acknowledged as stopped.
func (m *Machine) Interrupt(ctx context.Context, userID int64) []Reply {
	unlock := m.locks.Lock(userID)
	defer unlock()
	s, ok, err := m.sessions.Load(ctx, userID)
	if err != nil || !ok {
		return nil
	}
	if err := m.sessions.Delete(ctx, userID); err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.interrupt",
			slog.Int64("user_id", userID), slog.String("status", "fail"), slog.Any("err", err))
		return nil
	}
	if s.State == QuestionAsk {
		return []Reply{removeKeyboard(textReply(m.texts.Cancel))}
	}
	return nil
}

// start replaces whatever dialogue the user had with the result of fn.
func (m *Machine) start(ctx context.Context, userID int64, flow string, fn func(ctx context.Context) step) ([]Reply, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()
	ctx = logger.WithFlow(ctx, flow)
	st := fn(ctx)
	if err := m.store(ctx, userID, st.next); err != nil {
		return st.replies, err
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.start",
		slog.Int64("user_id", userID), slog.String("next_state", st.next.State.String()))
	return st.replies, nil
}

func (m *Machine) store(ctx context.Context, userID int64, s Session) error {
	if s.State == Idle {
		if err := m.sessions.Delete(ctx, userID); err != nil {
			return fmt.Errorf("drop session of %d: %w", userID, err)
		}
		return nil
	}
	if err := m.sessions.Save(ctx, userID, s); err != nil {
		return fmt.Errorf("save session of %d: %w", userID, err)
	}
	return nil
}

func (m *Machine) unavailable(s Session, err error) step {
	logger.Dialogue.Error("storage failure",
		slog.String("event", "dialogue.storage"),
		slog.String("state", s.State.String()),
		slog.String("err", err.Error()),
	)
	return step{replies: []Reply{textReply(m.texts.ServiceUnavailable)}, next: s}
}

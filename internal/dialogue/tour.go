package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/core/telegram/format"
	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/events"
)

const publishTimeout = 5 * time.Second

// StartTour opens the booking flow with the list of tours that still have places.
func (m *Machine) StartTour(ctx context.Context, userID int64) ([]Reply, error) {
	return m.start(ctx, userID, "tour", func(ctx context.Context) step {
		p, booked, err := m.registry.Booking(ctx, userID)
		if err != nil {
			return m.unavailable(Session{}, err)
		}
		if booked {
			return m.alreadyBooked(ctx, p)
		}
		tours, err := m.ledger.AvailableTours(ctx, true)
		if err != nil {
			return m.unavailable(Session{}, err)
		}
		if len(tours) == 0 {
			return m.allSoldOut()
		}
		return step{
			replies: []Reply{
				textReply(m.texts.ToursIntro),
				withOptions(textReply(m.texts.ChooseTour), tourRows(tours)...),
			},
			next: withTour(TourDescription, TourDraft{}),
		}
	})
}

// alreadyBooked answers a booked user. A booking on a passport tour without a
// passport asks for it.
func (m *Machine) alreadyBooked(ctx context.Context, p domain.Participant) step {
	done := step{replies: []Reply{textReply(fmt.Sprintf(m.texts.AlreadyBooked, p.Tour)), mainMenu()}}
	if p.UserPassport != nil && *p.UserPassport != "" {
		return done
	}
	t, err := m.ledger.Lookup(ctx, p.Tour)
	if err != nil || !t.RequiresPassport {
		return done
	}
	return step{
		replies: []Reply{
			textReply(fmt.Sprintf(m.texts.AlreadyBooked, p.Tour)),
			removeKeyboard(textReply(m.texts.AskPassport)),
		},
		next: withTour(TourPassport, TourDraft{TourName: p.Tour, NeedsPassport: true, Booked: true}),
	}
}

func (m *Machine) tourChoose(ctx context.Context, in Input, s Session) step {
	tours, err := m.ledger.AvailableTours(ctx, true)
	if err != nil {
		return m.unavailable(s, err)
	}
	if len(tours) == 0 {
		return m.allSoldOut()
	}
	for _, t := range tours {
		if t.Name == in.Text {
			return m.describe(t)
		}
	}
	return step{
		replies: []Reply{withOptions(textReply(m.texts.ChooseTour), tourRows(tours)...)},
		next:    withTour(TourDescription, s.tour()),
	}
}

func (m *Machine) tourDescription(ctx context.Context, in Input, s Session) step {
	t, err := m.ledger.ValidateAndFetch(ctx, in.Text)
	if errors.Is(err, domain.ErrNotAvailable) {
		return m.soldOut(ctx, s)
	}
	if err != nil {
		return m.unavailable(s, err)
	}
	return m.describe(t)
}

func (m *Machine) tourName(ctx context.Context, in Input, s Session) step {
	if in.Text != m.texts.SignUp {
		return step{replies: []Reply{removeKeyboard(textReply(m.texts.Back)), mainMenu()}}
	}
	if st, ok := m.revalidate(ctx, s); !ok {
		return st
	}
	return step{
		replies: []Reply{
			htmlReply(m.texts.FormIntro),
			removeKeyboard(textReply(m.texts.AskName)),
		},
		next: withTour(TourPhone, s.tour()),
	}
}

func (m *Machine) tourPhone(ctx context.Context, in Input, s Session) step {
	if st, ok := m.revalidate(ctx, s); !ok {
		return st
	}
	if utf8.RuneCountInString(in.Text) > domain.MaxNameLen {
		return m.tooLong(s, domain.MaxNameLen, m.texts.AskName)
	}
	d := s.tour()
	d.UserName = in.Text
	return step{
		replies: []Reply{removeKeyboard(textReply(m.texts.AskPhone))},
		next:    withTour(TourFinish, d),
	}
}

func (m *Machine) tourFinish(ctx context.Context, in Input, s Session) step {
	d := s.tour()
	d.Phone = NormalizePhone(in.Text, m.region)
	if utf8.RuneCountInString(d.Phone) > domain.MaxPhoneLen {
		return m.tooLong(s, domain.MaxPhoneLen, m.texts.AskPhone)
	}
	t, err := m.ledger.ValidateAndFetch(ctx, d.TourName)
	if errors.Is(err, domain.ErrNotAvailable) {
		return m.soldOut(ctx, s)
	}
	if err != nil {
		return m.unavailable(s, err)
	}
	d.NeedsPassport = t.RequiresPassport
	if d.NeedsPassport {
		return step{
			replies: []Reply{removeKeyboard(textReply(m.texts.AskPassport))},
			next:    withTour(TourPassport, d),
		}
	}
	return m.commit(ctx, in.UserID, d)
}

func (m *Machine) tourPassport(ctx context.Context, in Input, s Session) step {
	d := s.tour()
	if d.Booked {
		return m.savePassport(ctx, in, s)
	}
	if st, ok := m.revalidate(ctx, s); !ok {
		return st
	}
	if utf8.RuneCountInString(in.Text) > domain.MaxPassportLen {
		return m.tooLong(s, domain.MaxPassportLen, m.texts.AskPassport)
	}
	d.Passport = in.Text
	return m.commit(ctx, in.UserID, d)
}

// savePassport completes an existing booking. The seat is already held, so
// capacity is not checked again.
func (m *Machine) savePassport(ctx context.Context, in Input, s Session) step {
	if utf8.RuneCountInString(in.Text) > domain.MaxPassportLen {
		return m.tooLong(s, domain.MaxPassportLen, m.texts.AskPassport)
	}
	if err := m.registry.SetPassport(ctx, in.UserID, in.Text); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return step{replies: []Reply{textReply(m.texts.ServiceUnavailable), mainMenu()}}
		}
		return m.unavailable(s, err)
	}
	return step{replies: []Reply{removeKeyboard(textReply(m.texts.PassportSaved)), mainMenu()}}
}

// tooLong re-asks the current question and keeps the draft.
func (m *Machine) tooLong(s Session, limit int, prompt string) step {
	return step{
		replies: []Reply{
			textReply(fmt.Sprintf(m.texts.InputTooLong, limit)),
			removeKeyboard(textReply(prompt)),
		},
		next: s,
	}
}

// commit books the seat: duplicate check, atomic decrement, conditional insert.
// A lost insert race gives the seat back.
func (m *Machine) commit(ctx context.Context, userID int64, d TourDraft) step {
	if tour, booked, err := m.registry.ActiveBooking(ctx, userID); err != nil {
		return m.unavailable(Session{}, err)
	} else if booked {
		return step{replies: []Reply{textReply(fmt.Sprintf(m.texts.AlreadyBooked, tour)), mainMenu()}}
	}

	p := domain.Participant{
		UserID:    userID,
		Tour:      d.TourName,
		UserName:  d.UserName,
		UserPhone: d.Phone,
	}
	if d.Passport != "" {
		passport := d.Passport
		p.UserPassport = &passport
	}
	if err := m.registry.Validate(p); err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.commit",
			slog.String("tour", d.TourName), slog.String("outcome", "invalid"), slog.String("err", err.Error()))
		return step{
			replies: []Reply{htmlReply(m.texts.FormIntro), removeKeyboard(textReply(m.texts.AskName))},
			next:    withTour(TourPhone, TourDraft{TourName: d.TourName, NeedsPassport: d.NeedsPassport}),
		}
	}

	if err := m.ledger.Decrement(ctx, d.TourName); err != nil {
		if errors.Is(err, domain.ErrNotAvailable) {
			return m.soldOut(ctx, withTour(TourChoose, d))
		}
		return m.unavailable(withTour(TourFinish, d), err)
	}
	if err := m.registry.CommitBooking(ctx, p); err != nil {
		if relErr := m.ledger.Release(ctx, d.TourName); relErr != nil {
			logger.Dialogue.Error("seat not released",
				slog.String("event", "dialogue.commit"),
				slog.String("tour", d.TourName),
				slog.String("err", relErr.Error()),
			)
		}
		if errors.Is(err, domain.ErrAlreadyBooked) {
			tour, _, _ := m.registry.ActiveBooking(ctx, userID)
			return step{replies: []Reply{textReply(fmt.Sprintf(m.texts.AlreadyBooked, tour)), mainMenu()}}
		}
		logger.Dialogue.Error("booking not stored",
			slog.String("event", "dialogue.commit"),
			slog.String("tour", d.TourName),
			slog.String("err", err.Error()),
		)
		return step{replies: []Reply{textReply(m.texts.ServiceUnavailable), mainMenu()}}
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	_ = m.publisher.PublishBookingConfirmed(pubCtx, events.NewBookingConfirmed(userID, d.TourName, d.UserName))
	cancel()

	return step{replies: []Reply{removeKeyboard(htmlReply(m.texts.BookingConfirmed)), mainMenu()}}
}

func (m *Machine) describe(t domain.Tour) step {
	desc := t.Description
	if desc == "" {
		desc = format.Bold(t.Name)
	}
	return step{
		replies: []Reply{withOptions(htmlReply(desc), []string{m.texts.SignUp, m.texts.BackButton})},
		next:    withTour(TourName, TourDraft{TourName: t.Name, NeedsPassport: t.RequiresPassport}),
	}
}

// revalidate checks the drafted tour still has a place. On failure it returns the step to take.
func (m *Machine) revalidate(ctx context.Context, s Session) (step, bool) {
	_, err := m.ledger.ValidateAndFetch(ctx, s.tour().TourName)
	if errors.Is(err, domain.ErrNotAvailable) {
		return m.soldOut(ctx, s), false
	}
	if err != nil {
		return m.unavailable(s, err), false
	}
	return step{}, true
}

// soldOut offers the remaining tours and moves back to tour choice.
func (m *Machine) soldOut(ctx context.Context, s Session) step {
	tours, err := m.ledger.AvailableTours(ctx, true)
	if err != nil {
		return m.unavailable(s, err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.sold_out",
		slog.String("tour", s.tour().TourName), slog.Int("free_places", 0))
	if len(tours) == 0 {
		st := m.allSoldOut()
		st.replies = append([]Reply{textReply(m.texts.TourSoldOut)}, st.replies...)
		return st
	}
	return step{
		replies: []Reply{withOptions(textReply(m.texts.TourSoldOut), tourRows(tours)...)},
		next:    withTour(TourChoose, TourDraft{}),
	}
}

func (m *Machine) allSoldOut() step {
	return step{replies: []Reply{removeKeyboard(textReply(m.texts.SoldOutAll)), mainMenu()}}
}

func tourRows(tours []domain.Tour) [][]string {
	rows := make([][]string, 0, len(tours))
	for _, t := range tours {
		rows = append(rows, []string{t.Name})
	}
	return rows
}

package dialogue

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/eventbot/internal/domain"
)

// StartNotify asks the moderator which tour's participants to notify.
func (m *Machine) StartNotify(ctx context.Context, userID int64) ([]Reply, error) {
	return m.start(ctx, userID, "notify", func(ctx context.Context) step {
		tours, err := m.ledger.AvailableTours(ctx, false)
		if err != nil {
			return m.unavailable(Session{}, err)
		}
		if len(tours) == 0 {
			return step{replies: []Reply{textReply(m.texts.NotifyChooseFromList)}}
		}
		return step{
			replies: []Reply{withOptions(textReply(m.texts.NotifyChooseTour), tourRows(tours)...)},
			next:    Session{State: NotifyChooseTour},
		}
	})
}

func (m *Machine) notifyChooseTour(ctx context.Context, in Input, s Session) step {
	t, err := m.ledger.Lookup(ctx, in.Text)
	if errors.Is(err, domain.ErrNotFound) {
		tours, lerr := m.ledger.AvailableTours(ctx, false)
		if lerr != nil {
			return m.unavailable(s, lerr)
		}
		return step{
			replies: []Reply{withOptions(textReply(m.texts.NotifyChooseFromList), tourRows(tours)...)},
			next:    s,
		}
	}
	if err != nil {
		return m.unavailable(s, err)
	}
	return step{
		replies: []Reply{removeKeyboard(textReply(fmt.Sprintf(m.texts.NotifyText, t.Name)))},
		next:    Session{State: NotifyText, Notice: &NoticeDraft{TourName: t.Name}},
	}
}

func (m *Machine) notifyText(ctx context.Context, in Input, s Session) step {
	res, err := m.broadcaster.ToTour(ctx, s.notice().TourName, in.Text)
	if err != nil {
		return step{replies: []Reply{textReply(m.texts.ServiceUnavailable)}}
	}
	return step{replies: []Reply{textReply(fmt.Sprintf(m.texts.NotifyDone, res.Sent, res.Failed))}}
}

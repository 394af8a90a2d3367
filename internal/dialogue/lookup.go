package dialogue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/eventbot/core/logger"
	"github.com/m3rciful/eventbot/core/telegram/format"
	"github.com/m3rciful/eventbot/internal/domain"
)

// hotelField holds the residence details of a participants record.
const hotelField = "hotel_website"

// StartQuestion waits for a question to forward to the questions chat.
func (m *Machine) StartQuestion(ctx context.Context, userID int64) ([]Reply, error) {
	return m.start(ctx, userID, "question", func(context.Context) step {
		return step{
			replies: []Reply{removeKeyboard(textReply(m.texts.QuestionPrompt))},
			next:    Session{State: QuestionAsk},
		}
	})
}

// StartResidence waits for a name to look up lodging details.
func (m *Machine) StartResidence(ctx context.Context, userID int64) ([]Reply, error) {
	return m.start(ctx, userID, "residence", func(context.Context) step {
		return step{replies: []Reply{textReply(m.texts.AskFullName)}, next: Session{State: ResidenceEnterName}}
	})
}

// StartTransfer waits for a name to look up arrival transfers.
func (m *Machine) StartTransfer(ctx context.Context, userID int64) ([]Reply, error) {
	return m.start(ctx, userID, "transfer", func(context.Context) step {
		return step{replies: []Reply{textReply(m.texts.AskFullName)}, next: Session{State: TransferEnterName}}
	})
}

func (m *Machine) questionAsk(ctx context.Context, in Input, _ Session) step {
	var replies []Reply
	if m.questions != 0 {
		replies = append(replies, Reply{
			Text:   fmt.Sprintf(m.texts.QuestionForward, format.Escape(in.Text), in.UserID),
			HTML:   true,
			ChatID: m.questions,
		})
	} else {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.question",
			slog.Int64("user_id", in.UserID), slog.String("status", "skip"))
	}
	return step{replies: append(replies, textReply(m.texts.QuestionAccepted))}
}

func (m *Machine) questionCommand(context.Context, Input, Session) step {
	return step{replies: []Reply{removeKeyboard(textReply(m.texts.Cancel)), mainMenu()}}
}

func (m *Machine) residence(ctx context.Context, in Input, _ Session) step {
	res := m.registry.LookupByNamePrefix(ctx, domain.CollectionParticipants, in.Text)
	var replies []Reply
	switch {
	case res.Err != nil:
		replies = []Reply{textReply(m.texts.ServiceUnavailable)}
	case !res.Found():
		replies = []Reply{textReply(m.texts.ResidenceNotFound)}
	case res.Detail(hotelField) == "":
		replies = []Reply{textReply(m.texts.ResidenceEmpty)}
	default:
		name := res.Records[0][domain.RosterKeyField(domain.CollectionParticipants)]
		replies = []Reply{
			removeKeyboard(htmlReply(fmt.Sprintf(m.texts.ResidenceHeader, format.Escape(name)))),
			textReply(res.Detail(hotelField)),
		}
	}
	if m.release {
		replies = append(replies, mainMenu())
	}
	return step{replies: replies}
}

func (m *Machine) transfer(ctx context.Context, in Input, _ Session) step {
	res := m.registry.LookupByNamePrefix(ctx, domain.CollectionTransfers, in.Text)
	if res.Err != nil {
		return step{replies: []Reply{textReply(m.texts.ServiceUnavailable)}}
	}
	if !res.Found() {
		return step{replies: []Reply{textReply(m.texts.TransferNotFound)}}
	}
	replies := make([]Reply, 0, len(res.Records))
	for _, rec := range res.Records {
		replies = append(replies, removeKeyboard(textReply(fmt.Sprintf(m.texts.TransferRecord,
			rec["full_name"], rec["arrival_date"], rec["arrival_time"], rec["flight_train_number"], rec["transfer"]))))
	}
	return step{replies: replies}
}

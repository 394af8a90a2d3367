package dialogue

import "fmt"

// State is the input a user's dialogue is waiting for.
type State int

// Dialogue states. Idle means no session is stored.
const (
	Idle State = iota
	TourChoose
	TourDescription
	TourName
	TourPhone
	TourFinish
	TourPassport
	QuestionAsk
	ResidenceEnterName
	TransferEnterName
	NotifyChooseTour
	NotifyText
)

var stateNames = map[State]string{
	Idle:               "IDLE",
	TourChoose:         "TOUR_CHOOSE",
	TourDescription:    "TOUR_DESCRIPTION",
	TourName:           "TOUR_NAME",
	TourPhone:          "TOUR_PHONE",
	TourFinish:         "TOUR_FINISH",
	TourPassport:       "TOUR_PASSPORT",
	QuestionAsk:        "QUESTION_ASK",
	ResidenceEnterName: "RESIDENCE_ENTER_NAME",
	TransferEnterName:  "TRANSFER_ENTER_NAME",
	NotifyChooseTour:   "NOTIFY_CHOOSE_TOUR",
	NotifyText:         "NOTIFY_TEXT",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

// Flow names the dialogue a state belongs to.
func (s State) Flow() string {
	switch s {
	case TourChoose, TourDescription, TourName, TourPhone, TourFinish, TourPassport:
		return "tour"
	case QuestionAsk:
		return "question"
	case ResidenceEnterName:
		return "residence"
	case TransferEnterName:
		return "transfer"
	case NotifyChooseTour, NotifyText:
		return "notify"
	default:
		return ""
	}
}

// MarshalText encodes the state by name so stored sessions survive reordering.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(b))
}

// TourDraft is the scratch of the tour booking flow.
type TourDraft struct {
	TourName      string `json:"tour_name"`
	UserName      string `json:"user_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Passport      string `json:"passport,omitempty"`
	NeedsPassport bool   `json:"needs_passport,omitempty"`
	// Booked marks a draft that completes an existing booking instead of creating one.
	Booked bool `json:"booked,omitempty"`
}

// NoticeDraft is the scratch of the tour notification flow.
type NoticeDraft struct {
	TourName string `json:"tour_name"`
}

// Session is the stored dialogue of one user. Tour states carry Tour,
// notify states carry Notice, other states carry nothing.
type Session struct {
	State  State        `json:"state"`
	Tour   *TourDraft   `json:"tour,omitempty"`
	Notice *NoticeDraft `json:"notice,omitempty"`
}

// withTour returns a session in state st whose tour draft is a copy of d.
func withTour(st State, d TourDraft) Session {
	return Session{State: st, Tour: &d}
}

func (s Session) tour() TourDraft {
	if s.Tour == nil {
		return TourDraft{}
	}
	return *s.Tour
}

func (s Session) notice() NoticeDraft {
	if s.Notice == nil {
		return NoticeDraft{}
	}
	return *s.Notice
}

package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventKind names what happened to the ledger or the goal store.
type EventKind string

const (
	EntryAdded  EventKind = "entry_added"
	EntryUndone EventKind = "entry_undone"
	GoalSet     EventKind = "goal_set"
)

// IntakeEvent is published after a mutation has been committed. It carries
// everything a downstream consumer needs, so consumers never read the
// bot's database.
type IntakeEvent struct {
	MessageID  string    `json:"message_id"`
	Kind       EventKind `json:"kind"`
	UserID     string    `json:"user_id"`
	EntryID    int64     `json:"entry_id,omitempty"`
	AmountML   int       `json:"amount_ml,omitempty"`
	GoalML     int       `json:"goal_ml,omitempty"`
	Day        string    `json:"day"`
	RecordedAt time.Time `json:"recorded_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewIntakeEvent creates an event with a fresh message ID.
func NewIntakeEvent(kind EventKind, userID string, day string, recordedAt time.Time) *IntakeEvent {
	return &IntakeEvent{
		MessageID:  uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		Day:        day,
		RecordedAt: recordedAt.UTC(),
		Timestamp:  time.Now().UTC(),
	}
}

// SignedAmountML is the event's effect on the day total.
func (e *IntakeEvent) SignedAmountML() int {
	switch e.Kind {
	case EntryAdded:
		return e.AmountML
	case EntryUndone:
		return -e.AmountML
	default:
		return 0
	}
}

func (e *IntakeEvent) Validate() error {
	if e.MessageID == "" {
		return errors.New("missing message id")
	}
	if e.UserID == "" {
		return errors.New("missing user id")
	}
	switch e.Kind {
	case EntryAdded, EntryUndone:
		if e.EntryID <= 0 || e.AmountML <= 0 {
			return errors.New("entry event needs entry id and positive amount")
		}
	case GoalSet:
		if e.GoalML <= 0 {
			return errors.New("goal event needs positive goal")
		}
	default:
		return errors.New("unknown event kind: " + string(e.Kind))
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *IntakeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// IntakeEventFromJSON decodes and validates a message body.
func IntakeEventFromJSON(data []byte) (*IntakeEvent, error) {
	var e IntakeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

package amqp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAck) Ack(multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAck) Nack(multiple, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func validEvent() *IntakeEvent {
	e := NewIntakeEvent(EntryAdded, "42", "2025-04-01", time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	e.EntryID = 7
	e.AmountML = 250
	return e
}

func TestHandleDelivery(t *testing.T) {
	body, err := validEvent().ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	t.Run("success acks", func(t *testing.T) {
		ack := &fakeAck{}
		var got *IntakeEvent
		handleDelivery(context.Background(), body, ack, func(_ context.Context, e *IntakeEvent) error {
			got = e
			return nil
		})
		if ack.acked != 1 || ack.nacked != 0 {
			t.Fatalf("expected ack, got %+v", ack)
		}
		if got == nil || got.EntryID != 7 || got.AmountML != 250 || got.Kind != EntryAdded {
			t.Fatalf("unexpected event %+v", got)
		}
	})

	t.Run("handler error rejects without requeue", func(t *testing.T) {
		ack := &fakeAck{}
		handleDelivery(context.Background(), body, ack, func(context.Context, *IntakeEvent) error {
			return errors.New("sheets down")
		})
		if ack.nacked != 1 || ack.requeue || ack.acked != 0 {
			t.Fatalf("expected nack without requeue, got %+v", ack)
		}
	})

	t.Run("garbage rejects without calling handler", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		handleDelivery(context.Background(), []byte("{not json"), ack, func(context.Context, *IntakeEvent) error {
			called = true
			return nil
		})
		if called || ack.nacked != 1 || ack.requeue {
			t.Fatalf("expected silent reject, called=%v ack=%+v", called, ack)
		}
	})
}

func TestIntakeEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *IntakeEvent)
		wantErr string
	}{
		{name: "valid", mutate: func(e *IntakeEvent) {}},
		{name: "missing message id", mutate: func(e *IntakeEvent) { e.MessageID = "" }, wantErr: "message id"},
		{name: "missing user", mutate: func(e *IntakeEvent) { e.UserID = "" }, wantErr: "user id"},
		{name: "entry without amount", mutate: func(e *IntakeEvent) { e.AmountML = 0 }, wantErr: "positive amount"},
		{name: "goal without value", mutate: func(e *IntakeEvent) { e.Kind = GoalSet }, wantErr: "positive goal"},
		{name: "unknown kind", mutate: func(e *IntakeEvent) { e.Kind = "spilled" }, wantErr: "unknown event kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestIntakeEventJSONRoundTrip(t *testing.T) {
	e := validEvent()
	body, err := e.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := IntakeEventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.MessageID != e.MessageID || !got.RecordedAt.Equal(e.RecordedAt) || got.Day != "2025-04-01" {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, e)
	}
}

func TestSignedAmount(t *testing.T) {
	e := validEvent()
	if e.SignedAmountML() != 250 {
		t.Fatalf("added: expected 250, got %d", e.SignedAmountML())
	}
	e.Kind = EntryUndone
	if e.SignedAmountML() != -250 {
		t.Fatalf("undone: expected -250, got %d", e.SignedAmountML())
	}
	e.Kind = GoalSet
	if e.SignedAmountML() != 0 {
		t.Fatalf("goal: expected 0, got %d", e.SignedAmountML())
	}
}

func TestNewIntakeEventUniqueIDs(t *testing.T) {
	a := NewIntakeEvent(GoalSet, "1", "2025-01-01", time.Now())
	b := NewIntakeEvent(GoalSet, "1", "2025-01-01", time.Now())
	if a.MessageID == b.MessageID {
		t.Fatal("message ids must be unique")
	}
}

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"waterbot/internal/amqp"
	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/sheets"
	"waterbot/internal/sheets/memory"
)

func moscow(t *testing.T) core.Calendar {
	t.Helper()
	cal, err := core.LoadCalendar("Europe/Moscow")
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	return cal
}

func TestHandleIntakeEventMirrorsSignedAmounts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := NewSyncWorker(store, moscow(t))
	at := time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC)

	added := amqp.NewIntakeEvent(amqp.EntryAdded, "42", "2025-04-01", at)
	added.EntryID, added.AmountML = 1, 300
	undone := amqp.NewIntakeEvent(amqp.EntryUndone, "42", "2025-04-01", at)
	undone.EntryID, undone.AmountML = 1, 300
	goal := amqp.NewIntakeEvent(amqp.GoalSet, "42", "2025-04-01", at)
	goal.GoalML = 2500

	for _, e := range []*amqp.IntakeEvent{added, undone, goal} {
		if err := w.HandleIntakeEvent(ctx, e); err != nil {
			t.Fatalf("handle %s: %v", e.Kind, err)
		}
	}

	rows := store.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].AmountML != 300 || rows[1].AmountML != -300 || rows[2].AmountML != 0 || rows[2].GoalML != 2500 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if got := rows[0].RecordedAt.Format("15:04"); got != "10:00" {
		t.Fatalf("recorded_at must be in the tracking zone, got %s", got)
	}
	if total := store.DayTotal("42", "2025-04-01"); total != 0 {
		t.Fatalf("expected mirrored day total 0, got %d", total)
	}
}

func TestHandleIntakeEventDerivesMissingDay(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, moscow(t))

	// 22:30 UTC is already the next day in Moscow.
	e := amqp.NewIntakeEvent(amqp.EntryAdded, "42", "", time.Date(2025, 4, 1, 22, 30, 0, 0, time.UTC))
	e.EntryID, e.AmountML = 5, 200
	if err := w.HandleIntakeEvent(context.Background(), e); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if day := store.Rows()[0].Day; day != "2025-04-02" {
		t.Fatalf("expected 2025-04-02, got %s", day)
	}
}

type failingWriter struct{}

func (failingWriter) AppendRow(context.Context, sheets.HistoryRow) (string, error) {
	return "", errors.New("sheets unavailable")
}

func TestHandleIntakeEventPropagatesWriteErrors(t *testing.T) {
	w := NewSyncWorker(failingWriter{}, moscow(t))
	e := amqp.NewIntakeEvent(amqp.GoalSet, "42", "2025-04-01", time.Now())
	e.GoalML = 2000
	if err := w.HandleIntakeEvent(context.Background(), e); err == nil {
		t.Fatal("expected error")
	}
}

func TestHandleIntakeEventLogsSheetsRef(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := NewSyncWorker(memory.New(), moscow(t))
	event := amqp.NewIntakeEvent(amqp.EntryAdded, "42", "2025-04-01", time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC))
	event.EntryID, event.AmountML = 1, 300
	if err := w.HandleIntakeEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	var mirrored map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		if rec[log.FieldOperation] == log.OpAppend {
			mirrored = rec
		}
	}
	if mirrored == nil {
		t.Fatalf("no append record in %s", buf.String())
	}
	if mirrored[log.FieldComponent] != log.ComponentSheets || mirrored[log.FieldSheetsRef] != "mem:1" ||
		mirrored[log.FieldMessageID] != event.MessageID || mirrored[log.FieldDay] != "2025-04-01" {
		t.Errorf("unexpected append record %v", mirrored)
	}
}

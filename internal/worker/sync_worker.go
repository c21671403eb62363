package worker

import (
	"context"
	"fmt"
	"log/slog"

	"waterbot/internal/amqp"
	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/sheets"
)

// SyncWorker mirrors intake events into the history sheet.
type SyncWorker struct {
	history  sheets.HistoryWriter
	calendar core.Calendar
}

func NewSyncWorker(history sheets.HistoryWriter, calendar core.Calendar) *SyncWorker {
	return &SyncWorker{
		history:  history,
		calendar: calendar,
	}
}

// HandleIntakeEvent appends one row per event. A returned error makes the
// consumer reject the message without requeue.
func (w *SyncWorker) HandleIntakeEvent(ctx context.Context, event *amqp.IntakeEvent) error {
	slog.InfoContext(ctx, "Processing intake event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpSync,
		log.FieldMessageID, event.MessageID,
		log.FieldKind, event.Kind,
		log.FieldUserID, event.UserID)

	row := w.rowFor(event)
	ref, err := w.history.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append history row: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored intake event",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpAppend,
		log.FieldMessageID, event.MessageID,
		log.FieldDay, row.Day,
		log.FieldSheetsRef, ref,
		log.FieldAmountML, row.AmountML)

	return nil
}

func (w *SyncWorker) rowFor(event *amqp.IntakeEvent) sheets.HistoryRow {
	day := event.Day
	if day == "" {
		day = w.calendar.DayOf(event.RecordedAt).String()
	}
	return sheets.HistoryRow{
		MessageID:  event.MessageID,
		RecordedAt: event.RecordedAt.In(w.calendar.Location()),
		Day:        day,
		UserID:     event.UserID,
		Kind:       string(event.Kind),
		AmountML:   event.SignedAmountML(),
		GoalML:     event.GoalML,
		EntryID:    event.EntryID,
	}
}

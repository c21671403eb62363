package sheets

import (
	"context"
	"errors"
	"time"
)

// HistoryRow is one mirrored ledger change. AmountML is signed: undo rows are
// negative so a per-day sum of the sheet matches the ledger total.
type HistoryRow struct {
	MessageID  string
	RecordedAt time.Time // in the tracking timezone
	Day        string
	UserID     string
	Kind       string
	AmountML   int
	GoalML     int
	EntryID    int64
}

var ErrInvalidRow = errors.New("invalid history row")

func (r HistoryRow) Validate() error {
	if r.MessageID == "" || r.UserID == "" || r.Kind == "" || r.Day == "" {
		return ErrInvalidRow
	}
	return nil
}

// Ports for outbound adapters.
type (
	// HistoryWriter appends rows to the intake history mirror. Appending a
	// row whose MessageID was already written is not an error.
	HistoryWriter interface {
		AppendRow(ctx context.Context, row HistoryRow) (rowRef string, err error)
	}
)

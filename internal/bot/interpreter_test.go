package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/services"
	"waterbot/internal/storage"
)

func newTestInterpreter(t *testing.T, now *time.Time) *Interpreter {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "water.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cal, err := core.LoadCalendar("Europe/Moscow")
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	svc := services.NewIntakeService(repo, repo, cal, services.Options{
		DefaultGoalML: 2000,
		BarWidth:      10,
		Clock:         func() time.Time { return *now },
	})
	return NewInterpreter(svc, log.Discard())
}

func TestInterpreterConversation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC)
	in := newTestInterpreter(t, &now)

	steps := []struct {
		text string
		want []string
	}{
		{text: "+300", want: []string{"Added 300 ml.", "Today: 300 / 2000 ml (15%)"}},
		{text: "+500", want: []string{"Today: 800 / 2000 ml (40%)"}},
		{text: "200", want: []string{"Today: 1000 / 2000 ml (50%)", "[█████░░░░░]"}},
		{text: "Stats", want: []string{"Stats for 2025-04-01", "Total: 1000 / 2000 ml (50%)", "Remaining: 1000 ml", "Latest: 200 ml · 500 ml · 300 ml"}},
		{text: "Undo", want: []string{"Removed 200 ml.", "Today: 800 / 2000 ml (40%)"}},
		{text: "/goal 800", want: []string{"New daily goal: 800 ml.", "Today: 800 / 800 ml (100%)", "[██████████]"}},
		{text: "/stats", want: []string{"Goal reached!"}},
		{text: "+1000", want: []string{"Today: 1800 / 800 ml (225%)", "[██████████]"}},
	}

	for _, step := range steps {
		now = now.Add(time.Minute)
		reply := in.HandleText(ctx, "42", step.text)
		if reply.Failed {
			t.Fatalf("%q failed: %s", step.text, reply.Text)
		}
		for _, want := range step.want {
			if !strings.Contains(reply.Text, want) {
				t.Fatalf("%q: reply %q does not contain %q", step.text, reply.Text, want)
			}
		}
	}
}

func TestInterpreterUndoAcrossMidnight(t *testing.T) {
	ctx := context.Background()
	// 23:50 Moscow
	now := time.Date(2025, 4, 1, 20, 50, 0, 0, time.UTC)
	in := newTestInterpreter(t, &now)

	in.HandleText(ctx, "42", "+500")
	now = now.Add(20 * time.Minute)

	reply := in.HandleText(ctx, "42", "/undo")
	if reply.Text != msgNothingToUndo {
		t.Fatalf("expected nothing to undo after midnight, got %q", reply.Text)
	}
	reply = in.HandleText(ctx, "42", "/stats")
	if !strings.Contains(reply.Text, "Stats for 2025-04-02") || !strings.Contains(reply.Text, "Total: 0 / 2000 ml (0%)") {
		t.Fatalf("unexpected stats %q", reply.Text)
	}
}

func TestInterpreterRejectsInvalidInput(t *testing.T) {
	now := time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC)
	in := newTestInterpreter(t, &now)

	tests := []struct {
		text string
		want string
	}{
		{text: "-5", want: "Amounts are whole millilitres"},
		{text: "0", want: "Amounts are whole millilitres"},
		{text: "/goal", want: "/goal 2000"},
		{text: "/goal -1", want: "Set the goal"},
	}
	for _, tt := range tests {
		reply := in.HandleText(context.Background(), "42", tt.text)
		if !reply.Failed || !strings.Contains(reply.Text, tt.want) {
			t.Fatalf("%q: expected failed reply containing %q, got %+v", tt.text, tt.want, reply)
		}
	}

	reply := in.HandleText(context.Background(), "42", "/stats")
	if !strings.Contains(reply.Text, "Total: 0 / 2000 ml") {
		t.Fatalf("rejected input must not reach the ledger: %q", reply.Text)
	}
}

func TestInterpreterUnknownAndHelp(t *testing.T) {
	now := time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC)
	in := newTestInterpreter(t, &now)

	if reply := in.HandleText(context.Background(), "42", "what?"); reply.Text != msgUnknown {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	if reply := in.HandleText(context.Background(), "42", "/help"); !strings.Contains(reply.Text, "Europe/Moscow") {
		t.Fatalf("help must name the timezone: %q", reply.Text)
	}
	if reply := in.HandleText(context.Background(), "42", "/start"); !strings.Contains(reply.Text, "/goal 2000") {
		t.Fatalf("unexpected start text %q", reply.Text)
	}
}

func TestInterpreterHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 4, 1, 7, 0, 0, 0, time.UTC)
	in := newTestInterpreter(t, &now)

	if reply := in.HandleText(ctx, "42", "/history"); reply.Text != msgNoHistory {
		t.Fatalf("expected empty history, got %q", reply.Text)
	}

	in.HandleText(ctx, "42", "+100")
	now = now.Add(24 * time.Hour)
	in.HandleText(ctx, "42", "+200")

	reply := in.HandleText(ctx, "42", "/history 5")
	want := "Last 2 entries:\n2025-04-02 10:00  200 ml\n2025-04-01 10:00  100 ml"
	if reply.Text != want {
		t.Fatalf("history = %q, want %q", reply.Text, want)
	}
}

// stubTracker returns canned results for failure paths.
type stubTracker struct {
	addResult services.AddResult
	err       error
}

func (s *stubTracker) Add(context.Context, core.UserID, int) (services.AddResult, error) {
	return s.addResult, s.err
}

func (s *stubTracker) Undo(context.Context, core.UserID) (services.UndoResult, error) {
	return services.UndoResult{}, s.err
}

func (s *stubTracker) SetGoal(context.Context, core.UserID, int) (core.Summary, error) {
	return core.Summary{}, s.err
}

func (s *stubTracker) Summary(context.Context, core.UserID) (core.Summary, error) {
	return core.Summary{}, s.err
}

func (s *stubTracker) History(context.Context, core.UserID, int) ([]core.Entry, error) {
	return nil, s.err
}

func (s *stubTracker) Calendar() core.Calendar {
	return core.NewCalendar(time.UTC)
}

func TestInterpreterStorageFailure(t *testing.T) {
	storageErr := fmt.Errorf("add entry: %w: disk I/O error", core.ErrStorage)
	in := NewInterpreter(&stubTracker{err: storageErr}, log.Discard())

	for _, text := range []string{"+200", "/undo", "/goal 1500", "/stats", "/history"} {
		reply := in.HandleText(context.Background(), "42", text)
		if !reply.Failed || reply.Text != msgStorage {
			t.Fatalf("%q: expected generic failure, got %+v", text, reply)
		}
	}
}

func TestInterpreterCommittedButSummaryUnavailable(t *testing.T) {
	err := fmt.Errorf("%w: %w", services.ErrSummaryUnavailable, core.ErrStorage)
	in := NewInterpreter(&stubTracker{
		addResult: services.AddResult{Entry: core.Entry{ID: 1, AmountML: 250}},
		err:       err,
	}, log.Discard())

	reply := in.HandleText(context.Background(), "42", "+250")
	if reply.Failed {
		t.Fatalf("a committed add must not be reported as failed: %+v", reply)
	}
	if !strings.HasPrefix(reply.Text, "Added 250 ml.") {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
}

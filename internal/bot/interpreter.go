package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/services"
)

// Tracker is the application surface the interpreter drives.
type Tracker interface {
	Add(ctx context.Context, user core.UserID, amountML int) (services.AddResult, error)
	Undo(ctx context.Context, user core.UserID) (services.UndoResult, error)
	SetGoal(ctx context.Context, user core.UserID, goalML int) (core.Summary, error)
	Summary(ctx context.Context, user core.UserID) (core.Summary, error)
	History(ctx context.Context, user core.UserID, limit int) ([]core.Entry, error)
	Calendar() core.Calendar
}

// Reply is the text sent back for one message.
type Reply struct {
	Text string
	// Failed is set when the requested action did not complete.
	Failed bool
}

const (
	msgUnknown       = "I didn't understand that. Use the buttons below or /help."
	msgNothingToUndo = "No entries today, nothing to undo."
	msgNoHistory     = "No entries yet."
	msgStorage       = "Sorry, I couldn't save or read your data right now. Please try again later."
)

type Interpreter struct {
	tracker Tracker
	logger  *log.Logger
}

func NewInterpreter(tracker Tracker, logger *log.Logger) *Interpreter {
	return &Interpreter{
		tracker: tracker,
		logger:  logger.WithComponent(log.ComponentBot),
	}
}

// HandleText parses and executes one chat message.
func (in *Interpreter) HandleText(ctx context.Context, user core.UserID, text string) Reply {
	action, err := Parse(text)
	if err != nil {
		in.logger.DebugContext(ctx, "Rejected input",
			log.FieldUserID, user,
			log.FieldAction, action.Kind.String(),
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		return in.invalidInput(err)
	}
	return in.Handle(ctx, user, action)
}

// Handle executes a parsed action for user.
func (in *Interpreter) Handle(ctx context.Context, user core.UserID, action Action) Reply {
	switch action.Kind {
	case ActionStart:
		return Reply{Text: in.startText()}
	case ActionHelp:
		return Reply{Text: in.helpText()}
	case ActionAdd:
		return in.add(ctx, user, action.AmountML)
	case ActionSetGoal:
		return in.setGoal(ctx, user, action.AmountML)
	case ActionStats:
		return in.stats(ctx, user)
	case ActionUndo:
		return in.undo(ctx, user)
	case ActionHistory:
		return in.history(ctx, user, action.Limit)
	default:
		return Reply{Text: msgUnknown}
	}
}

func (in *Interpreter) add(ctx context.Context, user core.UserID, amountML int) Reply {
	res, err := in.tracker.Add(ctx, user, amountML)
	if errors.Is(err, services.ErrSummaryUnavailable) {
		in.logFailure(ctx, user, ActionAdd, err)
		return Reply{Text: fmt.Sprintf("Added %d ml. Today's total is unavailable right now.", amountML)}
	}
	if err != nil {
		return in.failure(ctx, user, ActionAdd, err)
	}

	in.logger.InfoContext(ctx, "Intake recorded",
		log.FieldUserID, user,
		log.FieldEntryID, res.Entry.ID,
		log.FieldAmountML, amountML,
		log.FieldTotalML, res.Summary.Progress.TotalML)

	return Reply{Text: fmt.Sprintf("Added %d ml.\n%s", amountML, progressLines(res.Summary))}
}

func (in *Interpreter) undo(ctx context.Context, user core.UserID) Reply {
	res, err := in.tracker.Undo(ctx, user)
	if errors.Is(err, services.ErrSummaryUnavailable) {
		in.logFailure(ctx, user, ActionUndo, err)
		if !res.Found {
			return Reply{Text: msgNothingToUndo}
		}
		return Reply{Text: fmt.Sprintf("Removed %d ml. Today's total is unavailable right now.", res.Removed.AmountML)}
	}
	if err != nil {
		return in.failure(ctx, user, ActionUndo, err)
	}
	if !res.Found {
		return Reply{Text: msgNothingToUndo}
	}

	in.logger.InfoContext(ctx, "Intake undone",
		log.FieldUserID, user,
		log.FieldEntryID, res.Removed.ID,
		log.FieldAmountML, res.Removed.AmountML)

	return Reply{Text: fmt.Sprintf("Removed %d ml.\n%s", res.Removed.AmountML, progressLines(res.Summary))}
}

func (in *Interpreter) setGoal(ctx context.Context, user core.UserID, goalML int) Reply {
	summary, err := in.tracker.SetGoal(ctx, user, goalML)
	if errors.Is(err, services.ErrSummaryUnavailable) {
		in.logFailure(ctx, user, ActionSetGoal, err)
		return Reply{Text: fmt.Sprintf("New daily goal: %d ml.", goalML)}
	}
	if err != nil {
		return in.failure(ctx, user, ActionSetGoal, err)
	}

	in.logger.InfoContext(ctx, "Goal updated", log.FieldUserID, user, log.FieldGoalML, goalML)

	return Reply{Text: fmt.Sprintf("New daily goal: %d ml.\n%s", goalML, progressLines(summary))}
}

func (in *Interpreter) stats(ctx context.Context, user core.UserID) Reply {
	summary, err := in.tracker.Summary(ctx, user)
	if err != nil {
		return in.failure(ctx, user, ActionStats, err)
	}
	return Reply{Text: statsText(summary)}
}

func (in *Interpreter) history(ctx context.Context, user core.UserID, limit int) Reply {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := in.tracker.History(ctx, user, limit)
	if err != nil {
		return in.failure(ctx, user, ActionHistory, err)
	}
	if len(entries) == 0 {
		return Reply{Text: msgNoHistory}
	}

	cal := in.tracker.Calendar()
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d entries:", len(entries))
	for _, e := range entries {
		local := e.RecordedAt.In(cal.Location())
		fmt.Fprintf(&b, "\n%s  %d ml", local.Format("2006-01-02 15:04"), e.AmountML)
	}
	return Reply{Text: b.String()}
}

// invalidInput answers a value rejected before it reached the store.
func (in *Interpreter) invalidInput(err error) Reply {
	switch {
	case errors.Is(err, core.ErrInvalidGoal):
		return Reply{
			Text:   fmt.Sprintf("Set the goal in whole millilitres between 1 and %d, for example /goal 2000.", core.MaxGoalML),
			Failed: true,
		}
	case errors.Is(err, core.ErrInvalidAmount):
		return Reply{
			Text:   fmt.Sprintf("Amounts are whole millilitres between 1 and %d, for example +250.", core.MaxAmountML),
			Failed: true,
		}
	default:
		return Reply{Text: msgUnknown, Failed: true}
	}
}

func (in *Interpreter) failure(ctx context.Context, user core.UserID, kind ActionKind, err error) Reply {
	if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrInvalidGoal) {
		return in.invalidInput(err)
	}
	in.logFailure(ctx, user, kind, err)
	return Reply{Text: msgStorage, Failed: true}
}

func (in *Interpreter) logFailure(ctx context.Context, user core.UserID, kind ActionKind, err error) {
	errType := log.ErrorTypeInternal
	if errors.Is(err, core.ErrStorage) {
		errType = log.ErrorTypeDatabase
	}
	in.logger.ErrorContext(ctx, "Action failed",
		log.FieldUserID, user,
		log.FieldAction, kind.String(),
		log.FieldErrorType, errType,
		log.FieldError, err)
}

func (in *Interpreter) startText() string {
	return "Hi! I keep track of the water you drink.\n\n" +
		"Tap a quick button below to log a glass, or send an amount like 250.\n" +
		"Commands: /start, /help, /goal 2000, /stats, /undo, /history"
}

func (in *Interpreter) helpText() string {
	loc := in.tracker.Calendar().Location()
	return "How to use:\n" +
		"• Tap +100, +200, +300, +500 or +1000, or send any amount in ml.\n" +
		"• /goal 2000 sets your daily goal in millilitres.\n" +
		"• /stats or Stats shows today's progress.\n" +
		"• /undo or Undo removes today's latest entry.\n" +
		"• /history 10 lists your latest entries.\n" +
		fmt.Sprintf("Days start at midnight in the %s timezone.", loc.String())
}

func progressLines(s core.Summary) string {
	return fmt.Sprintf("Today: %d / %d ml (%d%%)\n[%s]",
		s.Progress.TotalML, s.Progress.GoalML, s.Progress.Percent(), s.Bar)
}

func statsText(s core.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stats for %s:\n", s.Day)
	fmt.Fprintf(&b, "Total: %d / %d ml (%d%%)\n[%s]\n",
		s.Progress.TotalML, s.Progress.GoalML, s.Progress.Percent(), s.Bar)
	if s.Progress.Reached() {
		b.WriteString("Goal reached!\n")
	} else {
		fmt.Fprintf(&b, "Remaining: %d ml\n", s.Progress.RemainingML())
	}
	if len(s.Recent) == 0 {
		b.WriteString("Latest: no entries")
		return b.String()
	}
	parts := make([]string, 0, len(s.Recent))
	for _, e := range s.Recent {
		parts = append(parts, fmt.Sprintf("%d ml", e.AmountML))
	}
	b.WriteString("Latest: " + strings.Join(parts, " · "))
	return b.String()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waterbot/internal/amqp"
	"waterbot/internal/core"
	"waterbot/internal/log"
)

// ErrSummaryUnavailable means the mutation committed but the follow-up read
// failed. Callers must not repeat the mutation.
var ErrSummaryUnavailable = errors.New("summary unavailable")

// Ledger is the durable store of intake entries.
type Ledger interface {
	AddEntry(ctx context.Context, user core.UserID, amountML int, now time.Time) (core.EntryID, error)
	UndoLast(ctx context.Context, user core.UserID, today core.Day) (core.Entry, bool, error)
	EntriesForDay(ctx context.Context, user core.UserID, day core.Day) ([]core.Entry, error)
	Recent(ctx context.Context, user core.UserID, limit int) ([]core.Entry, error)
}

// GoalStore holds one daily goal per user.
type GoalStore interface {
	SetGoal(ctx context.Context, user core.UserID, goalML int, now time.Time) error
	GetGoal(ctx context.Context, user core.UserID, defaultML int) (int, error)
}

// EventPublisher receives an event after each committed mutation.
type EventPublisher interface {
	PublishIntakeEvent(ctx context.Context, event *amqp.IntakeEvent) error
}

// Options tune an IntakeService. Zero values fall back to defaults.
type Options struct {
	DefaultGoalML int
	BarWidth      int
	// Clock returns the current instant. Tests pin it.
	Clock func() time.Time
	// Events is optional; nil disables publishing.
	Events EventPublisher
}

// AddResult is the outcome of recording an intake.
type AddResult struct {
	Entry   core.Entry
	Summary core.Summary
}

// UndoResult is the outcome of an undo. Found is false when today had no
// entries; that is a normal outcome, not an error.
type UndoResult struct {
	Removed core.Entry
	Found   bool
	Summary core.Summary
}

// IntakeService orchestrates the ledger, the goal store and the calendar.
// Each public action reads the clock once and derives "today" once, so an
// action straddling midnight still sees a single day.
type IntakeService struct {
	ledger      Ledger
	goals       GoalStore
	events      EventPublisher
	calendar    core.Calendar
	defaultGoal int
	barWidth    int
	now         func() time.Time
}

func NewIntakeService(ledger Ledger, goals GoalStore, calendar core.Calendar, opts Options) *IntakeService {
	s := &IntakeService{
		ledger:      ledger,
		goals:       goals,
		events:      opts.Events,
		calendar:    calendar,
		defaultGoal: opts.DefaultGoalML,
		barWidth:    opts.BarWidth,
		now:         opts.Clock,
	}
	if s.defaultGoal <= 0 {
		s.defaultGoal = core.DefaultGoalML
	}
	if s.barWidth <= 0 {
		s.barWidth = core.DefaultBarWidth
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *IntakeService) Calendar() core.Calendar {
	return s.calendar
}

func (s *IntakeService) DefaultGoalML() int {
	return s.defaultGoal
}

// Add records amountML for user now and returns the updated summary.
func (s *IntakeService) Add(ctx context.Context, user core.UserID, amountML int) (AddResult, error) {
	now := s.now().UTC()
	today := s.calendar.Today(now)

	id, err := s.ledger.AddEntry(ctx, user, amountML, now)
	if err != nil {
		return AddResult{}, fmt.Errorf("add entry: %w", err)
	}
	entry := core.Entry{ID: id, UserID: user, AmountML: amountML, RecordedAt: now}

	event := amqp.NewIntakeEvent(amqp.EntryAdded, user.String(), today.String(), now)
	event.EntryID = int64(id)
	event.AmountML = amountML
	s.publish(ctx, event)

	summary, err := s.summaryFor(ctx, user, today)
	if err != nil {
		return AddResult{Entry: entry}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}
	return AddResult{Entry: entry, Summary: summary}, nil
}

// Undo removes the latest entry of today, if any.
func (s *IntakeService) Undo(ctx context.Context, user core.UserID) (UndoResult, error) {
	now := s.now().UTC()
	today := s.calendar.Today(now)

	removed, found, err := s.ledger.UndoLast(ctx, user, today)
	if err != nil {
		return UndoResult{}, fmt.Errorf("undo last entry: %w", err)
	}

	if found {
		event := amqp.NewIntakeEvent(amqp.EntryUndone, user.String(), today.String(), removed.RecordedAt)
		event.EntryID = int64(removed.ID)
		event.AmountML = removed.AmountML
		s.publish(ctx, event)
	}

	summary, err := s.summaryFor(ctx, user, today)
	if err != nil {
		return UndoResult{Removed: removed, Found: found}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}
	return UndoResult{Removed: removed, Found: found, Summary: summary}, nil
}

// SetGoal overwrites the user's daily goal and returns today's summary
// measured against it.
func (s *IntakeService) SetGoal(ctx context.Context, user core.UserID, goalML int) (core.Summary, error) {
	now := s.now().UTC()
	today := s.calendar.Today(now)

	if err := s.goals.SetGoal(ctx, user, goalML, now); err != nil {
		return core.Summary{}, fmt.Errorf("set goal: %w", err)
	}

	event := amqp.NewIntakeEvent(amqp.GoalSet, user.String(), today.String(), now)
	event.GoalML = goalML
	s.publish(ctx, event)

	summary, err := s.summaryFor(ctx, user, today)
	if err != nil {
		return core.Summary{}, fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}
	return summary, nil
}

// Goal returns the user's goal or the default.
func (s *IntakeService) Goal(ctx context.Context, user core.UserID) (int, error) {
	goal, err := s.goals.GetGoal(ctx, user, s.defaultGoal)
	if err != nil {
		return 0, fmt.Errorf("get goal: %w", err)
	}
	return goal, nil
}

// Summary composes today's view for user.
func (s *IntakeService) Summary(ctx context.Context, user core.UserID) (core.Summary, error) {
	return s.SummaryAt(ctx, user, s.now())
}

// SummaryAt composes the view of the logical day containing now.
func (s *IntakeService) SummaryAt(ctx context.Context, user core.UserID, now time.Time) (core.Summary, error) {
	return s.summaryFor(ctx, user, s.calendar.Today(now))
}

// DailyTotal is the exact sum of the day's amounts.
func (s *IntakeService) DailyTotal(ctx context.Context, user core.UserID, day core.Day) (int, error) {
	entries, err := s.ledger.EntriesForDay(ctx, user, day)
	if err != nil {
		return 0, fmt.Errorf("entries for day: %w", err)
	}
	return core.DailyTotal(entries), nil
}

// Progress measures the day's total against the current goal.
func (s *IntakeService) Progress(ctx context.Context, user core.UserID, day core.Day) (core.Progress, error) {
	total, err := s.DailyTotal(ctx, user, day)
	if err != nil {
		return core.Progress{}, err
	}
	goal, err := s.Goal(ctx, user)
	if err != nil {
		return core.Progress{}, err
	}
	return core.NewProgress(total, goal), nil
}

// History returns up to limit entries across all days, most recent first.
func (s *IntakeService) History(ctx context.Context, user core.UserID, limit int) ([]core.Entry, error) {
	entries, err := s.ledger.Recent(ctx, user, limit)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	return entries, nil
}

func (s *IntakeService) summaryFor(ctx context.Context, user core.UserID, day core.Day) (core.Summary, error) {
	entries, err := s.ledger.EntriesForDay(ctx, user, day)
	if err != nil {
		return core.Summary{}, fmt.Errorf("entries for day: %w", err)
	}
	goal, err := s.Goal(ctx, user)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(day, entries, goal, s.barWidth), nil
}

// publish never fails the action: the mutation is already committed, and
// retrying here could duplicate downstream effects.
func (s *IntakeService) publish(ctx context.Context, event *amqp.IntakeEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishIntakeEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish intake event",
			log.FieldMessageID, event.MessageID,
			log.FieldKind, event.Kind,
			log.FieldUserID, event.UserID,
			log.FieldError, err)
	}
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// MaxAmountML bounds a single intake entry. Nobody drinks five litres in one go.
	MaxAmountML = 5000

	// MaxGoalML bounds the daily goal.
	MaxGoalML = 20000

	// DefaultGoalML applies when neither config nor the store provide a goal.
	DefaultGoalML = 2000
)

type (
	// UserID is the opaque stable identifier of a tracked user.
	UserID string

	// EntryID identifies a stored intake entry. Higher IDs were inserted later.
	EntryID int64

	Entry struct {
		ID         EntryID
		UserID     UserID
		AmountML   int
		RecordedAt time.Time // UTC
	}

	GoalSetting struct {
		UserID      UserID
		DailyGoalML int
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidGoal   = errors.New("invalid goal")
	ErrInvalidUser   = errors.New("invalid user id")

	// ErrStorage marks failures of the durable store. The triggering action
	// must be reported as failed and never retried automatically.
	ErrStorage = errors.New("storage failure")
)

func (u UserID) Validate() error {
	if strings.TrimSpace(string(u)) == "" {
		return ErrInvalidUser
	}
	return nil
}

func (u UserID) String() string {
	return string(u)
}

// ValidateAmount checks a single intake amount in millilitres.
func ValidateAmount(ml int) error {
	if ml <= 0 || ml > MaxAmountML {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateGoal checks a daily goal in millilitres.
func ValidateGoal(ml int) error {
	if ml <= 0 || ml > MaxGoalML {
		return ErrInvalidGoal
	}
	return nil
}

func (e Entry) Validate() error {
	if err := e.UserID.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(e.AmountML); err != nil {
		return err
	}
	if e.RecordedAt.IsZero() {
		return errors.New("recorded_at cannot be zero")
	}
	return nil
}

func (g GoalSetting) Validate() error {
	if err := g.UserID.Validate(); err != nil {
		return err
	}
	return ValidateGoal(g.DailyGoalML)
}

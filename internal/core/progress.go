package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultBarWidth is the number of segments in a rendered progress bar.
	DefaultBarWidth = 20

	barFilled = "█"
	barEmpty  = "░"
)

// Progress is today's total measured against the goal.
type Progress struct {
	TotalML int
	GoalML  int
	// Ratio is TotalML/GoalML. It is not clamped: 1.5 means 150%.
	Ratio decimal.Decimal
}

// DailyTotal sums entry amounts as integers.
func DailyTotal(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.AmountML
	}
	return total
}

// NewProgress computes the ratio of total to goal. A non-positive goal is
// treated as 1 ml so the ratio stays defined.
func NewProgress(totalML, goalML int) Progress {
	divisor := goalML
	if divisor <= 0 {
		divisor = 1
	}
	return Progress{
		TotalML: totalML,
		GoalML:  goalML,
		Ratio:   decimal.NewFromInt(int64(totalML)).Div(decimal.NewFromInt(int64(divisor))),
	}
}

// Percent returns the ratio as a whole percentage, half up, uncapped.
func (p Progress) Percent() int64 {
	return p.Ratio.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// RemainingML is how much is left to reach the goal, never negative.
func (p Progress) RemainingML() int {
	if p.TotalML >= p.GoalML {
		return 0
	}
	return p.GoalML - p.TotalML
}

func (p Progress) Reached() bool {
	return p.GoalML > 0 && p.TotalML >= p.GoalML
}

func (p Progress) Bar(width int) string {
	return ProgressBar(p.Ratio, width)
}

// FilledSegments quantizes ratio*width to whole segments: nearest segment,
// ties round up. The result is clamped to [0, width].
func FilledSegments(ratio decimal.Decimal, width int) int {
	if width <= 0 {
		return 0
	}
	// Round is half away from zero, which is "ties up" for non-negative input.
	filled := ratio.Mul(decimal.NewFromInt(int64(width))).Round(0)
	if filled.Sign() <= 0 {
		return 0
	}
	if filled.GreaterThan(decimal.NewFromInt(int64(width))) {
		return width
	}
	return int(filled.IntPart())
}

// ProgressBar renders a fixed-width bar for ratio.
func ProgressBar(ratio decimal.Decimal, width int) string {
	if width <= 0 {
		return ""
	}
	filled := FilledSegments(ratio, width)
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}

package core

import (
	"strconv"
	"strings"
)

const (
	// SummaryRecentLimit is how many of today's entries a summary lists.
	SummaryRecentLimit = 3

	// DefaultHistoryLimit applies when a history request names no size.
	DefaultHistoryLimit = 10
	// MaxHistoryLimit caps history requests.
	MaxHistoryLimit = 50
)

// Summary is the composed view of one logical day for one user.
type Summary struct {
	Day      Day
	Progress Progress
	Bar      string
	// Recent holds the day's latest entries, most recent first.
	Recent  []Entry
	Entries int
}

// Summarize builds a summary from the day's entries in ascending order.
func Summarize(day Day, entries []Entry, goalML, barWidth int) Summary {
	p := NewProgress(DailyTotal(entries), goalML)
	return Summary{
		Day:      day,
		Progress: p,
		Bar:      p.Bar(barWidth),
		Recent:   LatestFirst(entries, SummaryRecentLimit),
		Entries:  len(entries),
	}
}

// LatestFirst takes up to n entries from the tail of an ascending slice and
// returns them most recent first.
func LatestFirst(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}

// HistoryLimit falls back to the default for anything that is not a
// positive integer and caps large values.
func HistoryLimit(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return DefaultHistoryLimit
	}
	return min(n, MaxHistoryLimit)
}

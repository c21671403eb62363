package memory

import (
	"context"
	"fmt"
	"sync"

	ports "waterbot/internal/sheets"
)

var _ ports.HistoryWriter = (*Store)(nil)

// Store is an in-process HistoryWriter. It is used by tests and by the
// worker when no spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	rows  []ports.HistoryRow
	index map[string]int
}

func New() *Store {
	return &Store{index: map[string]int{}}
}

// AppendRow stores the row and returns a synthetic row reference. A repeated
// MessageID returns the reference of the first append.
func (s *Store) AppendRow(_ context.Context, row ports.HistoryRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[row.MessageID]; ok {
		return ref(i), nil
	}
	s.rows = append(s.rows, row)
	s.index[row.MessageID] = len(s.rows)
	return ref(len(s.rows)), nil
}

// Rows returns a copy of the stored rows in append order.
func (s *Store) Rows() []ports.HistoryRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.HistoryRow(nil), s.rows...)
}

// DayTotal sums the signed amounts mirrored for user on day.
func (s *Store) DayTotal(userID, day string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, r := range s.rows {
		if r.UserID == userID && r.Day == day {
			total += r.AmountML
		}
	}
	return total
}

func ref(n int) string {
	return fmt.Sprintf("mem:%d", n)
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"waterbot/internal/core"
)

type entryJSON struct {
	ID         int64     `json:"id"`
	AmountML   int       `json:"amount_ml"`
	RecordedAt time.Time `json:"recorded_at"`
}

type summaryJSON struct {
	Day         string          `json:"day"`
	TotalML     int             `json:"total_ml"`
	GoalML      int             `json:"goal_ml"`
	Ratio       decimal.Decimal `json:"ratio"`
	Percent     int64           `json:"percent"`
	RemainingML int             `json:"remaining_ml"`
	Reached     bool            `json:"reached"`
	Bar         string          `json:"bar"`
	Entries     int             `json:"entries"`
	Recent      []entryJSON     `json:"recent"`
}

type addResponse struct {
	Entry   entryJSON    `json:"entry"`
	Summary *summaryJSON `json:"summary,omitempty"`
}

type undoResponse struct {
	Found   bool         `json:"found"`
	Removed *entryJSON   `json:"removed,omitempty"`
	Summary *summaryJSON `json:"summary,omitempty"`
}

type historyResponse struct {
	Entries []entryJSON `json:"entries"`
}

// toEntryJSON keeps the instant in the zone that defines logical days.
func toEntryJSON(e core.Entry, loc *time.Location) entryJSON {
	return entryJSON{
		ID:         int64(e.ID),
		AmountML:   e.AmountML,
		RecordedAt: e.RecordedAt.In(loc),
	}
}

func toSummaryJSON(s core.Summary) *summaryJSON {
	loc := s.Day.Location()
	recent := make([]entryJSON, 0, len(s.Recent))
	for _, e := range s.Recent {
		recent = append(recent, toEntryJSON(e, loc))
	}
	return &summaryJSON{
		Day:         s.Day.String(),
		TotalML:     s.Progress.TotalML,
		GoalML:      s.Progress.GoalML,
		Ratio:       s.Progress.Ratio,
		Percent:     s.Progress.Percent(),
		RemainingML: s.Progress.RemainingML(),
		Reached:     s.Progress.Reached(),
		Bar:         s.Bar,
		Entries:     s.Entries,
		Recent:      recent,
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

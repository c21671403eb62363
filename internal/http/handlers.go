package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"waterbot/internal/core"
	"waterbot/internal/log"
	"waterbot/internal/services"
)

const maxBodyBytes = 1 << 10

type amountRequest struct {
	AmountML *int `json:"amount_ml"`
}

type goalRequest struct {
	GoalML *int `json:"goal_ml"`
}

func userFrom(r *http.Request) (core.UserID, error) {
	user := core.UserID(chi.URLParam(r, "id"))
	if err := user.Validate(); err != nil {
		return "", err
	}
	return user, nil
}

// decodeBody reads a small JSON object into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.tracker.Summary(r.Context(), user)
	if err != nil {
		s.fail(w, r, "summary", err)
		return
	}
	respondWithJSON(w, http.StatusOK, toSummaryJSON(summary))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.tracker.History(r.Context(), user, core.HistoryLimit(r.URL.Query().Get("limit")))
	if err != nil {
		s.fail(w, r, "history", err)
		return
	}

	resp := historyResponse{Entries: make([]entryJSON, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryJSON(e, s.location()))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AmountML == nil {
		respondWithError(w, http.StatusBadRequest, "amount_ml is required")
		return
	}

	res, err := s.tracker.Add(r.Context(), user, *req.AmountML)
	switch {
	case err == nil:
		s.logIntake(r, "Intake recorded via API", res.Entry)
		respondWithJSON(w, http.StatusCreated, addResponse{
			Entry:   toEntryJSON(res.Entry, s.location()),
			Summary: toSummaryJSON(res.Summary),
		})
	case errors.Is(err, services.ErrSummaryUnavailable):
		s.logIntake(r, "Intake recorded via API", res.Entry)
		s.summaryMissing(r, err)
		respondWithJSON(w, http.StatusCreated, addResponse{Entry: toEntryJSON(res.Entry, s.location())})
	default:
		s.fail(w, r, "add", err)
	}
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.tracker.Undo(r.Context(), user)
	if err != nil && !errors.Is(err, services.ErrSummaryUnavailable) {
		s.fail(w, r, "undo", err)
		return
	}

	resp := undoResponse{Found: res.Found}
	if res.Found {
		removed := toEntryJSON(res.Removed, s.location())
		resp.Removed = &removed
		s.logIntake(r, "Intake undone via API", res.Removed)
	}
	if err != nil {
		s.summaryMissing(r, err)
	} else {
		resp.Summary = toSummaryJSON(res.Summary)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	user, err := userFrom(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req goalRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GoalML == nil {
		respondWithError(w, http.StatusBadRequest, "goal_ml is required")
		return
	}

	summary, err := s.tracker.SetGoal(r.Context(), user, *req.GoalML)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, toSummaryJSON(summary))
	case errors.Is(err, services.ErrSummaryUnavailable):
		s.summaryMissing(r, err)
		respondWithJSON(w, http.StatusOK, map[string]int{"goal_ml": *req.GoalML})
	default:
		s.fail(w, r, "set_goal", err)
	}
}

// fail maps a service error to a status: bad input is 400, storage is 503.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("amount_ml must be between 1 and %d", core.MaxAmountML))
		return
	case errors.Is(err, core.ErrInvalidGoal):
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("goal_ml must be between 1 and %d", core.MaxGoalML))
		return
	case errors.Is(err, core.ErrInvalidUser):
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	errorType := log.ErrorTypeInternal
	status := http.StatusInternalServerError
	if errors.Is(err, core.ErrStorage) {
		errorType = log.ErrorTypeDatabase
		status = http.StatusServiceUnavailable
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "API action failed", err, action, log.LogFields{log.FieldErrorType: errorType})
	respondWithError(w, status, http.StatusText(status))
}

func (s *Server) summaryMissing(r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Action committed but summary unavailable",
		log.FieldErrorType, log.ErrorTypeDatabase,
		log.FieldError, err)
}

func (s *Server) logIntake(r *http.Request, msg string, e core.Entry) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogIntake(r.Context(), msg, e.UserID.String(), int64(e.ID), e.AmountML)
}

func (s *Server) location() *time.Location {
	return s.tracker.Calendar().Location()
}

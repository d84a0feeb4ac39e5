package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mcq-quiz-service/internal/domain"

	"go.uber.org/zap"
)

func (h *Handler) getQuestions(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.StartAttempt(r.Context())
	if err != nil {
		h.log.Error("failed to load questions", zap.Error(err))
		writeError(w, statusFor(err), "Failed to load questions")
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// saveResultsRequest accepts both client generations: name/phone with positional
// answers, and userName/userPhone with answers keyed by question id. Reported scores
// are ignored.
type saveResultsRequest struct {
	SessionID   string          `json:"sessionId"`
	QuestionIDs []int           `json:"questionIds"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	UserName    string          `json:"userName"`
	UserPhone   string          `json:"userPhone"`
	Answers     json.RawMessage `json:"answers"`
	TimeSpent   *int            `json:"timeSpent"`
}

type saveResultsResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Percentage     int    `json:"percentage"`
	Persisted      bool   `json:"persisted"`
}

func (h *Handler) saveResults(w http.ResponseWriter, r *http.Request) {
	var req saveResultsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub := domain.Submission{
		AttemptID:   req.SessionID,
		QuestionIDs: req.QuestionIDs,
		Name:        firstNonEmpty(req.Name, req.UserName),
		Phone:       firstNonEmpty(req.Phone, req.UserPhone),
		TimeSpent:   -1,
	}
	if req.TimeSpent != nil {
		sub.TimeSpent = *req.TimeSpent
	}
	sub.Answers, sub.AnswersByID = decodeAnswers(req.Answers)

	outcome, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			h.log.Error("failed to save results", zap.Error(err))
			writeError(w, statusFor(err), "Failed to save results")
			return
		}
		writeError(w, statusFor(err), err.Error())
		return
	}

	msg := "Results saved successfully"
	if !outcome.Persisted {
		msg = "Results recorded but could not be stored"
	}
	writeJSON(w, http.StatusOK, saveResultsResponse{
		Success:        true,
		Message:        msg,
		Score:          outcome.Score.Correct,
		TotalQuestions: outcome.Score.Total,
		Percentage:     outcome.Score.Percentage,
		Persisted:      outcome.Persisted,
	})
}

// decodeAnswers reads either a JSON array (positional) or an object keyed by question
// id. Elements that are not strings become unanswered; object keys that are not
// integers are dropped.
func decodeAnswers(raw json.RawMessage) ([]domain.OptionKey, map[int]domain.OptionKey) {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]domain.OptionKey, len(list))
		for i, item := range list {
			out[i] = rawAnswer(item)
		}
		return out, nil
	}

	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err == nil && byID != nil {
		out := make(map[int]domain.OptionKey, len(byID))
		for k, item := range byID {
			id, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			out[id] = rawAnswer(item)
		}
		return nil, out
	}
	return nil, nil
}

func rawAnswer(item json.RawMessage) domain.OptionKey {
	var s string
	if err := json.Unmarshal(item, &s); err != nil {
		return domain.NoAnswer
	}
	return domain.OptionKey(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/infra/export"
	"quiz-miniapp/internal/metrics"
)

const maxBodyBytes = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type quizResponse struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Questions    domain.Questions `json:"questions"`
	IsRepassable bool             `json:"is_repassable"`
	Layout       string           `json:"layout,omitempty"`
}

type createResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListForUser(r.Context(), UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	quiz, err := h.service.GetForAttempt(r.Context(), quizID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{
		ID:           quiz.ID,
		Title:        quiz.Title,
		Description:  quiz.Description,
		Questions:    quiz.Questions,
		IsRepassable: quiz.IsRepassable,
		Layout:       quiz.Layout,
	})
}

// submit stores a finished attempt. Verified callers always submit as
// themselves; in dev mode the body's user_id wins when present.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	quizID, err := pathID(r)
	if err != nil {
		h.rejectSubmission(w, r, err)
		return
	}
	var sub domain.Submission
	if err := decodeBody(w, r, &sub); err != nil {
		h.rejectSubmission(w, r, err)
		return
	}
	if h.identity.Verified() || sub.UserID == 0 {
		sub.UserID = UserID(r.Context())
	}
	sub.QuizID = quizID

	outcome, err := h.submits.record(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) rejectSubmission(w http.ResponseWriter, r *http.Request, err error) {
	if h.metrics != nil {
		h.metrics.ObserveSubmission(metrics.SubmissionRejected)
	}
	h.fail(w, r, err)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.CreateQuizRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Message: "Quiz created successfully", ID: id})
}

func (h *Handler) exportJSON(w http.ResponseWriter, r *http.Request) {
	dump, err := h.service.Export(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := export.WriteJSON(w, dump); err != nil {
		h.logger.Warn("write export", zap.Error(err))
	}
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	dump, err := h.service.Export(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := export.Workbook(dump)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="quiz-export.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

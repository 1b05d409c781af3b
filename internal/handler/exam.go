package handler

import (
	"net/http"

	"github.com/pavelanni/quizdesk/internal/examrun"
	appI18n "github.com/pavelanni/quizdesk/internal/i18n"
	"github.com/pavelanni/quizdesk/internal/model"
)

// handleExamStart begins or resumes the exam run for the caller and quiz.
// The countdown in the response is derived from the persisted start
// timestamp, so a page reload does not reset the clock. An already-submitted
// quiz reports the run as ended.
func (h *Handler) handleExamStart(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	quizID, err := quizIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}
	quiz, err := h.store.GetQuiz(quizID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	already, err := h.store.HasResult(user.ID, quiz.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if already {
		writeJSON(w, http.StatusOK, map[string]any{
			"exam":    examrun.Snapshot{Status: model.ExamEnded, RemainingSeconds: examrun.Untimed, EndCause: model.EndCauseSubmitted},
			"message": appI18n.T(r.Context(), "ExamEnded"),
		})
		return
	}

	snap, err := h.runner.Start(user.ID, quiz.ID, quiz.TimeLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]any{"exam": snap}
	if snap.Status == model.ExamEnded {
		resp["message"] = h.endMessage(r, snap)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExamViolation records one focus-loss event and returns the
// escalation outcome with a localized warning for the client to display.
func (h *Handler) handleExamViolation(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	quizID, err := quizIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}
	quiz, err := h.store.GetQuiz(quizID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	outcome, snap, err := h.runner.Violation(user.ID, quiz.ID, quiz.TimeLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"outcome": outcome,
		"exam":    snap,
	}
	switch outcome {
	case examrun.OutcomeWarning:
		resp["message"] = appI18n.Td(r.Context(), "ViolationWarning", map[string]any{
			"Count": snap.Violations,
			"Max":   h.runner.MaxViolations(),
		})
	case examrun.OutcomeFinalWarning:
		resp["message"] = appI18n.T(r.Context(), "ViolationFinalWarning")
	case examrun.OutcomeEnded:
		resp["message"] = appI18n.T(r.Context(), "ViolationEnded")
	case examrun.OutcomeIgnored:
		if snap.Status == model.ExamEnded {
			resp["message"] = h.endMessage(r, snap)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) endMessage(r *http.Request, snap examrun.Snapshot) string {
	switch snap.EndCause {
	case model.EndCauseExpired:
		return appI18n.T(r.Context(), "TimeExpired")
	case model.EndCauseViolations:
		return appI18n.T(r.Context(), "ViolationEnded")
	default:
		return appI18n.T(r.Context(), "ExamEnded")
	}
}

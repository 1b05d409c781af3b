package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/quizdesk/internal/i18n"
	"github.com/pavelanni/quizdesk/internal/model"
	"github.com/pavelanni/quizdesk/internal/store"
)

type questionPayload struct {
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer *int     `json:"correctAnswer" validate:"required"`
}

type quizRequest struct {
	Title     string            `json:"title" validate:"required"`
	Questions []questionPayload `json:"questions" validate:"required,min=1,dive"`
	TimeLimit int               `json:"timeLimit" validate:"gte=0"`
}

// toModel converts the payload after checking that every correct-option
// index lands inside its question's option list. validator/v10 cannot
// express the cross-field bound, so it is checked here.
func (q quizRequest) toModel() (model.Quiz, error) {
	quiz := model.Quiz{Title: q.Title, TimeLimit: q.TimeLimit}
	for i, p := range q.Questions {
		idx := *p.CorrectAnswer
		if idx < 0 || idx >= len(p.Options) {
			return quiz, errorsOutOfBounds(i, idx)
		}
		quiz.Questions = append(quiz.Questions, model.Question{
			Question:      p.Question,
			Options:       p.Options,
			CorrectAnswer: p.CorrectAnswer,
		})
	}
	return quiz, nil
}

type outOfBoundsError struct {
	question, index int
}

func (e outOfBoundsError) Error() string {
	return "question " + strconv.Itoa(e.question) + ": correctAnswer " +
		strconv.Itoa(e.index) + " is outside the option list"
}

func errorsOutOfBounds(question, index int) error {
	return outOfBoundsError{question: question, index: index}
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	quiz, err := req.toModel()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	quiz.CreatedBy = model.UserFromContext(r.Context()).ID

	id, err := h.store.CreateQuiz(quiz)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.store.GetQuiz(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": appI18n.T(r.Context(), "QuizCreated"),
		"quiz":    created,
	})
}

func (h *Handler) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := quizIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}

	var req quizRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	quiz, err := req.toModel()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	quiz.ID = id

	if err := h.store.UpdateQuiz(quiz); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.store.GetQuiz(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": appI18n.T(r.Context(), "QuizUpdated"),
		"quiz":    updated,
	})
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := quizIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid quiz ID")
		return
	}
	if err := h.store.DeleteQuiz(id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, appI18n.T(r.Context(), "QuizDeleted"))
}

// handleListQuizzes serves both the student and the admin listing. The
// answer key is stripped for every caller; no listing consumer ever sees
// correct-option indices.
func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.store.ListQuizzes()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stripped := make([]model.Quiz, len(quizzes))
	for i, q := range quizzes {
		stripped[i] = q.StripAnswers()
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": stripped})
}

type submitRequest struct {
	QuizID    int64          `json:"quizId" validate:"required"`
	Answers   []model.Answer `json:"answers"`
	TimeTaken int            `json:"timeTaken" validate:"gte=0"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req submitRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	quiz, err := h.store.GetQuiz(req.QuizID)
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
		writeMessage(w, http.StatusBadRequest, appI18n.T(r.Context(), "AlreadySubmitted"))
		return
	}

	seen := make(map[int]bool, len(req.Answers))
	for _, a := range req.Answers {
		if seen[a.QuestionIndex] {
			writeMessage(w, http.StatusBadRequest, appI18n.T(r.Context(), "DuplicateAnswers"))
			return
		}
		seen[a.QuestionIndex] = true
	}

	// Unmatched question indices contribute zero; they are not an error.
	score := 0
	for _, a := range req.Answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(quiz.Questions) {
			continue
		}
		q := quiz.Questions[a.QuestionIndex]
		if q.CorrectAnswer != nil && *q.CorrectAnswer == a.SelectedOption {
			score++
		}
	}

	answers := req.Answers
	if answers == nil {
		answers = []model.Answer{}
	}
	_, err = h.store.CreateResult(model.Result{
		UserID:    user.ID,
		QuizID:    quiz.ID,
		Answers:   answers,
		Score:     score,
		TimeLimit: quiz.TimeLimit,
		TimeTaken: req.TimeTaken,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// The unique index caught a concurrent duplicate that slipped past
		// the pre-check above.
		writeMessage(w, http.StatusBadRequest, appI18n.T(r.Context(), "AlreadySubmitted"))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// A successful submission ends any active exam run for the pair; losing
	// the race to another trigger is fine.
	if _, err := h.runner.End(user.ID, quiz.ID, model.EndCauseSubmitted); err != nil {
		h.writeError(w, r, err)
		return
	}

	// The submitter is never told the score.
	writeMessage(w, http.StatusCreated, appI18n.T(r.Context(), "QuizSubmitted"))
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if results == nil {
		results = []model.ResultView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func quizIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
}

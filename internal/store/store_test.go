package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pavelanni/quizdesk/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestUser(t *testing.T, s *Store, email string, role model.UserRole) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     "user-" + email,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("insertTestUser: %v", err)
	}
	return id
}

func intPtr(v int) *int { return &v }

func insertTestQuiz(t *testing.T, s *Store, title string, numQuestions int) int64 {
	t.Helper()
	questions := make([]model.Question, numQuestions)
	for i := range questions {
		questions[i] = model.Question{
			Question:      fmt.Sprintf("%s question %d", title, i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: intPtr(i % 4),
		}
	}
	id, err := s.CreateQuiz(model.Quiz{Title: title, Questions: questions, TimeLimit: 10})
	if err != nil {
		t.Fatalf("insertTestQuiz: %v", err)
	}
	return id
}

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)

	// Missing users come back nil without an error.
	u, err := s.GetUserByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil user, got %+v", u)
	}

	id := insertTestUser(t, s, "alice@example.com", model.UserRoleStudent)

	u, err = s.GetUserByID(id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("expected email alice@example.com, got %q", u.Email)
	}
	if u.Role != model.UserRoleStudent {
		t.Errorf("expected role student, got %q", u.Role)
	}
	if !u.Active {
		t.Error("expected user to be active")
	}

	u, err = s.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u == nil || u.ID != id {
		t.Errorf("expected user %d by email, got %+v", id, u)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	insertTestUser(t, s, "alice@example.com", model.UserRoleStudent)

	_, err := s.CreateUser(model.User{
		Username:     "other",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAdminCount(t *testing.T) {
	s := newTestStore(t)

	count, err := s.AdminCount()
	if err != nil {
		t.Fatalf("AdminCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 admins, got %d", count)
	}

	insertTestUser(t, s, "admin@example.com", model.UserRoleAdmin)
	insertTestUser(t, s, "student@example.com", model.UserRoleStudent)

	count, err = s.AdminCount()
	if err != nil {
		t.Fatalf("AdminCount: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 admin, got %d", count)
	}
}

func TestQuizCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty store.
	quizzes, err := s.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(quizzes) != 0 {
		t.Fatalf("expected empty list, got %d", len(quizzes))
	}

	id := insertTestQuiz(t, s, "Go Basics", 3)

	q, err := s.GetQuiz(id)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if q.Title != "Go Basics" {
		t.Errorf("expected title 'Go Basics', got %q", q.Title)
	}
	if len(q.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(q.Questions))
	}
	// Questions preserve insertion order and the answer key.
	if q.Questions[1].Question != "Go Basics question 2" {
		t.Errorf("unexpected second question: %q", q.Questions[1].Question)
	}
	if q.Questions[1].CorrectAnswer == nil || *q.Questions[1].CorrectAnswer != 1 {
		t.Errorf("expected correct answer 1 on second question, got %v", q.Questions[1].CorrectAnswer)
	}
	if len(q.Questions[0].Options) != 4 {
		t.Errorf("expected 4 options, got %d", len(q.Questions[0].Options))
	}

	// Not found.
	_, err = s.GetQuiz(9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	insertTestQuiz(t, s, "Concurrency", 2)
	quizzes, err = s.ListQuizzes()
	if err != nil {
		t.Fatalf("ListQuizzes: %v", err)
	}
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}
	if len(quizzes[0].Questions) != 3 || len(quizzes[1].Questions) != 2 {
		t.Error("listed quizzes missing their questions")
	}
}

func TestUpdateQuizReplacesQuestions(t *testing.T) {
	s := newTestStore(t)
	id := insertTestQuiz(t, s, "Draft", 3)

	err := s.UpdateQuiz(model.Quiz{
		ID:        id,
		Title:     "Final",
		TimeLimit: 20,
		Questions: []model.Question{
			{Question: "Only question", Options: []string{"Yes", "No"}, CorrectAnswer: intPtr(0)},
		},
	})
	if err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}

	q, err := s.GetQuiz(id)
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if q.Title != "Final" {
		t.Errorf("expected title 'Final', got %q", q.Title)
	}
	if q.TimeLimit != 20 {
		t.Errorf("expected time limit 20, got %d", q.TimeLimit)
	}
	if len(q.Questions) != 1 {
		t.Fatalf("expected old questions replaced, got %d", len(q.Questions))
	}
	if q.Questions[0].Question != "Only question" {
		t.Errorf("unexpected question: %q", q.Questions[0].Question)
	}

	// Updating a missing quiz reports not found.
	err = s.UpdateQuiz(model.Quiz{ID: 9999, Title: "Ghost", Questions: q.Questions})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	s := newTestStore(t)
	quizID := insertTestQuiz(t, s, "Doomed", 2)
	userID := insertTestUser(t, s, "student@example.com", model.UserRoleStudent)

	if _, err := s.CreateResult(model.Result{
		UserID: userID, QuizID: quizID,
		Answers: []model.Answer{{QuestionIndex: 0, SelectedOption: 0}},
		Score:   1,
	}); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}
	if _, err := s.GetOrCreateExamState(userID, quizID); err != nil {
		t.Fatalf("GetOrCreateExamState: %v", err)
	}

	if err := s.DeleteQuiz(quizID); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}

	_, err := s.GetQuiz(quizID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected quiz gone, got %v", err)
	}
	count, err := s.ResultCountForQuiz(quizID)
	if err != nil {
		t.Fatalf("ResultCountForQuiz: %v", err)
	}
	if count != 0 {
		t.Errorf("expected results cascaded, got %d", count)
	}
	_, err = s.GetExamState(userID, quizID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected exam state cascaded, got %v", err)
	}

	// Double delete reports not found.
	if err := s.DeleteQuiz(quizID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResultUniquePerUserQuiz(t *testing.T) {
	s := newTestStore(t)
	quizID := insertTestQuiz(t, s, "Quiz", 2)
	userID := insertTestUser(t, s, "student@example.com", model.UserRoleStudent)

	result := model.Result{
		UserID: userID, QuizID: quizID,
		Answers: []model.Answer{
			{QuestionIndex: 0, SelectedOption: 0},
			{QuestionIndex: 1, SelectedOption: 2},
		},
		Score: 1, TimeLimit: 10, TimeTaken: 120,
	}
	if _, err := s.CreateResult(result); err != nil {
		t.Fatalf("CreateResult: %v", err)
	}

	has, err := s.HasResult(userID, quizID)
	if err != nil {
		t.Fatalf("HasResult: %v", err)
	}
	if !has {
		t.Error("expected HasResult true after insert")
	}

	// The unique index rejects a second submission for the same pair even
	// when the application-level pre-check is skipped.
	_, err = s.CreateResult(result)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// A different user may still submit the same quiz.
	otherID := insertTestUser(t, s, "other@example.com", model.UserRoleStudent)
	result.UserID = otherID
	if _, err := s.CreateResult(result); err != nil {
		t.Fatalf("CreateResult for second user: %v", err)
	}
}

func TestListResultsJoinsIdentity(t *testing.T) {
	s := newTestStore(t)
	quizID := insertTestQuiz(t, s, "History", 1)
	aliceID := insertTestUser(t, s, "alice@example.com", model.UserRoleStudent)
	bobID := insertTestUser(t, s, "bob@example.com", model.UserRoleStudent)

	for _, userID := range []int64{aliceID, bobID} {
		if _, err := s.CreateResult(model.Result{
			UserID: userID, QuizID: quizID,
			Answers: []model.Answer{{QuestionIndex: 0, SelectedOption: 1}},
			Score:   0,
		}); err != nil {
			t.Fatalf("CreateResult: %v", err)
		}
	}

	views, err := s.ListResults()
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 results, got %d", len(views))
	}
	// Newest first.
	if views[0].Email != "bob@example.com" {
		t.Errorf("expected bob first, got %q", views[0].Email)
	}
	if views[0].QuizTitle != "History" {
		t.Errorf("expected quiz title 'History', got %q", views[0].QuizTitle)
	}
	if views[1].Username != "user-alice@example.com" {
		t.Errorf("unexpected username: %q", views[1].Username)
	}
	if len(views[0].Answers) != 1 || views[0].Answers[0].SelectedOption != 1 {
		t.Errorf("answers not decoded: %+v", views[0].Answers)
	}
}

func TestExamStateLifecycle(t *testing.T) {
	s := newTestStore(t)
	quizID := insertTestQuiz(t, s, "Quiz", 1)
	userID := insertTestUser(t, s, "student@example.com", model.UserRoleStudent)

	state, err := s.GetOrCreateExamState(userID, quizID)
	if err != nil {
		t.Fatalf("GetOrCreateExamState: %v", err)
	}
	if state.Status != model.ExamActive {
		t.Errorf("expected active state, got %q", state.Status)
	}
	if state.Violations != 0 {
		t.Errorf("expected 0 violations, got %d", state.Violations)
	}
	if state.StartedAt.IsZero() {
		t.Error("expected started_at to be set")
	}

	// A second call resumes the same run instead of restarting the clock.
	again, err := s.GetOrCreateExamState(userID, quizID)
	if err != nil {
		t.Fatalf("GetOrCreateExamState again: %v", err)
	}
	if again.ID != state.ID {
		t.Errorf("expected same state row, got %d and %d", state.ID, again.ID)
	}

	// Violations accumulate while active.
	now := time.Now()
	if err := s.RecordViolation(userID, quizID, now); err != nil {
		t.Fatalf("RecordViolation: %v", err)
	}
	state, _ = s.GetExamState(userID, quizID)
	if state.Violations != 1 {
		t.Errorf("expected 1 violation, got %d", state.Violations)
	}
	if state.LastViolationAt == nil {
		t.Error("expected last_violation_at to be set")
	}
}

func TestEndExamStateSingleWinner(t *testing.T) {
	s := newTestStore(t)
	quizID := insertTestQuiz(t, s, "Quiz", 1)
	userID := insertTestUser(t, s, "student@example.com", model.UserRoleStudent)

	if _, err := s.GetOrCreateExamState(userID, quizID); err != nil {
		t.Fatalf("GetOrCreateExamState: %v", err)
	}

	ended, err := s.EndExamState(userID, quizID, model.EndCauseSubmitted)
	if err != nil {
		t.Fatalf("EndExamState: %v", err)
	}
	if !ended {
		t.Fatal("expected first end to win the transition")
	}

	// Every later trigger loses: the state stays ended with the first cause.
	ended, err = s.EndExamState(userID, quizID, model.EndCauseViolations)
	if err != nil {
		t.Fatalf("EndExamState second: %v", err)
	}
	if ended {
		t.Error("expected second end to lose the transition")
	}

	state, err := s.GetExamState(userID, quizID)
	if err != nil {
		t.Fatalf("GetExamState: %v", err)
	}
	if state.Status != model.ExamEnded {
		t.Errorf("expected ended status, got %q", state.Status)
	}
	if state.EndCause != model.EndCauseSubmitted {
		t.Errorf("expected cause submitted, got %q", state.EndCause)
	}
	if state.EndedAt == nil {
		t.Error("expected ended_at to be set")
	}

	// Violations no longer accumulate after the run ended.
	if err := s.RecordViolation(userID, quizID, time.Now()); err != nil {
		t.Fatalf("RecordViolation after end: %v", err)
	}
	state, _ = s.GetExamState(userID, quizID)
	if state.Violations != 0 {
		t.Errorf("expected violations frozen at 0, got %d", state.Violations)
	}
}

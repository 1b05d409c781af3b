package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pavelanni/quizdesk/internal/model"
)

// GetOrCreateExamState returns the exam state for the (user, quiz) pair,
// creating an active one with the current time as start timestamp when none
// exists. A reload therefore resumes the original countdown instead of
// restarting it.
func (s *Store) GetOrCreateExamState(userID, quizID int64) (model.ExamState, error) {
	state, err := s.GetExamState(userID, quizID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return state, err
	}

	_, err = s.db.Exec(
		`INSERT INTO exam_states (user_id, quiz_id, status, violations, started_at)
		 VALUES (?, ?, ?, 0, ?)`,
		userID, quizID, model.ExamActive, time.Now(),
	)
	if err = mapInsertErr(err); err != nil && !errors.Is(err, ErrDuplicate) {
		return state, err
	}
	// ErrDuplicate means a concurrent request created the row first; read it
	// back either way.
	return s.GetExamState(userID, quizID)
}

// GetExamState returns the exam state for the pair, or ErrNotFound.
func (s *Store) GetExamState(userID, quizID int64) (model.ExamState, error) {
	var (
		state model.ExamState
		last  sql.NullTime
		ended sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT id, user_id, quiz_id, status, violations, last_violation_at, started_at, ended_at, end_cause
		 FROM exam_states WHERE user_id = ? AND quiz_id = ?`,
		userID, quizID,
	).Scan(&state.ID, &state.UserID, &state.QuizID, &state.Status, &state.Violations,
		&last, &state.StartedAt, &ended, &state.EndCause)
	if err != nil {
		return state, mapRowErr(err)
	}
	if last.Valid {
		state.LastViolationAt = &last.Time
	}
	if ended.Valid {
		state.EndedAt = &ended.Time
	}
	return state, nil
}

// RecordViolation increments the violation counter and stamps the event time.
func (s *Store) RecordViolation(userID, quizID int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE exam_states SET violations = violations + 1, last_violation_at = ?
		 WHERE user_id = ? AND quiz_id = ? AND status = ?`,
		at, userID, quizID, model.ExamActive,
	)
	return err
}

// EndExamState transitions the pair's state from active to ended. The
// conditional update is the single compare-and-set gate for the terminal
// transition: it reports true for exactly one caller no matter how many
// triggers (manual submit, countdown expiry, third violation) race.
func (s *Store) EndExamState(userID, quizID int64, cause model.EndCause) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE exam_states SET status = ?, ended_at = ?, end_cause = ?
		 WHERE user_id = ? AND quiz_id = ? AND status = ?`,
		model.ExamEnded, time.Now(), cause,
		userID, quizID, model.ExamActive,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

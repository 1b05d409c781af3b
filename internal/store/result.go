package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/quizdesk/internal/model"
)

// CreateResult persists a scored submission. The unique index on
// (user_id, quiz_id) makes this the single enforcement point for the
// one-result-per-pair invariant: a concurrent duplicate loses here with
// ErrDuplicate instead of slipping past an application-level pre-check.
func (s *Store) CreateResult(r model.Result) (int64, error) {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return 0, fmt.Errorf("encode answers: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO results (user_id, quiz_id, answers, score, time_limit, time_taken, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.QuizID, string(answers), r.Score, r.TimeLimit, r.TimeTaken, time.Now(),
	)
	if err != nil {
		return 0, mapInsertErr(err)
	}
	return res.LastInsertId()
}

// HasResult reports whether a result exists for the (user, quiz) pair.
func (s *Store) HasResult(userID, quizID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM results WHERE user_id = ? AND quiz_id = ?`, userID, quizID,
	).Scan(&count)
	return count > 0, err
}

// ListResults returns all results joined to submitter identity and quiz
// title, newest first.
func (s *Store) ListResults() ([]model.ResultView, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.user_id, r.quiz_id, r.answers, r.score, r.time_limit, r.time_taken, r.created_at,
		        u.username, u.email, q.title
		 FROM results r
		 JOIN users u ON u.id = r.user_id
		 JOIN quizzes q ON q.id = r.quiz_id
		 ORDER BY r.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []model.ResultView
	for rows.Next() {
		var (
			v       model.ResultView
			answers string
		)
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.QuizID, &answers, &v.Score, &v.TimeLimit, &v.TimeTaken, &v.CreatedAt,
			&v.Username, &v.Email, &v.QuizTitle,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &v.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for result %d: %w", v.ID, err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ResultCountForQuiz returns the number of results referencing a quiz.
func (s *Store) ResultCountForQuiz(quizID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results WHERE quiz_id = ?`, quizID).Scan(&count)
	return count, err
}

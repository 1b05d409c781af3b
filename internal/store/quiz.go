package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/quizdesk/internal/model"
)

// CreateQuiz inserts a quiz with its questions in a single transaction.
func (s *Store) CreateQuiz(q model.Quiz) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(
		`INSERT INTO quizzes (title, time_limit, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.Title, q.TimeLimit, q.CreatedBy, now, now,
	)
	if err != nil {
		return 0, err
	}
	quizID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertQuestions(tx, quizID, q.Questions); err != nil {
		return 0, err
	}

	return quizID, tx.Commit()
}

// UpdateQuiz fully replaces the title, time limit and questions of a quiz.
// Returns ErrNotFound when the quiz does not exist.
func (s *Store) UpdateQuiz(q model.Quiz) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE quizzes SET title = ?, time_limit = ?, updated_at = ? WHERE id = ?`,
		q.Title, q.TimeLimit, time.Now(), q.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM questions WHERE quiz_id = ?`, q.ID); err != nil {
		return err
	}
	if err := insertQuestions(tx, q.ID, q.Questions); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteQuiz removes a quiz and cascades deletion of its questions, every
// result referencing it, and any exam-runner state. Returns ErrNotFound when
// the quiz does not exist.
func (s *Store) DeleteQuiz(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM quizzes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	for _, q := range []string{
		`DELETE FROM questions WHERE quiz_id = ?`,
		`DELETE FROM results WHERE quiz_id = ?`,
		`DELETE FROM exam_states WHERE quiz_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetQuiz returns a quiz with its questions, answer key included. Returns
// ErrNotFound when the quiz does not exist.
func (s *Store) GetQuiz(id int64) (model.Quiz, error) {
	var q model.Quiz
	err := s.db.QueryRow(
		`SELECT id, title, time_limit, created_by, created_at, updated_at FROM quizzes WHERE id = ?`, id,
	).Scan(&q.ID, &q.Title, &q.TimeLimit, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, mapRowErr(err)
	}
	q.Questions, err = s.questionsForQuiz(id)
	return q, err
}

// ListQuizzes returns all quizzes with their questions, answer keys included.
// Callers strip the keys before responding.
func (s *Store) ListQuizzes() ([]model.Quiz, error) {
	rows, err := s.db.Query(
		`SELECT id, title, time_limit, created_by, created_at, updated_at FROM quizzes ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.TimeLimit, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range quizzes {
		quizzes[i].Questions, err = s.questionsForQuiz(quizzes[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return quizzes, nil
}

func (s *Store) questionsForQuiz(quizID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT text, options, correct_option FROM questions WHERE quiz_id = ? ORDER BY position`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			options string
			correct int
		)
		if err := rows.Scan(&q.Question, &options, &correct); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for quiz %d: %w", quizID, err)
		}
		q.CorrectAnswer = &correct
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func insertQuestions(tx *sql.Tx, quizID int64, questions []model.Question) error {
	for pos, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		correct := 0
		if q.CorrectAnswer != nil {
			correct = *q.CorrectAnswer
		}
		_, err = tx.Exec(
			`INSERT INTO questions (quiz_id, position, text, options, correct_option)
			 VALUES (?, ?, ?, ?, ?)`,
			quizID, pos, q.Question, string(options), correct,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

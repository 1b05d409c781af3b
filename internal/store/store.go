// Package store persists users, quizzes, results and exam-runner state in
// SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert hits a unique constraint
	// (duplicate email, second submission for the same quiz).
	ErrDuplicate = errors.New("already exists")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		time_limit INTEGER NOT NULL DEFAULT 0,
		created_by INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_option INTEGER NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		quiz_id INTEGER NOT NULL,
		answers TEXT NOT NULL,
		score INTEGER NOT NULL,
		time_limit INTEGER NOT NULL DEFAULT 0,
		time_taken INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_results_user_quiz ON results(user_id, quiz_id);

	CREATE TABLE IF NOT EXISTS exam_states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		quiz_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		violations INTEGER NOT NULL DEFAULT 0,
		last_violation_at DATETIME,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		end_cause TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_exam_states_user_quiz ON exam_states(user_id, quiz_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// mapRowErr translates database/sql sentinel errors into store errors.
func mapRowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mapInsertErr detects unique-constraint violations. modernc.org/sqlite does
// not export a stable error type for SQLITE_CONSTRAINT_UNIQUE, so match the
// driver's message.
func mapInsertErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

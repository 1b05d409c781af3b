package store

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/pavelanni/quizdesk/internal/model"
)

// CreateUser inserts a new user. Returns ErrDuplicate when the email is
// already registered.
func (s *Store) CreateUser(u model.User) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, email, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.Active, time.Now(),
	)
	if err != nil {
		if err = mapInsertErr(err); !errors.Is(err, ErrDuplicate) {
			slog.Error("failed to create user", "email", u.Email, "error", err)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

// GetUserByEmail returns a user by email, or nil when no such user exists.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return s.getUser(`SELECT id, username, email, password_hash, role, active, created_at
		 FROM users WHERE email = ?`, email)
}

// GetUserByID returns a user by ID, or nil when no such user exists.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.getUser(`SELECT id, username, email, password_hash, role, active, created_at
		 FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AdminCount returns the number of admin users.
func (s *Store) AdminCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = ?`, model.UserRoleAdmin).Scan(&count)
	return count, err
}

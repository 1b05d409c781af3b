package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// Summary returns the user fields safe to send to clients.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// UserSummary is the client-facing view of a user. It never carries the
// password hash.
type UserSummary struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Question is a single multiple-choice question inside a quiz. CorrectAnswer
// is the zero-based index into Options. A pointer keeps "stripped from the
// response" distinguishable from "first option is correct".
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
}

// Quiz is an ordered set of questions with an optional time limit in minutes
// (0 means untimed).
type Quiz struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	TimeLimit int        `json:"timeLimit,omitempty"`
	CreatedBy int64      `json:"createdBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// StripAnswers returns a copy of the quiz with every correct-option index
// removed. Listing endpoints never expose answer keys, for any caller.
func (q Quiz) StripAnswers() Quiz {
	stripped := q
	stripped.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = nil
		stripped.Questions[i] = question
	}
	return stripped
}

// Answer pairs a question index with the option the student selected.
type Answer struct {
	QuestionIndex  int `json:"questionIndex"`
	SelectedOption int `json:"selectedOption"`
}

// Result is the persisted record of one scored submission. At most one exists
// per (user, quiz) pair; it is never mutated after creation.
type Result struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	QuizID    int64     `json:"quizId"`
	Answers   []Answer  `json:"answers"`
	Score     int       `json:"score"`
	TimeLimit int       `json:"timeLimit,omitempty"`
	TimeTaken int       `json:"timeTaken,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ResultView joins a result with its submitter and quiz title for the admin
// results listing and the export command.
type ResultView struct {
	Result
	Username  string `json:"username"`
	Email     string `json:"email"`
	QuizTitle string `json:"quizTitle"`
}

// ExamStatus represents the state of an exam run for one (user, quiz) pair.
type ExamStatus string

const (
	// ExamActive means the student is still taking the quiz.
	ExamActive ExamStatus = "active"
	// ExamEnded is terminal: the run was submitted, timed out, or forced shut
	// by violations. No transition leaves this state.
	ExamEnded ExamStatus = "ended"
)

// EndCause records why an exam run ended.
type EndCause string

const (
	EndCauseSubmitted  EndCause = "submitted"
	EndCauseExpired    EndCause = "expired"
	EndCauseViolations EndCause = "violations"
)

// ExamState is the persisted exam-runner state. The countdown is always
// derived from StartedAt rather than stored, so a page reload cannot reset
// the clock.
type ExamState struct {
	ID              int64
	UserID          int64
	QuizID          int64
	Status          ExamStatus
	Violations      int
	LastViolationAt *time.Time
	StartedAt       time.Time
	EndedAt         *time.Time
	EndCause        EndCause
}

// ServerConfig holds runtime parameters resolved from flags, environment and
// the optional config file.
type ServerConfig struct {
	Addr              string
	DBPath            string
	JWTSecret         string
	TokenLifetime     time.Duration
	ClientOrigin      string // allowed cross-origin client address
	SecureCookies     bool   // Secure flag on the session cookie; enables SameSite=None
	ViolationCooldown time.Duration
	Lang              string
}

// Package handler exposes the HTTP JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/quizdesk/internal/examrun"
	appI18n "github.com/pavelanni/quizdesk/internal/i18n"
	"github.com/pavelanni/quizdesk/internal/model"
	"github.com/pavelanni/quizdesk/internal/store"
	"github.com/pavelanni/quizdesk/internal/token"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	issuer   *token.Issuer
	runner   *examrun.Runner
	config   model.ServerConfig
	validate *validator.Validate
}

// New creates a new Handler.
func New(s *store.Store, issuer *token.Issuer, runner *examrun.Runner, cfg model.ServerConfig) *Handler {
	return &Handler{
		store:    s,
		issuer:   issuer,
		runner:   runner,
		config:   cfg,
		validate: validator.New(),
	}
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Use(h.requireAuth)

		r.With(requireRole(model.UserRoleAdmin)).Group(func(r chi.Router) {
			r.Post("/create", h.handleCreateQuiz)
			r.Put("/update/{quizID}", h.handleUpdateQuiz)
			r.Delete("/delete/{quizID}", h.handleDeleteQuiz)
			r.Get("/all-admin", h.handleListQuizzes)
			r.Get("/results", h.handleResults)
		})

		r.With(requireRole(model.UserRoleStudent)).Group(func(r chi.Router) {
			r.Get("/all", h.handleListQuizzes)
			r.Post("/submit", h.handleSubmit)
		})
	})

	r.Route("/exam", func(r chi.Router) {
		r.Use(h.requireAuth, requireRole(model.UserRoleStudent))
		r.Post("/{quizID}/start", h.handleExamStart)
		r.Post("/{quizID}/violation", h.handleExamViolation)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError maps store errors onto the response taxonomy. Unexpected
// failures become a 500 with the underlying message in the body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, appI18n.T(r.Context(), "QuizNotFound"))
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Server error",
			"error":   err.Error(),
		})
	}
}

// decodeValid decodes a JSON body into dst and runs struct validation.
func (h *Handler) decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

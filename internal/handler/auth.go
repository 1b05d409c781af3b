package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/quizdesk/internal/i18n"
	"github.com/pavelanni/quizdesk/internal/model"
	"github.com/pavelanni/quizdesk/internal/store"
)

const sessionCookieName = "token"

type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Role is fixed to student at registration; admins are seeded, never
	// self-promoted.
	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if errors.Is(err, store.ErrDuplicate) {
		writeMessage(w, http.StatusBadRequest, appI18n.T(r.Context(), "EmailTaken"))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user := model.User{ID: id, Username: req.Username, Email: req.Email, Role: model.UserRoleStudent}
	if err := h.setSessionCookie(w, &user); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": appI18n.T(r.Context(), "Registered"),
		"user":    user.Summary(),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Unknown email and wrong password are indistinguishable to the caller.
	if user == nil || !user.Active {
		writeMessage(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidCredentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeMessage(w, http.StatusBadRequest, appI18n.T(r.Context(), "InvalidCredentials"))
		return
	}

	if err := h.setSessionCookie(w, user); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": appI18n.T(r.Context(), "LoggedIn"),
		"user":    user.Summary(),
	})
}

// handleLogout clears the cookie. The credential itself stays valid until
// natural expiry; there is no server-side blacklist.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: h.cookieSameSite(),
	})
	writeMessage(w, http.StatusOK, appI18n.T(r.Context(), "LoggedOut"))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, user *model.User) error {
	signed, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(h.issuer.Lifetime().Seconds()),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: h.cookieSameSite(),
	})
	return nil
}

// cookieSameSite picks SameSite=None for the cross-site client when cookies
// are Secure; browsers reject None without Secure, so plain-HTTP deployments
// fall back to Lax.
func (h *Handler) cookieSameSite() http.SameSite {
	if h.config.SecureCookies {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// requireAuth verifies the session cookie and resolves the user's current
// role from the store, so a demotion takes effect on the holder's next
// request rather than at token expiry.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeMessage(w, http.StatusUnauthorized, appI18n.T(r.Context(), "NotAuthenticated"))
			return
		}

		claims, err := h.issuer.Verify(cookie.Value)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, appI18n.T(r.Context(), "NotAuthenticated"))
			return
		}

		user, err := h.store.GetUserByID(claims.UserID)
		if err != nil {
			slog.Error("resolve session user", "user_id", claims.UserID, "error", err)
			writeMessage(w, http.StatusUnauthorized, appI18n.T(r.Context(), "NotAuthenticated"))
			return
		}
		if user == nil || !user.Active {
			writeMessage(w, http.StatusUnauthorized, appI18n.T(r.Context(), "NotAuthenticated"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route on the resolved identity's role.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeMessage(w, http.StatusUnauthorized, appI18n.T(r.Context(), "NotAuthenticated"))
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			msgID := "StudentRequired"
			if len(allowed) > 0 && allowed[0] == model.UserRoleAdmin {
				msgID = "AdminRequired"
			}
			writeMessage(w, http.StatusForbidden, appI18n.T(r.Context(), msgID))
		})
	}
}

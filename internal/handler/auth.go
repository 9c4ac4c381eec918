package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"studytrack/internal/i18n"
	"studytrack/internal/model"
	"studytrack/internal/store"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// csrfMiddleware implements a double-submit token. Safe methods issue the
// cookie; mutating requests must echo it in the X-CSRF-Token header. The
// token rotates after every accepted mutation.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			token, err := generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", "error", err)
				respondError(w, http.StatusInternalServerError, "internal error")
				return
			}
			h.setCSRFCookie(w, token)
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing", "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "csrf token missing")
			return
		}

		headerToken := r.Header.Get(csrfHeaderName)
		if headerToken == "" {
			slog.Warn("CSRF header missing", "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "csrf token missing")
			return
		}

		if len(headerToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch", "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "invalid csrf token")
			return
		}

		token, err := generateCSRFToken()
		if err != nil {
			slog.Error("failed to generate CSRF token", "error", err)
			respondError(w, http.StatusInternalServerError, "internal error")
			return
		}
		h.setCSRFCookie(w, token)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			respondError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		authSess, err := h.store.GetAuthSession(r.Context(), cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			respondError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if authSess == nil {
			respondError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil {
			respondError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		if !user.Active {
			respondError(w, http.StatusForbidden, i18n.T(r.Context(), "AccountDisabled"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "forbidden")
		})
	}
}

type credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	creds.Username = strings.TrimSpace(strings.ToLower(creds.Username))
	if creds.Username == "" || len(creds.Password) < 8 {
		respondError(w, http.StatusBadRequest, "username and a password of at least 8 characters are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	displayName := creds.DisplayName
	if displayName == "" {
		displayName = creds.Username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     creds.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			respondError(w, http.StatusConflict, i18n.T(r.Context(), "UsernameTaken"))
			return
		}
		slog.Error("failed to create user", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.startSession(w, r, &model.User{ID: id, Username: creds.Username, DisplayName: displayName, Role: model.UserRoleStudent, Active: true})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !decodeBody(w, r, &creds) {
		return
	}

	user, err := h.store.GetUserByUsername(strings.TrimSpace(strings.ToLower(creds.Username)))
	if err != nil {
		slog.Error("failed to get user", "error", err)
		respondError(w, http.StatusUnauthorized, i18n.T(r.Context(), "InvalidCredentials"))
		return
	}
	if user == nil || !user.Active {
		respondError(w, http.StatusUnauthorized, i18n.T(r.Context(), "InvalidCredentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		respondError(w, http.StatusUnauthorized, i18n.T(r.Context(), "InvalidCredentials"))
		return
	}

	h.startSession(w, r, user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	token, err := h.store.CreateAuthSession(r.Context(), user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}

package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pavelanni/skillmeter/internal/auth"
	"github.com/pavelanni/skillmeter/internal/flow"
	"github.com/pavelanni/skillmeter/internal/handler/views"
	"github.com/pavelanni/skillmeter/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

// issueCSRFToken sets a fresh token cookie and returns the request with the
// token in its context.
func (h *Handler) issueCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return r.WithContext(model.ContextWithCSRFToken(r.Context(), token)), true
}

// csrfMiddleware implements the double-submit cookie check. Safe methods
// get a new token; every other method must echo the cookie in the form and
// gets a rotated token.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				slog.Warn("CSRF cookie missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}

			formToken := r.FormValue("csrf_token")
			if formToken == "" {
				slog.Warn("CSRF form token missing")
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}

			if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
				slog.Warn("CSRF token mismatch")
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}

		r, ok := h.issueCSRFToken(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves the session cookie to a browser session, holds the
// session lock for the rest of the request and puts the user in context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		ws := h.sessions.get(cookie.Value)
		if ws == nil {
			h.redirectToLogin(w, r)
			return
		}

		ws.mu.Lock()
		defer ws.mu.Unlock()

		fc := ws.machine.Context()
		if ws.machine.State() == flow.LoggedOut || fc.UserID == "" {
			h.redirectToLogin(w, r)
			return
		}

		ctx := model.ContextWithUser(r.Context(), &model.User{ID: fc.UserID, Email: fc.Email})
		ctx = contextWithWebSession(ctx, ws)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// signedIn reports whether the request carries a live session cookie.
func (h *Handler) signedIn(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	return err == nil && cookie.Value != "" && h.sessions.get(cookie.Value) != nil
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	h.renderStatus(w, r, http.StatusOK, views.LoginPage(views.AuthData{}))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")

	user, err := h.gate.Login(r.Context(), email, r.FormValue("password"))
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case model.IsValidation(err):
			status = http.StatusBadRequest
		case !errors.Is(err, model.ErrAuthFailure):
			slog.Error("login failed", "error", err)
			status = http.StatusInternalServerError
		}
		h.renderStatus(w, r, status, views.LoginPage(views.AuthData{
			Page:       views.Page{Flash: views.ErrorFlash(auth.MessageID(err))},
			EmailValue: email,
		}))
		return
	}

	token, err := h.sessions.create(user)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	slog.Info("user logged in", "user_id", user.ID)
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusOK, views.RegisterPage(views.AuthData{}))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")

	id, err := h.gate.Register(r.Context(), email, r.FormValue("password"))
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			status = http.StatusConflict
		case !model.IsValidation(err):
			slog.Error("registration failed", "error", err)
			status = http.StatusInternalServerError
		}
		h.renderStatus(w, r, status, views.RegisterPage(views.AuthData{
			Page:       views.Page{Flash: views.ErrorFlash(auth.MessageID(err))},
			EmailValue: email,
		}))
		return
	}

	slog.Info("user registered", "user_id", id)
	h.renderStatus(w, r, http.StatusOK, views.LoginPage(views.AuthData{
		Page:       views.Page{Flash: views.SuccessFlash(auth.MsgRegistered)},
		EmailValue: email,
	}))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if ws := h.sessions.get(cookie.Value); ws != nil {
			ws.mu.Lock()
			_ = ws.machine.Apply(flow.LoggedOutEvent{})
			ws.report = nil
			ws.mu.Unlock()
		}
		h.sessions.delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/artifact-cms/internal/apperror"
	"github.com/sakif/artifact-cms/internal/auth"
	"github.com/sakif/artifact-cms/internal/model"
	"github.com/sakif/artifact-cms/internal/service"
)

// AuthService is the part of service.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.AuthResult, error)
	CurrentUser(ctx context.Context, id auth.Identity) (*model.User, error)
}

// GitHubAuthenticator is implemented by *auth.GitHubProvider.
type GitHubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

const stateCookie = "oauth_state"

// AuthHandler serves registration, login, GitHub sign-in and /me.
type AuthHandler struct {
	svc    AuthService
	github GitHubAuthenticator // nil when GitHub sign-in is not configured
	logger *slog.Logger
}

func NewAuthHandler(svc AuthService, github GitHubAuthenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, github: github, logger: logger}
}

// GitHubEnabled reports whether the GitHub routes should be mounted.
func (h *AuthHandler) GitHubEnabled() bool { return h.github != nil }

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and returns a session.
//
// HTTP: POST /api/auth/register → 201 {token, user, expiresAt}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin exchanges a username and password for a session.
//
// HTTP: POST /api/auth/login → 200 {token, user, expiresAt}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/auth/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin redirects the browser to GitHub.
//
// HTTP: GET /api/auth/github/login
//
// The random state goes into a short-lived HttpOnly cookie and into the
// GitHub URL; the callback only proceeds when the two match, which proves
// the flow was started from this browser (CSRF protection).
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth/github",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes GitHub sign-in and returns a session.
//
// HTTP: GET /api/auth/github/callback?code=...&state=...
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/api/auth/github", MaxAge: -1})

	if denied := r.URL.Query().Get("error"); denied != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", denied))
		writeError(w, h.logger, apperror.ValidationFailed("code", "GitHub authorization was denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

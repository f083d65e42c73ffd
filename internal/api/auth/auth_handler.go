package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth/gothic"

	"github.com/analyticalinvestments/omega-api/config"
	"github.com/analyticalinvestments/omega-api/internal/api"
)

type AuthHandler struct {
	logger  *slog.Logger
	service AuthService
	cfg     config.AuthConfig
}

func NewAuthHandler(service AuthService, cfg config.AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}
}

// setSessionCookie attaches the session token to the response. HttpOnly
// keeps it away from scripts; SameSite=Lax still allows the OAuth redirect
// flow to carry it.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an account with email and password, and starts a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} User
// @Failure      400 {object} api.Response
// @Failure      409 {object} api.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "username, email and password are required")
		return
	}

	user, session, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrWeakPassword):
			api.ErrorResponse(w, r, http.StatusBadRequest, api.ErrWeakPassword.Error())
		case errors.Is(err, api.ErrDuplicateIdentity):
			api.ErrorResponse(w, r, http.StatusConflict, api.ErrDuplicateIdentity.Error())
		default:
			l.ErrorContext(r.Context(), "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	h.setSessionCookie(w, session)
	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} User
// @Failure      401 {object} api.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, api.ErrInvalidCredentials) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrInvalidCredentials.Error())
			return
		}
		l.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "login failed")
		return
	}

	h.setSessionCookie(w, session)
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// Logout revokes the current session and clears the cookie. Succeeds even
// when the session is already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cfg.CookieName)
	if err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.ErrorContext(r.Context(), "Logout failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "logout failed")
			return
		}
	}

	h.clearSessionCookie(w)
	api.WriteJSONResponse(w, r, http.StatusOK, api.Response{Success: true, Message: "Logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// withProvider rewrites the chi route parameter into the query string,
// which is where gothic looks the provider name up.
func withProvider(r *http.Request) *http.Request {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()
	q.Set("provider", provider)
	r.URL.RawQuery = q.Encode()
	return r
}

// BeginOAuth redirects to the provider's consent screen.
func (h *AuthHandler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withProvider(r))
}

// OAuthCallback completes the provider handshake, provisions or links the
// account, and starts a session.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "OAuthCallback"))

	gothUser, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		l.WarnContext(r.Context(), "OAuth handshake failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication with provider failed")
		return
	}

	user, session, err := h.service.GetOrCreateUserFromProvider(r.Context(), profileFromGothUser(gothUser))
	if err != nil {
		if errors.Is(err, api.ErrProviderMismatch) {
			api.ErrorResponse(w, r, http.StatusConflict, api.ErrProviderMismatch.Error())
			return
		}
		l.ErrorContext(r.Context(), "OAuth provisioning failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "authentication failed")
		return
	}

	l.InfoContext(r.Context(), "OAuth login completed", slog.String("userID", user.ID.String()))
	h.setSessionCookie(w, session)
	http.Redirect(w, r, "/", http.StatusFound)
}

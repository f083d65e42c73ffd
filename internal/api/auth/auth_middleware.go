package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/analyticalinvestments/omega-api/app/observability/metrics"
	"github.com/analyticalinvestments/omega-api/internal/api"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// GetUserFromContext returns the authenticated user placed in the request
// context by Authenticate. The second return is false on public routes.
func GetUserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}

// ContextWithUser returns a context carrying the given user, as Authenticate
// would produce. Mainly useful for handler tests.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Middleware resolves session cookies into authenticated users and gates
// plan-restricted routes.
type Middleware struct {
	logger     *slog.Logger
	sessions   SessionManager
	cookieName string
}

func NewMiddleware(sessions SessionManager, cookieName string, logger *slog.Logger) *Middleware {
	return &Middleware{
		logger:     logger,
		sessions:   sessions,
		cookieName: cookieName,
	}
}

// Authenticate requires a valid session cookie. The resolved user is stored
// in the request context; any resolution failure is a uniform 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
			return
		}

		user, err := m.sessions.Resolve(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, api.ErrUnauthenticated) {
				m.logger.ErrorContext(r.Context(), "Session resolution failed", slog.Any("error", err))
			}
			api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOmegaPlan gates a route group on the OMEGA tier. Must be mounted
// after Authenticate. A denial leaves the session untouched; the user stays
// logged in and keeps access to non-gated routes.
func (m *Middleware) RequireOmegaPlan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			api.ErrorResponse(w, r, http.StatusUnauthorized, api.ErrUnauthenticated.Error())
			return
		}

		if user.Plan != PlanOmega {
			metrics.Get().PlanDenialsTotal.Add(r.Context(), 1)
			m.logger.DebugContext(r.Context(), "Plan gate denied request",
				slog.String("userID", user.ID.String()), slog.String("plan", string(user.Plan)))
			api.ErrorResponse(w, r, http.StatusForbidden, api.ErrPlanRequired.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

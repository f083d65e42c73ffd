package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/analyticalinvestments/omega-api/app/observability/metrics"
	"github.com/analyticalinvestments/omega-api/internal/api"
)

var _ SessionManager = (*PgSessionManager)(nil)

// SessionManager binds a verified identity to an opaque bearer token.
//
// Resolve fails closed: unknown, expired, or revoked tokens, and tokens
// whose user no longer exists, all come back as api.ErrUnauthenticated.
type SessionManager interface {
	Issue(ctx context.Context, userID uuid.UUID) (*Session, error)
	Resolve(ctx context.Context, token string) (*User, error)
	Invalidate(ctx context.Context, token string) error
}

type PgSessionManager struct {
	logger *slog.Logger
	pgpool DBPool
	repo   AuthRepo
	ttl    time.Duration
}

func NewPgSessionManager(pgpool DBPool, repo AuthRepo, ttl time.Duration, logger *slog.Logger) *PgSessionManager {
	return &PgSessionManager{
		logger: logger,
		pgpool: pgpool,
		repo:   repo,
		ttl:    ttl,
	}
}

// generateToken returns 32 bytes of crypto/rand output, URL-safe encoded.
// The token carries no structure; its only property is unguessability.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (m *PgSessionManager) Issue(ctx context.Context, userID uuid.UUID) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	session := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.ttl),
	}

	_, err = m.pgpool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		m.logger.ErrorContext(ctx, "Failed to store session", slog.Any("error", err))
		return nil, fmt.Errorf("issue session: db insert failed: %w", err)
	}

	return session, nil
}

func (m *PgSessionManager) Resolve(ctx context.Context, token string) (*User, error) {
	metrics.Get().SessionResolutionsTotal.Add(ctx, 1)

	var userID uuid.UUID
	var expiresAt time.Time
	var invalidatedAt *time.Time

	err := m.pgpool.QueryRow(ctx,
		`SELECT user_id, expires_at, invalidated_at FROM sessions WHERE token = $1`,
		token).Scan(&userID, &expiresAt, &invalidatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve session: query failed: %w", err)
	}

	if invalidatedAt != nil || time.Now().After(expiresAt) {
		return nil, api.ErrUnauthenticated
	}

	// Re-fetch the user on every resolve so plan changes apply to live
	// sessions without re-login, and deleted users stop resolving.
	user, err := m.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve session: user lookup failed: %w", err)
	}

	return user, nil
}

// Invalidate revokes the session. Revoking an already-revoked or unknown
// token is a no-op success.
func (m *PgSessionManager) Invalidate(ctx context.Context, token string) error {
	tag, err := m.pgpool.Exec(ctx,
		`UPDATE sessions SET invalidated_at = NOW() WHERE token = $1 AND invalidated_at IS NULL`,
		token)
	if err != nil {
		return fmt.Errorf("invalidate session: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		m.logger.DebugContext(ctx, "Session already invalid or unknown on logout")
	}
	return nil
}

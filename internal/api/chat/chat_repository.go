package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

var _ ChatRepo = (*PostgresChatRepo)(nil)

// ChatRepo persists chat sessions. Messages live as a jsonb column on the
// session row, so appending rewrites the whole array.
type ChatRepo interface {
	CreateSession(ctx context.Context, userID uuid.UUID, title string) (*ChatSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]ChatSession, error)
	SaveMessages(ctx context.Context, sessionID uuid.UUID, messages []Message) error
}

// DBPool is the subset of pgxpool.Pool this repository uses. Declared so
// tests can substitute pgxmock.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresChatRepo struct {
	logger *slog.Logger
	pgpool DBPool
}

func NewPostgresChatRepo(pgpool DBPool, logger *slog.Logger) *PostgresChatRepo {
	return &PostgresChatRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresChatRepo) CreateSession(ctx context.Context, userID uuid.UUID, title string) (*ChatSession, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "CreateSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()

	var session ChatSession
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO chat_sessions (user_id, title, messages)
         VALUES ($1, $2, '[]'::jsonb)
         RETURNING id, user_id, title, messages, created_at, updated_at`,
		userID, title).Scan(&session.ID, &session.UserID, &session.Title,
		&session.Messages, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		span.SetStatus(codes.Error, "insert failed")
		span.RecordError(err)
		return nil, fmt.Errorf("create chat session: db insert failed: %w", err)
	}

	r.logger.InfoContext(ctx, "Chat session created",
		slog.String("sessionID", session.ID.String()), slog.String("userID", userID.String()))
	return &session, nil
}

func (r *PostgresChatRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*ChatSession, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "GetSession", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()

	var session ChatSession
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, user_id, title, messages, created_at, updated_at
         FROM chat_sessions WHERE id = $1`,
		sessionID).Scan(&session.ID, &session.UserID, &session.Title,
		&session.Messages, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chat session %s not found: %w", sessionID, api.ErrNotFound)
		}
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("get chat session: query failed: %w", err)
	}
	return &session, nil
}

func (r *PostgresChatRepo) ListSessions(ctx context.Context, userID uuid.UUID) ([]ChatSession, error) {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "ListSessions", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "chat_sessions"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		`SELECT id, user_id, title, messages, created_at, updated_at
         FROM chat_sessions WHERE user_id = $1
         ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		span.RecordError(err)
		return nil, fmt.Errorf("list chat sessions: query failed: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Messages, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list chat sessions: scan failed: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chat sessions: rows error: %w", err)
	}
	return sessions, nil
}

func (r *PostgresChatRepo) SaveMessages(ctx context.Context, sessionID uuid.UUID, messages []Message) error {
	ctx, span := otel.Tracer("ChatRepo").Start(ctx, "SaveMessages", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "chat_sessions"),
		attribute.Int("chat.message_count", len(messages)),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		`UPDATE chat_sessions SET messages = $2, updated_at = NOW() WHERE id = $1`,
		sessionID, messages)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		span.RecordError(err)
		return fmt.Errorf("save chat messages: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chat session %s not found: %w", sessionID, api.ErrNotFound)
	}
	return nil
}

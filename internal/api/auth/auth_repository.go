package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/analyticalinvestments/omega-api/app/observability/metrics"
	"github.com/analyticalinvestments/omega-api/internal/api"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the Credential Store: durable lookup and persistence of
// user records. Uniqueness of email/username is enforced by the database,
// so concurrent duplicate creations resolve atomically.
type AuthRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	UpdatePlan(ctx context.Context, userID uuid.UUID, plan Plan) (*User, error)
	LinkProvider(ctx context.Context, userID uuid.UUID, provider, externalID string, avatarURL *string) (*User, error)
	UpdateBillingRefs(ctx context.Context, userID uuid.UUID, customerRef, subscriptionRef string) error
}

// DBPool is the subset of pgxpool.Pool the repositories use. Declared so
// tests can substitute pgxmock.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool DBPool
}

func NewPostgresAuthRepo(pgpool DBPool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, username, email, password_hash, provider, provider_id, avatar_url,
       plan, billing_customer_id, billing_subscription_id, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Provider, &u.ProviderID,
		&u.AvatarURL, &u.Plan, &u.BillingCustomerID, &u.BillingSubscriptionID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail looks a user up by email. Lookups are case-insensitive
// because emails are stored lowercased at creation.
func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1",
		strings.ToLower(strings.TrimSpace(email)))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email not found: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: query failed: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	row := r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", userID, api.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by id: query failed: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new account. The email/username unique indexes make
// this atomic under concurrent duplicate registrations: exactly one insert
// wins, the rest surface api.ErrDuplicateIdentity.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("username", params.Username))

	row := r.pgpool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, provider, provider_id, avatar_url)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING `+userColumns,
		params.Username, strings.ToLower(strings.TrimSpace(params.Email)),
		params.PasswordHash, params.Provider, params.ProviderID, params.AvatarURL)

	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			l.WarnContext(ctx, "Attempted to create user with duplicate email or username")
			return nil, fmt.Errorf("identity already taken: %w", api.ErrDuplicateIdentity)
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return nil, fmt.Errorf("create user: db insert failed: %w", err)
	}

	l.InfoContext(ctx, "User created", slog.String("userID", user.ID.String()))
	return user, nil
}

// UpdatePlan overwrites the plan column and nothing else. Single-row
// overwrite, so no read-modify-write race exists.
func (r *PostgresAuthRepo) UpdatePlan(ctx context.Context, userID uuid.UUID, plan Plan) (*User, error) {
	row := r.pgpool.QueryRow(ctx,
		`UPDATE users SET plan = $2, updated_at = NOW() WHERE id = $1
         RETURNING `+userColumns,
		userID, plan)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found for plan update: %w", userID, api.ErrNotFound)
		}
		return nil, fmt.Errorf("update plan: db update failed: %w", err)
	}

	r.logger.InfoContext(ctx, "User plan updated",
		slog.String("userID", userID.String()), slog.String("plan", string(plan)))
	return user, nil
}

// LinkProvider attaches an OAuth identity to an existing account. The
// "no provider currently linked" precondition is the caller's (the
// authenticator's) responsibility.
func (r *PostgresAuthRepo) LinkProvider(ctx context.Context, userID uuid.UUID, provider, externalID string, avatarURL *string) (*User, error) {
	row := r.pgpool.QueryRow(ctx,
		`UPDATE users
         SET provider = $2, provider_id = $3, avatar_url = COALESCE($4, avatar_url), updated_at = NOW()
         WHERE id = $1
         RETURNING `+userColumns,
		userID, provider, externalID, avatarURL)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found for provider link: %w", userID, api.ErrNotFound)
		}
		return nil, fmt.Errorf("link provider: db update failed: %w", err)
	}

	r.logger.InfoContext(ctx, "OAuth provider linked",
		slog.String("userID", userID.String()), slog.String("provider", provider))
	return user, nil
}

func (r *PostgresAuthRepo) UpdateBillingRefs(ctx context.Context, userID uuid.UUID, customerRef, subscriptionRef string) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET billing_customer_id = $2, billing_subscription_id = $3, updated_at = NOW()
         WHERE id = $1`,
		userID, customerRef, subscriptionRef)
	if err != nil {
		return fmt.Errorf("update billing refs: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found for billing update: %w", userID, api.ErrNotFound)
	}
	return nil
}

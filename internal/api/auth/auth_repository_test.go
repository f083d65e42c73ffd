package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

var userCols = []string{
	"id", "username", "email", "password_hash", "provider", "provider_id",
	"avatar_url", "plan", "billing_customer_id", "billing_subscription_id", "created_at",
}

func newRepoTest(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAuthRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresAuthRepo(mockPool, slog.Default())
}

func userRow(id uuid.UUID, username, email string) *pgxmock.Rows {
	hash := "hash"
	return pgxmock.NewRows(userCols).
		AddRow(id, username, email, &hash, nil, nil, nil, PlanFree, nil, nil, time.Now())
}

func TestGetUserByEmail(t *testing.T) {
	t.Run("LowercasesLookup", func(t *testing.T) {
		mockPool, repo := newRepoTest(t)
		userID := uuid.New()

		mockPool.ExpectQuery("FROM users WHERE email").
			WithArgs("mixed@example.com").
			WillReturnRows(userRow(userID, "testuser", "mixed@example.com"))

		user, err := repo.GetUserByEmail(context.Background(), "  MiXeD@Example.COM ")

		assert.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newRepoTest(t)

		mockPool.ExpectQuery("FROM users WHERE email").
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")

		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newRepoTest(t)
		userID := uuid.New()
		hash := "hash"

		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("testuser", "new@example.com", &hash, (*string)(nil), (*string)(nil), (*string)(nil)).
			WillReturnRows(userRow(userID, "testuser", "new@example.com"))

		user, err := repo.CreateUser(context.Background(), CreateUserParams{
			Username:     "testuser",
			Email:        "NEW@example.com",
			PasswordHash: &hash,
		})

		assert.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateIdentity", func(t *testing.T) {
		mockPool, repo := newRepoTest(t)
		hash := "hash"

		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("testuser", "taken@example.com", &hash, (*string)(nil), (*string)(nil), (*string)(nil)).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.CreateUser(context.Background(), CreateUserParams{
			Username:     "testuser",
			Email:        "taken@example.com",
			PasswordHash: &hash,
		})

		assert.ErrorIs(t, err, api.ErrDuplicateIdentity)
	})
}

func TestUpdatePlan(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newRepoTest(t)
		userID := uuid.New()
		hash := "hash"
		rows := pgxmock.NewRows(userCols).
			AddRow(userID, "testuser", "test@example.com", &hash, nil, nil, nil, PlanOmega, nil, nil, time.Now())

		mockPool.ExpectQuery("UPDATE users SET plan").
			WithArgs(userID, PlanOmega).
			WillReturnRows(rows)

		user, err := repo.UpdatePlan(context.Background(), userID, PlanOmega)

		assert.NoError(t, err)
		assert.Equal(t, PlanOmega, user.Plan)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newRepoTest(t)
		userID := uuid.New()

		mockPool.ExpectQuery("UPDATE users SET plan").
			WithArgs(userID, PlanOmega).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdatePlan(context.Background(), userID, PlanOmega)

		assert.ErrorIs(t, err, api.ErrNotFound)
	})
}

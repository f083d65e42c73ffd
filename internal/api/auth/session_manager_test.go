package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analyticalinvestments/omega-api/internal/api"
)

func newSessionManagerTest(t *testing.T, repo AuthRepo) (pgxmock.PgxPoolIface, *PgSessionManager) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPgSessionManager(mockPool, repo, 24*time.Hour, slog.Default())
}

func TestIssue(t *testing.T) {
	mockPool, manager := newSessionManagerTest(t, new(MockAuthRepo))
	userID := uuid.New()

	mockPool.ExpectExec("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), userID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	session, err := manager.Issue(context.Background(), userID)

	assert.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	// 32 random bytes, base64url without padding
	assert.Len(t, session.Token, 43)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, 5*time.Second)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestResolve(t *testing.T) {
	sessionRow := func(userID uuid.UUID, expiresAt time.Time, invalidatedAt *time.Time) *pgxmock.Rows {
		return pgxmock.NewRows([]string{"user_id", "expires_at", "invalidated_at"}).
			AddRow(userID, expiresAt, invalidatedAt)
	}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockPool, manager := newSessionManagerTest(t, mockRepo)

		userID := uuid.New()
		user := &User{ID: userID, Email: "test@example.com", Plan: PlanFree}

		mockPool.ExpectQuery("SELECT user_id, expires_at, invalidated_at FROM sessions").
			WithArgs("valid-token").
			WillReturnRows(sessionRow(userID, time.Now().Add(time.Hour), nil))
		mockRepo.On("GetUserByID", context.Background(), userID).Return(user, nil).Once()

		got, err := manager.Resolve(context.Background(), "valid-token")

		assert.NoError(t, err)
		assert.Equal(t, user, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownToken", func(t *testing.T) {
		mockPool, manager := newSessionManagerTest(t, new(MockAuthRepo))

		mockPool.ExpectQuery("SELECT user_id, expires_at, invalidated_at FROM sessions").
			WithArgs("unknown").
			WillReturnError(pgx.ErrNoRows)

		_, err := manager.Resolve(context.Background(), "unknown")

		assert.ErrorIs(t, err, api.ErrUnauthenticated)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockPool, manager := newSessionManagerTest(t, mockRepo)

		mockPool.ExpectQuery("SELECT user_id, expires_at, invalidated_at FROM sessions").
			WithArgs("expired").
			WillReturnRows(sessionRow(uuid.New(), time.Now().Add(-time.Minute), nil))

		_, err := manager.Resolve(context.Background(), "expired")

		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "GetUserByID")
	})

	t.Run("InvalidatedToken", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockPool, manager := newSessionManagerTest(t, mockRepo)

		revokedAt := time.Now().Add(-time.Minute)
		mockPool.ExpectQuery("SELECT user_id, expires_at, invalidated_at FROM sessions").
			WithArgs("revoked").
			WillReturnRows(sessionRow(uuid.New(), time.Now().Add(time.Hour), &revokedAt))

		_, err := manager.Resolve(context.Background(), "revoked")

		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertNotCalled(t, "GetUserByID")
	})

	t.Run("UserNoLongerExists", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		mockPool, manager := newSessionManagerTest(t, mockRepo)

		userID := uuid.New()
		mockPool.ExpectQuery("SELECT user_id, expires_at, invalidated_at FROM sessions").
			WithArgs("orphaned").
			WillReturnRows(sessionRow(userID, time.Now().Add(time.Hour), nil))
		mockRepo.On("GetUserByID", context.Background(), userID).Return(nil, api.ErrNotFound).Once()

		_, err := manager.Resolve(context.Background(), "orphaned")

		assert.ErrorIs(t, err, api.ErrUnauthenticated)
	})
}

func TestInvalidate(t *testing.T) {
	t.Run("RevokesActiveSession", func(t *testing.T) {
		mockPool, manager := newSessionManagerTest(t, new(MockAuthRepo))

		mockPool.ExpectExec("UPDATE sessions SET invalidated_at").
			WithArgs("active-token").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, manager.Invalidate(context.Background(), "active-token"))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("IdempotentOnUnknownToken", func(t *testing.T) {
		mockPool, manager := newSessionManagerTest(t, new(MockAuthRepo))

		mockPool.ExpectExec("UPDATE sessions SET invalidated_at").
			WithArgs("already-gone").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.NoError(t, manager.Invalidate(context.Background(), "already-gone"))
	})
}

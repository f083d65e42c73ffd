package billing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/analyticalinvestments/omega-api/internal/api/auth"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, params auth.CreateUserParams) (*auth.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthRepo) UpdatePlan(ctx context.Context, userID uuid.UUID, plan auth.Plan) (*auth.User, error) {
	args := m.Called(ctx, userID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthRepo) LinkProvider(ctx context.Context, userID uuid.UUID, provider, externalID string, avatarURL *string) (*auth.User, error) {
	args := m.Called(ctx, userID, provider, externalID, avatarURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthRepo) UpdateBillingRefs(ctx context.Context, userID uuid.UUID, customerRef, subscriptionRef string) error {
	args := m.Called(ctx, userID, customerRef, subscriptionRef)
	return args.Error(0)
}

func TestGetOrCreateSubscription(t *testing.T) {
	t.Run("ReturnsExistingRefs", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewBillingService(mockRepo, slog.Default())

		customer := "cus_existing"
		subscription := "sub_existing"
		user := &auth.User{
			ID:                    uuid.New(),
			BillingCustomerID:     &customer,
			BillingSubscriptionID: &subscription,
		}

		refs, err := service.GetOrCreateSubscription(context.Background(), user)

		assert.NoError(t, err)
		assert.Equal(t, customer, refs.CustomerRef)
		assert.Equal(t, subscription, refs.SubscriptionRef)
		mockRepo.AssertNotCalled(t, "UpdateBillingRefs")
	})

	t.Run("ProvisionsNewRefs", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewBillingService(mockRepo, slog.Default())

		user := &auth.User{ID: uuid.New()}
		mockRepo.On("UpdateBillingRefs", mock.Anything, user.ID,
			mock.MatchedBy(func(ref string) bool { return len(ref) > 4 }),
			mock.MatchedBy(func(ref string) bool { return len(ref) > 4 }),
		).Return(nil).Once()

		refs, err := service.GetOrCreateSubscription(context.Background(), user)

		assert.NoError(t, err)
		assert.True(t, len(refs.CustomerRef) > 4)
		assert.True(t, len(refs.SubscriptionRef) > 4)
		mockRepo.AssertExpectations(t)
	})
}

func TestUpdateSubscriptionStatus(t *testing.T) {
	t.Run("ActiveGrantsOmega", func(t *testing.T) {
		mockRepo := new(MockAuthRepo)
		service := NewBillingService(mockRepo, slog.Default())

		userID := uuid.New()
		upgraded := &auth.User{ID: userID, Plan: auth.PlanOmega}
		mockRepo.On("UpdatePlan", mock.Anything, userID, auth.PlanOmega).Return(upgraded, nil).Once()

		user, err := service.UpdateSubscriptionStatus(context.Background(), userID, "active")

		assert.NoError(t, err)
		assert.Equal(t, auth.PlanOmega, user.Plan)
	})

	t.Run("AnyOtherStatusRevertsToFree", func(t *testing.T) {
		for _, status := range []string{"canceled", "past_due", "incomplete"} {
			mockRepo := new(MockAuthRepo)
			service := NewBillingService(mockRepo, slog.Default())

			userID := uuid.New()
			downgraded := &auth.User{ID: userID, Plan: auth.PlanFree}
			mockRepo.On("UpdatePlan", mock.Anything, userID, auth.PlanFree).Return(downgraded, nil).Once()

			user, err := service.UpdateSubscriptionStatus(context.Background(), userID, status)

			assert.NoError(t, err, "status %q", status)
			assert.Equal(t, auth.PlanFree, user.Plan)
		}
	})
}

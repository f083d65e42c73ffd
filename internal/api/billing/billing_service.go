package billing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/analyticalinvestments/omega-api/internal/api/auth"
)

var _ BillingService = (*BillingServiceImpl)(nil)

// BillingService manages subscription references and the plan transitions
// they drive. Payment processing itself happens at the provider; this
// service only records outcomes.
type BillingService interface {
	GetOrCreateSubscription(ctx context.Context, user *auth.User) (*SubscriptionRefs, error)
	UpdateSubscriptionStatus(ctx context.Context, userID uuid.UUID, status string) (*auth.User, error)
}

type BillingServiceImpl struct {
	logger *slog.Logger
	repo   auth.AuthRepo
}

func NewBillingService(repo auth.AuthRepo, logger *slog.Logger) *BillingServiceImpl {
	return &BillingServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// GetOrCreateSubscription returns the user's existing subscription refs or
// provisions fresh ones. Idempotent: repeated calls return the same refs.
func (s *BillingServiceImpl) GetOrCreateSubscription(ctx context.Context, user *auth.User) (*SubscriptionRefs, error) {
	if user.BillingCustomerID != nil && user.BillingSubscriptionID != nil {
		return &SubscriptionRefs{
			CustomerRef:     *user.BillingCustomerID,
			SubscriptionRef: *user.BillingSubscriptionID,
		}, nil
	}

	refs := &SubscriptionRefs{
		CustomerRef:     "cus_" + randomRef(),
		SubscriptionRef: "sub_" + randomRef(),
	}
	if err := s.repo.UpdateBillingRefs(ctx, user.ID, refs.CustomerRef, refs.SubscriptionRef); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Subscription provisioned", slog.String("userID", user.ID.String()))
	return refs, nil
}

// UpdateSubscriptionStatus maps the provider status onto the plan tier:
// "active" grants OMEGA, everything else reverts to free.
func (s *BillingServiceImpl) UpdateSubscriptionStatus(ctx context.Context, userID uuid.UUID, status string) (*auth.User, error) {
	plan := auth.PlanFree
	if status == "active" {
		plan = auth.PlanOmega
	}

	user, err := s.repo.UpdatePlan(ctx, userID, plan)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Subscription status applied",
		slog.String("userID", userID.String()),
		slog.String("status", status),
		slog.String("plan", string(plan)))
	return user, nil
}

func randomRef() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}

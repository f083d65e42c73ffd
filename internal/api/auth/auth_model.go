package auth

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the coarse entitlement tier attached to every user.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanOmega Plan = "omega"
)

// Valid reports whether p is a known plan tier.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanOmega
}

// Supported OAuth provider names. "local" accounts authenticate with a
// password and have no provider row.
const (
	ProviderGoogle   = "google"
	ProviderLinkedIn = "linkedin"
)

// User is the persisted account record. PasswordHash is nil for
// OAuth-provisioned accounts; Provider/ProviderID are nil for local ones.
// At least one of the two auth paths is always present (enforced in the DB).
type User struct {
	ID                    uuid.UUID `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	PasswordHash          *string   `json:"-"`
	Provider              *string   `json:"provider,omitempty"`
	ProviderID            *string   `json:"-"`
	AvatarURL             *string   `json:"avatar,omitempty"`
	Plan                  Plan      `json:"plan"`
	BillingCustomerID     *string   `json:"-"`
	BillingSubscriptionID *string   `json:"-"`
	CreatedAt             time.Time `json:"created_at"`
}

// Session binds an opaque bearer token to a user for its lifetime.
type Session struct {
	Token     string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateUserParams carries the fields the Credential Store persists on
// account creation. Email must already be lowercased by the caller.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash *string
	Provider     *string
	ProviderID   *string
	AvatarURL    *string
}

// OAuthProfile is the provider-verified identity handed to the
// authenticator after the OAuth handshake completes.
type OAuthProfile struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Username string `json:"username" example:"testuser"`
	Email    string `json:"email" example:"newuser@example.com"`
	Password string `json:"password" example:"Str0ngPass"`
}

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"password123"`
}

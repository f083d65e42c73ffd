package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/analyticalinvestments/omega-api/app/observability/metrics"
	"github.com/analyticalinvestments/omega-api/internal/api"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines authentication operations: registration, credential
// login, OAuth provisioning, and session revocation.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*User, *Session, error)
	Login(ctx context.Context, email, password string) (*User, *Session, error)
	Logout(ctx context.Context, token string) error
	GetOrCreateUserFromProvider(ctx context.Context, profile OAuthProfile) (*User, *Session, error)
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	repo     AuthRepo
	sessions SessionManager
}

func NewAuthService(repo AuthRepo, sessions SessionManager, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		repo:     repo,
		sessions: sessions,
	}
}

// validatePassword enforces the registration password policy: at least
// 8 characters with an uppercase letter, a lowercase letter, and a digit.
func validatePassword(password string) error {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if len(password) < 8 || !hasUpper || !hasLower || !hasDigit {
		return api.ErrWeakPassword
	}
	return nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, req RegisterRequest) (*User, *Session, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", req.Username))
	m := metrics.Get()
	m.RegisterRequestsTotal.Add(ctx, 1)
	start := time.Now()
	defer func() {
		m.RegisterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	if err := validatePassword(req.Password); err != nil {
		l.WarnContext(ctx, "Registration rejected by password policy")
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return nil, nil, fmt.Errorf("register: hashing failed: %w", err)
	}
	hashStr := string(hash)

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		PasswordHash: &hashStr,
	})
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	return user, session, nil
}

// Login verifies credentials and issues a fresh session. All failure causes
// collapse into api.ErrInvalidCredentials so responses cannot be used to
// probe which emails exist or which accounts are OAuth-only.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*User, *Session, error) {
	l := s.logger.With(slog.String("method", "Login"))
	m := metrics.Get()
	m.LoginRequestsTotal.Add(ctx, 1)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			m.LoginFailuresTotal.Add(ctx, 1)
			return nil, nil, api.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.PasswordHash == nil {
		// OAuth-provisioned account with no password set.
		m.LoginFailuresTotal.Add(ctx, 1)
		return nil, nil, api.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Password mismatch on login", slog.String("userID", user.ID.String()))
		return nil, nil, api.ErrInvalidCredentials
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	return user, session, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	return s.sessions.Invalidate(ctx, token)
}

// GetOrCreateUserFromProvider completes an OAuth login with a
// provider-verified profile. Three outcomes:
//   - no account with that email: provision one, no password set
//   - account exists with no provider linked: link this one
//   - account exists linked to a different provider: reject
func (s *AuthServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, profile OAuthProfile) (*User, *Session, error) {
	l := s.logger.With(
		slog.String("method", "GetOrCreateUserFromProvider"),
		slog.String("provider", profile.Provider),
	)

	user, err := s.repo.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if user.Provider == nil {
			var avatar *string
			if profile.AvatarURL != "" {
				avatar = &profile.AvatarURL
			}
			user, err = s.repo.LinkProvider(ctx, user.ID, profile.Provider, profile.ExternalID, avatar)
			if err != nil {
				return nil, nil, err
			}
		} else if *user.Provider != profile.Provider {
			l.WarnContext(ctx, "OAuth login for email bound to another provider",
				slog.String("linked", *user.Provider))
			return nil, nil, api.ErrProviderMismatch
		}

	case errors.Is(err, api.ErrNotFound):
		user, err = s.provisionFromProfile(ctx, profile)
		if err != nil {
			return nil, nil, err
		}
		l.InfoContext(ctx, "User provisioned from OAuth profile", slog.String("userID", user.ID.String()))

	default:
		return nil, nil, err
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// provisionFromProfile creates an account for a first-time OAuth login.
// The username is derived from the profile name or the email local part;
// on a username collision a short suffix from the external ID is appended.
func (s *AuthServiceImpl) provisionFromProfile(ctx context.Context, profile OAuthProfile) (*User, error) {
	base := deriveUsername(profile)

	var avatar *string
	if profile.AvatarURL != "" {
		avatar = &profile.AvatarURL
	}

	params := CreateUserParams{
		Username:   base,
		Email:      profile.Email,
		Provider:   &profile.Provider,
		ProviderID: &profile.ExternalID,
		AvatarURL:  avatar,
	}

	user, err := s.repo.CreateUser(ctx, params)
	if err != nil && errors.Is(err, api.ErrDuplicateIdentity) {
		// Email was free so the collision is on username; retry once with
		// a suffix derived from the provider's stable ID.
		params.Username = base + "-" + shortSuffix(profile.ExternalID)
		user, err = s.repo.CreateUser(ctx, params)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func deriveUsername(profile OAuthProfile) string {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(profile.Email, "@")
	}
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '.' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "user"
	}
	return out
}

func shortSuffix(externalID string) string {
	if len(externalID) > 6 {
		return externalID[len(externalID)-6:]
	}
	return externalID
}

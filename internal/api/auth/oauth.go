package auth

import (
	"fmt"
	"os"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/markbates/goth/providers/linkedin"

	"github.com/analyticalinvestments/omega-api/config"
)

// SetupOAuthProviders registers the OAuth providers with goth and wires
// gothic's state store. The session secret must come from the environment;
// there is no fallback value.
func SetupOAuthProviders(cfg config.AuthConfig) error {
	if cfg.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is not set")
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.CookieSecure
	store.MaxAge(int(cfg.SessionTTL.Seconds()))
	gothic.Store = store

	var providers []goth.Provider
	if key, secret := os.Getenv("GOOGLE_KEY"), os.Getenv("GOOGLE_SECRET"); key != "" && secret != "" {
		providers = append(providers,
			google.New(key, secret, cfg.CallbackURL+"/google", "email", "profile"))
	}
	if key, secret := os.Getenv("LINKEDIN_KEY"), os.Getenv("LINKEDIN_SECRET"); key != "" && secret != "" {
		providers = append(providers,
			linkedin.New(key, secret, cfg.CallbackURL+"/linkedin", "r_emailaddress", "r_liteprofile"))
	}

	goth.UseProviders(providers...)
	return nil
}

// profileFromGothUser normalizes the provider payload into the shape the
// authenticator consumes.
func profileFromGothUser(gu goth.User) OAuthProfile {
	name := gu.Name
	if name == "" {
		name = gu.NickName
	}
	return OAuthProfile{
		Provider:   gu.Provider,
		ExternalID: gu.UserID,
		Email:      gu.Email,
		Name:       name,
		AvatarURL:  gu.AvatarURL,
	}
}

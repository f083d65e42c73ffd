package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Auth AuthConfig `mapstructure:"auth"`
	AI   AIConfig   `mapstructure:"ai"`
}

// AuthConfig controls session issuance and the session cookie.
// SessionSecret is deliberately not read from the config file: it must come
// from the environment (SESSION_SECRET) and startup fails without it.
type AuthConfig struct {
	SessionTTL    time.Duration `mapstructure:"sessionTTL"`
	CookieName    string        `mapstructure:"cookieName"`
	CookieSecure  bool          `mapstructure:"cookieSecure"`
	CookieDomain  string        `mapstructure:"cookieDomain"`
	CallbackURL   string        `mapstructure:"callbackURL"`
	SessionSecret string        `mapstructure:"-"`
}

type AIConfig struct {
	Model     string `mapstructure:"model"`
	MaxTokens int32  `mapstructure:"maxTokens"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	if config.Auth.SessionTTL == 0 {
		config.Auth.SessionTTL = 24 * time.Hour
	}
	if config.Auth.CookieName == "" {
		config.Auth.CookieName = "omega_session"
	}
	// Production always serves TLS, so the cookie is always Secure there.
	if config.Mode == "production" {
		config.Auth.CookieSecure = true
	}

	return config, nil
}

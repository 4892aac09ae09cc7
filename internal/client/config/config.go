package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/xplit/internal/common"
)

// ErrMissingProviderConfig is returned by Validate when the identity
// provider cannot be reached with the loaded settings.
var ErrMissingProviderConfig = errors.New("missing identity provider configuration")

// AvatarConfig points avatar uploads at an S3-compatible bucket. Uploads are
// disabled when Bucket is empty.
type AvatarConfig struct {
	Bucket        string `env:"BUCKET"`
	Region        string `env:"REGION"`
	Endpoint      string `env:"ENDPOINT"`
	AccessKey     string `env:"ACCESS_KEY"`
	SecretKey     string `env:"SECRET_KEY"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
}

// Config holds runtime settings for the xplit client.
type Config struct {
	ProviderURL    string `env:"PROVIDER_URL"`
	ProviderAPIKey string `env:"PROVIDER_API_KEY"`

	// AppScheme builds the redirect URLs handed to the provider,
	// e.g. xplit://callback.
	AppScheme  string `env:"APP_SCHEME"`
	DataDir    string `env:"DATA_DIR"`
	StorageKey string `env:"STORAGE_KEY"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	FallbackWait        time.Duration `env:"FALLBACK_WAIT"`
	AutoRefreshInterval time.Duration `env:"AUTO_REFRESH_INTERVAL"`
	RefreshMargin       time.Duration `env:"REFRESH_MARGIN"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	EmailCooldown       time.Duration `env:"EMAIL_COOLDOWN"`
	ProfileCacheTTL     time.Duration `env:"PROFILE_CACHE_TTL"`

	Avatars AvatarConfig `envPrefix:"AVATARS_"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.AppScheme = "xplit"
	c.DataDir = defaultDataDir()
	c.StorageKey = "xplit-auth-token"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.FallbackWait = 2500 * time.Millisecond
	c.AutoRefreshInterval = 30 * time.Second
	c.RefreshMargin = 60 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.EmailCooldown = 60 * time.Second
	c.ProfileCacheTTL = 5 * time.Minute
	c.Avatars = AvatarConfig{Region: "us-east-1"}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, common.AppName)
	}
	return "." + common.AppName
}

// Validate reports settings the client cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ProviderURL) == "" {
		missing = append(missing, "provider url")
	}
	if strings.TrimSpace(c.ProviderAPIKey) == "" {
		missing = append(missing, "provider api key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingProviderConfig, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(c.AppScheme) == "" {
		return fmt.Errorf("%w: app scheme", ErrMissingProviderConfig)
	}
	return nil
}

// RedirectURL is where sign-up confirmation links land.
func (c *Config) RedirectURL() string { return c.AppScheme + "://callback" }

// ResetRedirectURL is where password recovery links land.
func (c *Config) ResetRedirectURL() string { return c.AppScheme + "://reset-password" }

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

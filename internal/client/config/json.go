package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/xplit/internal/flagx"
	"github.com/dmitrijs2005/xplit/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-valued fields mean "not set" and leave the defaults alone.
type JsonConfig struct {
	ProviderURL    string `json:"provider_url"`
	ProviderAPIKey string `json:"provider_api_key"`
	AppScheme      string `json:"app_scheme"`
	DataDir        string `json:"data_dir"`
	StorageKey     string `json:"storage_key"`
	LogLevel       string `json:"log_level"`
	LogFormat      string `json:"log_format"`

	FallbackWait        *timex.Duration `json:"fallback_wait"`
	AutoRefreshInterval *timex.Duration `json:"auto_refresh_interval"`
	RefreshMargin       *timex.Duration `json:"refresh_margin"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	EmailCooldown       *timex.Duration `json:"email_cooldown"`
	ProfileCacheTTL     *timex.Duration `json:"profile_cache_ttl"`

	Avatars *AvatarJson `json:"avatars"`
}

type AvatarJson struct {
	Bucket        string `json:"bucket"`
	Region        string `json:"region"`
	Endpoint      string `json:"endpoint"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	PublicBaseURL string `json:"public_base_url"`
}

// parseJson overlays cfg with values from the file named by -c / -config.
// Without the flag nothing is loaded.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ProviderURL, jc.ProviderURL)
	setString(&cfg.ProviderAPIKey, jc.ProviderAPIKey)
	setString(&cfg.AppScheme, jc.AppScheme)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.StorageKey, jc.StorageKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	setDuration(&cfg.FallbackWait, jc.FallbackWait)
	setDuration(&cfg.AutoRefreshInterval, jc.AutoRefreshInterval)
	setDuration(&cfg.RefreshMargin, jc.RefreshMargin)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.EmailCooldown, jc.EmailCooldown)
	setDuration(&cfg.ProfileCacheTTL, jc.ProfileCacheTTL)

	if a := jc.Avatars; a != nil {
		setString(&cfg.Avatars.Bucket, a.Bucket)
		setString(&cfg.Avatars.Region, a.Region)
		setString(&cfg.Avatars.Endpoint, a.Endpoint)
		setString(&cfg.Avatars.AccessKey, a.AccessKey)
		setString(&cfg.Avatars.SecretKey, a.SecretKey)
		setString(&cfg.Avatars.PublicBaseURL, a.PublicBaseURL)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}

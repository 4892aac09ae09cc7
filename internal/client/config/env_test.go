package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("XPLIT_PROVIDER_URL", "https://env.example")
	t.Setenv("XPLIT_FALLBACK_WAIT", "750ms")
	t.Setenv("XPLIT_AVATARS_BUCKET", "avatars")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, "https://env.example", cfg.ProviderURL)
	assert.Equal(t, 750*time.Millisecond, cfg.FallbackWait)
	assert.Equal(t, "avatars", cfg.Avatars.Bucket)
	assert.Equal(t, "us-east-1", cfg.Avatars.Region)
	assert.Equal(t, 30*time.Second, cfg.AutoRefreshInterval)
}

func TestParseEnv_BadDuration(t *testing.T) {
	t.Setenv("XPLIT_REQUEST_TIMEOUT", "soon")

	cfg := &Config{}
	require.Error(t, parseEnv(cfg))
}

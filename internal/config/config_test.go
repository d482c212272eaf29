package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no .env here

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "password", cfg.AdminPassword)
	assert.Equal(t, "admin-token", cfg.AdminToken)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "review.created", cfg.AMQP.Queue)
	assert.Empty(t, cfg.AMQP.URL)
	assert.True(t, cfg.IsDev())
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("RATE_LIMIT_CAPACITY", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 3, cfg.RateLimit.Capacity)
}

func TestLoadBlankAdminSettingsUseDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", " ")
	t.Setenv("ADMIN_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "password", cfg.AdminPassword)
	assert.Equal(t, "admin-token", cfg.AdminToken)
}

func TestLoadRejectsMalformedValue(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BCRYPT_COST", "ten")

	_, err := Load()
	require.Error(t, err)
}

func TestRateLimitNormalize(t *testing.T) {
	r := RateLimitConfig{Capacity: 0, RefillTokens: -2, RefillInterval: 0, TTL: time.Second}
	r.normalize()

	assert.Equal(t, 1, r.Capacity)
	assert.Equal(t, 1, r.RefillTokens)
	assert.Equal(t, time.Second, r.RefillInterval)
	assert.Equal(t, 5*time.Second, r.TTL)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

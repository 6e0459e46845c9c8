package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://lws@localhost/lws")
	t.Setenv("JWT_SECRET_KEY", "segredo")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 300*time.Second, cfg.LabelCacheTTL)
	assert.Equal(t, time.Hour, cfg.TokenExpiry)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitPeriod)
	assert.Equal(t, 20, cfg.PageSizeDefault)
	assert.Equal(t, time.Second, cfg.ScanCooldown)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://lws@localhost/lws")
	t.Setenv("JWT_SECRET_KEY", "segredo")
	t.Setenv("PORT", "9090")
	t.Setenv("SCAN_COOLDOWN_MS", "250")
	t.Setenv("PAGE_SIZE_MAX", "50")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "dez")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.ScanCooldown)
	assert.Equal(t, 50, cfg.PageSizeMax)
	assert.Equal(t, 100, cfg.RateLimitMaxRequests, "valor inválido cai no padrão")
}

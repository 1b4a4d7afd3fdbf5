package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5200, cfg.App.Port)
	assert.Equal(t, 5, cfg.Quota.UserGameQuota)
	assert.Equal(t, 1000, cfg.Quota.AppGameQuota)
	assert.Equal(t, 50, cfg.Leaderboard.Size)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.App.AllowedOrigins())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("USER_GAME_QUOTA", "3")
	t.Setenv("APP_GAME_QUOTA", "20")
	t.Setenv("DATABASE_URL", "postgres://localhost/spot")
	t.Setenv("GAME_SERVICE_TOKEN", "token")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Quota.UserGameQuota)
	assert.Equal(t, 20, cfg.Quota.AppGameQuota)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("quota:\n  usergamequota: 7\nredis:\n  url: redis://cache:6379/0\n"), 0o600))

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Quota.UserGameQuota)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:   AppConfig{GatewayToken: "token"},
			DB:    DBConfig{DSN: "postgres://localhost/spot"},
			Quota: QuotaConfig{UserGameQuota: 5, AppGameQuota: 100},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.DB.DSN = "" }},
		{"missing gateway token", func(c *Config) { c.App.GatewayToken = "" }},
		{"zero user quota", func(c *Config) { c.Quota.UserGameQuota = 0 }},
		{"negative app quota", func(c *Config) { c.Quota.AppGameQuota = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

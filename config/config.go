// config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is read when present; environment variables always win.
const DefaultConfigFile = "config/config.yml"

type Config struct {
	App         AppConfig
	DB          DBConfig
	Quota       QuotaConfig
	R2          R2Config
	Gemini      GeminiConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Leaderboard LeaderboardConfig
	Profiles    ProfileSyncConfig
}

type AppConfig struct {
	Name                string `default:"spot-the-difference"`
	Port                int    `default:"5200" env:"APP_PORT"`
	AllowedOriginsValue string `default:"http://localhost:3000" env:"ALLOWED_ORIGINS"`
	GatewayToken        string `env:"GAME_SERVICE_TOKEN"`
	LogFormat           string `default:"json" env:"LOG_FORMAT"`
	LogLevel            string `default:"info" env:"LOG_LEVEL"`
}

type DBConfig struct {
	DSN string `env:"DATABASE_URL"`
}

// QuotaConfig holds the per-user and application-wide game creation caps.
type QuotaConfig struct {
	UserGameQuota int `default:"5" env:"USER_GAME_QUOTA"`
	AppGameQuota  int `default:"1000" env:"APP_GAME_QUOTA"`
}

type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
}

// RedisConfig is optional; an empty URL disables the leaderboard mirror.
type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type RateLimitConfig struct {
	GeneratePerMinute int `default:"6" env:"GENERATE_RATE_PER_MINUTE"`
	GenerateBurst     int `default:"3" env:"GENERATE_BURST"`
}

type LeaderboardConfig struct {
	SyncSeconds int `default:"60" env:"LEADERBOARD_SYNC_SECONDS"`
	Size        int `default:"50" env:"LEADERBOARD_SIZE"`
}

// ProfileSyncConfig points at the profile service change feed. An empty URL
// disables the sync; users are then refreshed only on sign-in.
type ProfileSyncConfig struct {
	URL             string `env:"SYNC_SERVICE_URL"`
	Path            string `default:"/api/v1/public/profiles" env:"PROFILE_SYNC_PATH"`
	IntervalSeconds int    `default:"60" env:"PROFILE_SYNC_SECONDS"`
}

// Load reads .env (if any), then the optional YAML file, then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, reading environment variables directly")
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	var cfg Config
	if err := configor.New(&configor.Config{ENVPrefix: "-"}).Load(&cfg, existing...); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// AllowedOrigins splits and trims the comma-separated origin list.
func (c AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOriginsValue, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.App.GatewayToken == "" {
		return fmt.Errorf("GAME_SERVICE_TOKEN is not set, service cannot authenticate Gateway")
	}
	if c.Quota.UserGameQuota <= 0 || c.Quota.AppGameQuota <= 0 {
		return fmt.Errorf("quota limits must be positive (user=%d, app=%d)", c.Quota.UserGameQuota, c.Quota.AppGameQuota)
	}
	return nil
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func (c AppConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", c.Name)
}

package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins []string
	RollbarToken   string

	RedisURL       string
	LeaderboardTTL time.Duration

	// Zero disables the job; the admin route still triggers a sweep.
	ExpirySweepInterval time.Duration
	ArchiveInterval     time.Duration

	DefaultWinnerMultiplier float64

	R2 R2Config
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is set to talk to the bucket.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("ENV", "DEV")
	v.SetDefault("PORT", "5200")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CHALLENGE_SERVICE_TOKEN", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("ROLLBAR_TOKEN", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LEADERBOARD_TTL", 5*time.Minute)
	v.SetDefault("EXPIRY_SWEEP_INTERVAL", time.Duration(0))
	v.SetDefault("ARCHIVE_INTERVAL", 1*time.Minute)
	v.SetDefault("DEFAULT_WINNER_MULTIPLIER", 1.5)
	v.SetDefault("CLOUDFLARE_ACCOUNT_ID", "")
	v.SetDefault("R2_ACCESS_KEY_ID", "")
	v.SetDefault("R2_ACCESS_KEY_SECRET", "")
	v.SetDefault("R2_BUCKET_NAME", "")
	v.SetDefault("CDN_BASE_URL", "")
	v.AutomaticEnv()
	return v
}

// Load reads .env (if present) and the environment into a Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  config: failed to load .env: %v", err)
	}
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Env:                     strings.ToUpper(v.GetString("ENV")),
		Port:                    v.GetString("PORT"),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		ServiceToken:            v.GetString("CHALLENGE_SERVICE_TOKEN"),
		RollbarToken:            v.GetString("ROLLBAR_TOKEN"),
		RedisURL:                v.GetString("REDIS_URL"),
		LeaderboardTTL:          v.GetDuration("LEADERBOARD_TTL"),
		ExpirySweepInterval:     v.GetDuration("EXPIRY_SWEEP_INTERVAL"),
		ArchiveInterval:         v.GetDuration("ARCHIVE_INTERVAL"),
		DefaultWinnerMultiplier: v.GetFloat64("DEFAULT_WINNER_MULTIPLIER"),
		R2: R2Config{
			AccountID:       v.GetString("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			AccessKeySecret: v.GetString("R2_ACCESS_KEY_SECRET"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			CDNBaseURL:      v.GetString("CDN_BASE_URL"),
		},
	}

	for _, origin := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}
	return cfg
}

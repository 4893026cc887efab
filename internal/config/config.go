package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	DBMaxConns  int
	RedisURL    string
	NATSURL     string
	ChannelBase string

	JWTSecret          string
	SSOSecret          string
	SSORedirectURL     string
	SSOErrorURL        string
	SessionTTL         time.Duration
	AllowedOrigins     string
	RateLimitPerMinute int

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int

	DraftTTL          time.Duration
	PortfolioCacheTTL time.Duration

	SendGridAPIKey    string
	SendGridFromEmail string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTFOLIO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Portfolio API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "portfolio")
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("rate_limit.per_minute", 120)
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("sso.redirect_url", "/")
	v.SetDefault("sso.error_url", "/login?error=sso")
	v.SetDefault("cloudinary.folder", "portfolio/artifacts")
	v.SetDefault("upload.max_size_mb", 25)
	v.SetDefault("draft.ttl", "168h")
	v.SetDefault("portfolio.cache_ttl", "5m")
	v.SetDefault("database.max_conns", 20)

	durations := map[string]time.Duration{}
	for _, key := range []string{"session.ttl", "draft.ttl", "portfolio.cache_ttl"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		DBMaxConns:             v.GetInt("database.max_conns"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		ChannelBase:            v.GetString("channel.base"),
		JWTSecret:              v.GetString("jwt.secret"),
		SSOSecret:              v.GetString("sso.secret"),
		SSORedirectURL:         v.GetString("sso.redirect_url"),
		SSOErrorURL:            v.GetString("sso.error_url"),
		SessionTTL:             durations["session.ttl"],
		AllowedOrigins:         v.GetString("cors.allowed_origins"),
		RateLimitPerMinute:     v.GetInt("rate_limit.per_minute"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		DraftTTL:               durations["draft.ttl"],
		PortfolioCacheTTL:      durations["portfolio.cache_ttl"],
		SendGridAPIKey:         v.GetString("sendgrid.api_key"),
		SendGridFromEmail:      v.GetString("sendgrid.from_email"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 25
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 120
	}

	return cfg, nil
}

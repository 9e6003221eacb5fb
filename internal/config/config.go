package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	RateLimit  RateLimitConfig
	Slack      SlackConfig
	SSO        SSOConfig
	SelfHosted bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string //nolint:gosec // G117: DB connection config
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// PublicURL is the web app base used for deep links in chat messages.
	PublicURL string
}

// RateLimitConfig holds token-bucket settings. The auth pair applies per
// client IP to the credential endpoints.
type RateLimitConfig struct {
	RPS       float64
	Burst     int
	AuthRPS   float64
	AuthBurst int
}

// SlackConfig holds Slack notification settings.
type SlackConfig struct {
	BotToken string
}

// SSOConfig holds OAuth2 client settings per identity provider. A provider
// is enabled when its client ID is set.
type SSOConfig struct {
	Google    OAuthClientConfig
	Microsoft OAuthClientConfig
	// MicrosoftTenant is the Entra ID tenant, "common" for multi-tenant apps.
	MicrosoftTenant string
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string //nolint:gosec // G117: OAuth client config
	RedirectURL  string
}

// Enabled reports whether the provider is configured.
func (c OAuthClientConfig) Enabled() bool {
	return c.ClientID != ""
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("DOCKET_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("DOCKET_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	autoMigrate, err := getEnvBool("DOCKET_DB_AUTO_MIGRATE", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("DOCKET_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("DOCKET_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("DOCKET_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("DOCKET_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("DOCKET_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	shutdownTimeout, err := getEnvDuration("DOCKET_SERVER_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("DOCKET_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("DOCKET_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	authRPS, err := getEnvFloat("DOCKET_AUTH_RATE_LIMIT_RPS", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	authBurst, err := getEnvInt("DOCKET_AUTH_RATE_LIMIT_BURST", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("DOCKET_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("DOCKET_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:        getEnv("DOCKET_DB_HOST", "localhost"),
			Port:        dbPort,
			User:        getEnv("DOCKET_DB_USER", "docket"),
			Password:    getEnv("DOCKET_DB_PASSWORD", ""),
			DBName:      getEnv("DOCKET_DB_NAME", "docket_dev"),
			SSLMode:     getEnv("DOCKET_DB_SSLMODE", "disable"),
			MaxConns:    dbMaxConns,
			AutoMigrate: autoMigrate,
		},
		Redis: RedisConfig{
			Addr:     getEnv("DOCKET_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("DOCKET_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("DOCKET_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:            getEnv("DOCKET_SERVER_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			CORSOrigins:     corsOrigins,
			PublicURL:       getEnv("DOCKET_PUBLIC_URL", "http://localhost:5173"),
		},
		RateLimit: RateLimitConfig{
			RPS:       rps,
			Burst:     burst,
			AuthRPS:   authRPS,
			AuthBurst: authBurst,
		},
		Slack: SlackConfig{
			BotToken: getEnv("DOCKET_SLACK_BOT_TOKEN", ""),
		},
		SSO: SSOConfig{
			Google: OAuthClientConfig{
				ClientID:     getEnv("DOCKET_SSO_GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("DOCKET_SSO_GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("DOCKET_SSO_GOOGLE_REDIRECT_URL", ""),
			},
			Microsoft: OAuthClientConfig{
				ClientID:     getEnv("DOCKET_SSO_MICROSOFT_CLIENT_ID", ""),
				ClientSecret: getEnv("DOCKET_SSO_MICROSOFT_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("DOCKET_SSO_MICROSOFT_REDIRECT_URL", ""),
			},
			MicrosoftTenant: getEnv("DOCKET_SSO_MICROSOFT_TENANT", "common"),
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("DOCKET_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("DOCKET_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("DOCKET_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DOCKET_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DOCKET_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("DOCKET_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("DOCKET_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("DOCKET_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("DOCKET_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("DOCKET_SERVER_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("DOCKET_RATE_LIMIT_RPS and DOCKET_RATE_LIMIT_BURST must be positive, got %g/%d",
			c.RateLimit.RPS, c.RateLimit.Burst)
	}
	if c.RateLimit.AuthRPS <= 0 || c.RateLimit.AuthBurst < 1 {
		return fmt.Errorf("DOCKET_AUTH_RATE_LIMIT_RPS and DOCKET_AUTH_RATE_LIMIT_BURST must be positive, got %g/%d",
			c.RateLimit.AuthRPS, c.RateLimit.AuthBurst)
	}

	for name, p := range map[string]OAuthClientConfig{"GOOGLE": c.SSO.Google, "MICROSOFT": c.SSO.Microsoft} {
		if p.Enabled() && (p.ClientSecret == "" || p.RedirectURL == "") {
			return fmt.Errorf("DOCKET_SSO_%s_CLIENT_SECRET and DOCKET_SSO_%s_REDIRECT_URL are required when the client ID is set", name, name)
		}
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

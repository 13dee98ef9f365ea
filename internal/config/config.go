package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	JWT           JWTConfig           `yaml:"jwt"`
	Log           LogConfig           `yaml:"log"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Analytics     AnalyticsConfig     `yaml:"analytics"`
}

// ServerConfig contains gRPC and side HTTP server settings
type ServerConfig struct {
	Host               string  `yaml:"host"`
	Port               int     `yaml:"port"`
	HTTPPort           int     `yaml:"http_port"`
	RateLimitRPS       float64 `yaml:"rate_limit_rps"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	PeerRateLimitRPS   float64 `yaml:"peer_rate_limit_rps"`
	PeerRateLimitBurst int     `yaml:"peer_rate_limit_burst"`
}

const (
	DatabaseTypePostgres = "postgres"
	DatabaseTypeMemory   = "memory"
)

// DatabaseConfig contains PostgreSQL connection settings. Type "memory" runs
// against the in-process store and ignores the rest.
type DatabaseConfig struct {
	Type                  string `yaml:"type"`
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	Password              string `yaml:"password"`
	Database              string `yaml:"database"`
	SSLMode               string `yaml:"ssl_mode"`
	MaxOpenConns          int    `yaml:"max_open_conns"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	Issuer             string `yaml:"issuer"`
	AccessTokenExpiry  int    `yaml:"access_token_expiry_minutes"`
	RefreshTokenExpiry int    `yaml:"refresh_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

const (
	NotifierLog      = "log"
	NotifierSendGrid = "sendgrid"
)

// NotificationsConfig selects the delivery adapter
type NotificationsConfig struct {
	Provider       string `yaml:"provider"` // "log" or "sendgrid"
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings (seconds field included)
type SchedulerConfig struct {
	ExpireQuotes      string `yaml:"expire_quotes"`
	ReportBottlenecks string `yaml:"report_bottlenecks"`
}

// AnalyticsConfig bounds the admin dashboard queries
type AnalyticsConfig struct {
	DefaultWindowMonths int    `yaml:"default_window_months"`
	MaxWindowMonths     int    `yaml:"max_window_months"`
	TopN                int    `yaml:"top_n"`
	MaxTopN             int    `yaml:"max_top_n"`
	Currency            string `yaml:"currency"`
}

// Load reads configuration from a YAML file, then .env, then the environment.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("DATABASE_TYPE", &c.Database.Type)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	envString("JWT_SECRET", &c.JWT.Secret)

	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("SERVER_HTTP_PORT", &c.Server.HTTPPort)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envString("NOTIFICATIONS_PROVIDER", &c.Notifications.Provider)
	envString("SENDGRID_API_KEY", &c.Notifications.SendGridAPIKey)
}

// Validate fills defaults and checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 || c.Server.HTTPPort == c.Server.Port {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 20
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 40
	}
	if c.Server.PeerRateLimitRPS == 0 {
		c.Server.PeerRateLimitRPS = 100
	}
	if c.Server.PeerRateLimitBurst == 0 {
		c.Server.PeerRateLimitBurst = 200
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 ||
		c.Server.PeerRateLimitRPS < 0 || c.Server.PeerRateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	if c.Database.Type == "" {
		c.Database.Type = DatabaseTypePostgres
	}
	switch c.Database.Type {
	case DatabaseTypeMemory:
	case DatabaseTypePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.MaxOpenConns == 0 {
			c.Database.MaxOpenConns = 20
		}
		if c.Database.ConnectTimeoutSeconds == 0 {
			c.Database.ConnectTimeoutSeconds = 60
		}
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "medequip-marketplace"
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 15
	}
	if c.JWT.RefreshTokenExpiry == 0 {
		c.JWT.RefreshTokenExpiry = 7 * 24 * 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Notifications.Provider == "" {
		c.Notifications.Provider = NotifierLog
	}
	switch c.Notifications.Provider {
	case NotifierLog:
	case NotifierSendGrid:
		if c.Notifications.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
		if c.Notifications.FromEmail == "" {
			return fmt.Errorf("notifications from_email is required")
		}
	default:
		return fmt.Errorf("unknown notifications provider: %q", c.Notifications.Provider)
	}

	if c.Scheduler.ExpireQuotes == "" {
		c.Scheduler.ExpireQuotes = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.ReportBottlenecks == "" {
		c.Scheduler.ReportBottlenecks = "0 0 6 * * *" // 6 AM UTC
	}

	if c.Analytics.DefaultWindowMonths == 0 {
		c.Analytics.DefaultWindowMonths = 6
	}
	if c.Analytics.MaxWindowMonths == 0 {
		c.Analytics.MaxWindowMonths = 24
	}
	if c.Analytics.TopN == 0 {
		c.Analytics.TopN = 5
	}
	if c.Analytics.MaxTopN == 0 {
		c.Analytics.MaxTopN = 100
	}
	if c.Analytics.Currency == "" {
		c.Analytics.Currency = "VND"
	}
	if c.Analytics.DefaultWindowMonths > c.Analytics.MaxWindowMonths {
		return fmt.Errorf("analytics default window exceeds max: %d > %d",
			c.Analytics.DefaultWindowMonths, c.Analytics.MaxWindowMonths)
	}
	if c.Analytics.TopN > c.Analytics.MaxTopN {
		return fmt.Errorf("analytics top_n exceeds max: %d > %d", c.Analytics.TopN, c.Analytics.MaxTopN)
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the side HTTP server address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.JWT.RefreshTokenExpiry) * time.Minute
}

func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Database.ConnectTimeoutSeconds) * time.Second
}

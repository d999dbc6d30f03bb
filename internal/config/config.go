package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Log      LogConfig
	OTP      OTPConfig
	SMTP     SMTPConfig
	Redis    RedisConfig
	Babsy    BabsyConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database connection settings.
// URL takes precedence over the individual fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	AuthRateLimit  int
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env          string
	URL          string
	JWTSecret    string
	SessionTTL   time.Duration
	SecureCookie bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
}

// OTPConfig holds one-time-code login settings
type OTPConfig struct {
	Expiry          time.Duration
	ResendInterval  time.Duration
	DeliveryTimeout time.Duration
	BlockedDomains  []string
}

// SMTPConfig holds outgoing mail settings. An empty Host disables SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BabsyConfig holds Babsy App API settings
type BabsyConfig struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// JobsConfig holds background job settings
type JobsConfig struct {
	OTPCleanupInterval time.Duration
}

// DefaultBlockedDomains are consumer mail providers rejected by the code login
var DefaultBlockedDomains = []string{
	"gmail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"icloud.com",
	"proton.me",
	"protonmail.com",
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "vouchers"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		App: AppConfig{
			Env:          getEnv("APP_ENV", "development"),
			URL:          getEnv("APP_URL", "http://localhost:3000"),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			SessionTTL:   getEnvDuration("SESSION_TTL", 30*24*time.Hour),
			SecureCookie: getEnvBool("SECURE_COOKIE", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		OTP: OTPConfig{
			Expiry:          getEnvDuration("OTP_EXPIRY", 10*time.Minute),
			ResendInterval:  getEnvDuration("OTP_RESEND_INTERVAL", time.Minute),
			DeliveryTimeout: getEnvDuration("OTP_DELIVERY_TIMEOUT", 10*time.Second),
			BlockedDomains:  getEnvList("OTP_BLOCKED_DOMAINS", DefaultBlockedDomains),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@babsy.ch"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Babsy: BabsyConfig{
			APIURL:  getEnv("BABSY_APP_API_URL", ""),
			APIKey:  getEnv("BABSY_APP_API_KEY", ""),
			Timeout: getEnvDuration("BABSY_APP_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			OTPCleanupInterval: getEnvDuration("OTP_CLEANUP_INTERVAL", time.Hour),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.OTP.Expiry <= 0 || config.OTP.DeliveryTimeout <= 0 {
		return nil, fmt.Errorf("OTP_EXPIRY and OTP_DELIVERY_TIMEOUT must be positive")
	}

	return config, nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go duration strings ("90s", "1h")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

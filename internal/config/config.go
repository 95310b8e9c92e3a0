package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token formats accepted by AUTH_TOKEN_FORMAT
const (
	TokenFormatPaseto = "paseto"
	TokenFormatJWT    = "jwt"
)

// Database drivers accepted by DB_DRIVER
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Email delivery modes accepted by EMAIL_DELIVERY
const (
	DeliverySMTP  = "smtp"
	DeliveryRedis = "redis"
	DeliveryLog   = "log"
)

// Password hashing algorithms accepted by PASSWORD_HASHER
const (
	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
	SeedEnabled     bool     // exposes GET /api/users/seed
}

type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	SQLitePath     string
	AutoMigrate    bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenFormat string
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey     []byte
	JWTSecret     []byte
	TokenDuration time.Duration

	PasswordHasher string
	BcryptCost     int

	// ResetTokenTTL bounds how long a reset token stays usable; 0 keeps it valid until consumed or replaced
	ResetTokenTTL time.Duration
	// HideUnknownAccounts makes forgot/reset password answer the same for unknown accounts
	HideUnknownAccounts bool
	// ProtectedAdminEmail is the account that can never be deleted
	ProtectedAdminEmail string
}

type EmailConfig struct {
	Delivery     string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	From         string
	FrontendURL  string // base for reset-password links
	OutboxKey    string // redis list used by the outbox
}

// Load reads configuration from environment variables
// A .env file in the working directory is loaded first when present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
			SeedEnabled:     getBoolEnv("SEED_ENABLED", env == "dev"),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", DriverPostgres),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "storefront"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			SQLitePath:     getEnv("DB_SQLITE_PATH", "file:storefront.db?cache=shared"),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenFormat:         strings.ToLower(getEnv("AUTH_TOKEN_FORMAT", TokenFormatPaseto)),
			PasetoKey:           []byte(getEnv("PASETO_KEY", "")),
			JWTSecret:           []byte(getEnv("JWT_SECRET", "")),
			TokenDuration:       getDurationEnv("TOKEN_DURATION", 30*24*time.Hour),
			PasswordHasher:      strings.ToLower(getEnv("PASSWORD_HASHER", HasherArgon2id)),
			BcryptCost:          getIntEnv("BCRYPT_COST", 10),
			ResetTokenTTL:       getDurationEnv("RESET_TOKEN_TTL", 0),
			HideUnknownAccounts: getBoolEnv("AUTH_HIDE_UNKNOWN_ACCOUNTS", false),
			ProtectedAdminEmail: getEnv("ADMIN_PROTECTED_EMAIL", "admin@example.com"),
		},
		Email: EmailConfig{
			Delivery:     strings.ToLower(getEnv("EMAIL_DELIVERY", "")),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			From:         getEnv("EMAIL_FROM", "Storefront <no-reply@example.com>"),
			FrontendURL:  strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
			OutboxKey:    getEnv("EMAIL_OUTBOX_KEY", "mail:outbox"),
		},
	}

	// Without an SMTP host the only useful delivery is the log
	if cfg.Email.Delivery == "" {
		if cfg.Email.SMTPHost == "" {
			cfg.Email.Delivery = DeliveryLog
		} else {
			cfg.Email.Delivery = DeliverySMTP
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks combinations that cannot work at runtime
func (c *Config) Validate() error {
	var errs []error

	switch c.Auth.TokenFormat {
	case TokenFormatPaseto:
		if len(c.Auth.PasetoKey) != 32 {
			errs = append(errs, fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey)))
		}
	case TokenFormatJWT:
		if len(c.Auth.JWTSecret) < 32 {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret)))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_TOKEN_FORMAT %q", c.Auth.TokenFormat))
	}

	if c.Auth.TokenDuration <= 0 {
		errs = append(errs, errors.New("TOKEN_DURATION must be positive"))
	}

	switch c.Auth.PasswordHasher {
	case HasherArgon2id, HasherBcrypt:
	default:
		errs = append(errs, fmt.Errorf("unsupported PASSWORD_HASHER %q", c.Auth.PasswordHasher))
	}

	if c.Auth.ResetTokenTTL < 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must not be negative"))
	}

	if _, err := mail.ParseAddress(c.Auth.ProtectedAdminEmail); err != nil {
		errs = append(errs, fmt.Errorf("ADMIN_PROTECTED_EMAIL is not a valid address: %w", err))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Email.Delivery {
	case DeliveryLog:
	case DeliverySMTP, DeliveryRedis:
		if c.Email.SMTPHost == "" {
			errs = append(errs, fmt.Errorf("SMTP_HOST is required for EMAIL_DELIVERY=%s", c.Email.Delivery))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported EMAIL_DELIVERY %q", c.Email.Delivery))
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv reads a number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	SMS      SMSConfig
	Worker   WorkerConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	// DevMode short-circuits OTP delivery and returns the plaintext
	// code in the response. Must never be enabled in production.
	DevMode          bool
	CodeTTL          time.Duration
	SessionTTL       time.Duration
	OTPMaxAttempts   int
	OTPWindow        time.Duration
	OTPBlockDuration time.Duration
	CookieName       string
	CookieSecure     bool
	CleanupInterval  time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
}

type SMSConfig struct {
	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioFromNumber          string
	TwilioMessagingServiceSID string
}

type WorkerConfig struct {
	CheckInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "pricewatch"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseCSVList(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			DevMode:          getEnvAsBool("AUTH_DEV_MODE", env != "production"),
			CodeTTL:          getEnvAsDuration("AUTH_CODE_TTL", 10*time.Minute),
			SessionTTL:       getEnvAsDuration("AUTH_SESSION_TTL", 168*time.Hour),
			OTPMaxAttempts:   getEnvAsInt("AUTH_OTP_MAX_ATTEMPTS", 5),
			OTPWindow:        getEnvAsDuration("AUTH_OTP_WINDOW", 15*time.Minute),
			OTPBlockDuration: getEnvAsDuration("AUTH_OTP_BLOCK_DURATION", 30*time.Minute),
			CookieName:       getEnv("AUTH_COOKIE_NAME", "pw_session"),
			CookieSecure:     getEnvAsBool("AUTH_COOKIE_SECURE", env == "production"),
			CleanupInterval:  getEnvAsDuration("AUTH_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		SMS: SMSConfig{
			TwilioAccountSID:          getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:           getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFromNumber:          getEnv("TWILIO_FROM_NUMBER", ""),
			TwilioMessagingServiceSID: getEnv("TWILIO_MESSAGING_SERVICE_SID", ""),
		},
		Worker: WorkerConfig{
			CheckInterval: getEnvAsDuration("WORKER_CHECK_INTERVAL", 5*time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateAuthConfig(&cfg.Auth, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateAuthConfig enforces sane limits on the OTP settings
func validateAuthConfig(auth *AuthConfig, env string) error {
	if env == "production" && auth.DevMode {
		return fmt.Errorf("AUTH_DEV_MODE must not be enabled in production")
	}

	if auth.OTPMaxAttempts < 1 {
		return fmt.Errorf("AUTH_OTP_MAX_ATTEMPTS must be at least 1 (got %d)", auth.OTPMaxAttempts)
	}

	if auth.CodeTTL <= 0 {
		return fmt.Errorf("AUTH_CODE_TTL must be positive")
	}

	if auth.SessionTTL <= 0 {
		return fmt.Errorf("AUTH_SESSION_TTL must be positive")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseCSVList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}

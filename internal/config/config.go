package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Server
	Port         string
	CORSOrigins  string
	CookieSecure bool
	AppEnv       string
	SentryDSN    string

	// Requests per minute per client IP
	RateLimit     int
	AuthRateLimit int

	// Object storage
	StorageDir       string
	StoragePublicURL string
	AvatarMaxBytes   int64

	// One-time codes
	OTPTTL      time.Duration
	OTPCooldown time.Duration

	// Jobs
	ReminderSchedule string
	LogRetentionDays int

	// Mail
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// OAuth audiences
	AppleClientIDs  []string
	GoogleClientIDs []string
}

// Load reads .env (if present), tusktask.yaml (if present) and the
// environment, in increasing order of precedence.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("tusktask")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file", "error", err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "tusktask")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "data/tusktask.db")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRY", "720h")

	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("RATE_LIMIT", 60)
	v.SetDefault("AUTH_RATE_LIMIT", 10)

	v.SetDefault("STORAGE_DIR", "data/storage")
	v.SetDefault("STORAGE_PUBLIC_URL", "/storage")
	v.SetDefault("AVATAR_MAX_BYTES", 5*1024*1024)

	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_COOLDOWN", "60s")

	v.SetDefault("REMINDER_SCHEDULE", "@every 1m")
	v.SetDefault("LOG_RETENTION_DAYS", 30)

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "TuskTask <no-reply@tusktask.app>")

	v.SetDefault("APPLE_CLIENT_IDS", "")
	v.SetDefault("GOOGLE_CLIENT_IDS", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		DBPath:     v.GetString("DB_PATH"),

		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTAccessExpiry:  parseDuration(v.GetString("JWT_ACCESS_EXPIRY"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(v.GetString("JWT_REFRESH_EXPIRY"), 720*time.Hour),

		Port:         v.GetString("PORT"),
		CORSOrigins:  v.GetString("CORS_ORIGINS"),
		CookieSecure: v.GetBool("COOKIE_SECURE"),
		AppEnv:       v.GetString("APP_ENV"),
		SentryDSN:    v.GetString("SENTRY_DSN"),

		RateLimit:     v.GetInt("RATE_LIMIT"),
		AuthRateLimit: v.GetInt("AUTH_RATE_LIMIT"),

		StorageDir:       v.GetString("STORAGE_DIR"),
		StoragePublicURL: strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
		AvatarMaxBytes:   v.GetInt64("AVATAR_MAX_BYTES"),

		OTPTTL:      parseDuration(v.GetString("OTP_TTL"), 10*time.Minute),
		OTPCooldown: parseDuration(v.GetString("OTP_COOLDOWN"), time.Minute),

		ReminderSchedule: v.GetString("REMINDER_SCHEDULE"),
		LogRetentionDays: v.GetInt("LOG_RETENTION_DAYS"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetString("SMTP_PORT"),
		SMTPUser:     v.GetString("SMTP_USER"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		SMTPFrom:     v.GetString("SMTP_FROM"),

		AppleClientIDs:  parseCSV(v.GetString("APPLE_CLIENT_IDS")),
		GoogleClientIDs: parseCSV(v.GetString("GOOGLE_CLIENT_IDS")),
	}
}

// DSN returns the driver-specific connection string.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errMissing("JWT_SECRET")
	}
	if c.DBDriver == "postgres" && c.DBPassword == "" {
		return errMissing("DB_PASSWORD")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return &SettingError{Key: "DB_DRIVER", Reason: "must be postgres or sqlite"}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

type SettingError struct {
	Key    string
	Reason string
}

func (e *SettingError) Error() string {
	return e.Key + " " + e.Reason
}

func errMissing(key string) error {
	return &SettingError{Key: key, Reason: "environment variable is required"}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	Env       string
	DBAdapter string

	SQLiteFile string

	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Preview gate settings
	CodeSalt        string
	SessionSecret   string
	GrantTTL        time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	RedisAddr       string

	AdminAPIKeyHash string

	TemplatesDir string

	// Transactional mail (Brevo)
	BrevoAPIKey  string
	MailFrom     string
	MailFromName string
	MailTo       string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	// If DSN is provided directly, use it
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or DATABASE_URL must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable" // local development default
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

func New() (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load(".env")

	c := &Config{
		Port:       getenv("PORT", "8080"),
		Env:        getenv("ENV", "development"),
		DBAdapter:  getenv("DB_ADAPTER", "postgres"),
		SQLiteFile: getenv("SQLITE_FILE", "./data/previewgate.db"),

		PostgresDSN:      getenv("POSTGRES_DSN", getenv("DATABASE_URL", "")),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "cybercare")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "previewgate")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),

		CodeSalt:      os.Getenv("CODE_SALT"),
		SessionSecret: getenv("SESSION_SECRET", "dev-session-secret"),
		RedisAddr:     getenv("REDIS_ADDR", ""),

		AdminAPIKeyHash: getenv("ADMIN_API_KEY_HASH", ""),

		TemplatesDir: getenv("TEMPLATES_DIR", "./templates"),

		BrevoAPIKey:  getenv("BREVO_API_KEY", ""),
		MailFrom:     getenv("MAIL_FROM", ""),
		MailFromName: getenv("MAIL_FROM_NAME", "CyberCare"),
		MailTo:       getenv("MAIL_TO", ""),
	}

	// The salt has no default on purpose: with a guessable salt every stored
	// fingerprint is brute-forceable offline. Refuse to start instead.
	if strings.TrimSpace(c.CodeSalt) == "" {
		return nil, errors.New("CODE_SALT must be set")
	}

	if c.IsProduction() {
		if c.SessionSecret == "" || c.SessionSecret == "dev-session-secret" {
			return nil, errors.New("SESSION_SECRET must be set in production")
		}
	}

	maxTries, err := getenvInt("RATE_LIMIT_MAX", 10)
	if err != nil {
		return nil, err
	}
	if maxTries <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", maxTries)
	}
	c.RateLimitMax = maxTries

	windowSecs, err := getenvInt("RATE_LIMIT_WINDOW_SECONDS", 600)
	if err != nil {
		return nil, err
	}
	if windowSecs <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive, got %d", windowSecs)
	}
	c.RateLimitWindow = time.Duration(windowSecs) * time.Second

	ttlMins, err := getenvInt("GRANT_TTL_MINUTES", 720)
	if err != nil {
		return nil, err
	}
	c.GrantTTL = time.Duration(ttlMins) * time.Minute

	if c.DBAdapter == "postgres" {
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	}

	if c.DBAdapter == "sqlite" && c.SQLiteFile == "" {
		return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}

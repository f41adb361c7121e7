package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/communitytime/allocation-api/internal/validate"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	IdentityGoogle = "google"
	IdentityLocal  = "local"
)

// Config is built once at startup and handed to every component.
type Config struct {
	Port     int
	Env      string
	LogLevel string

	DBDSN       string
	AutoMigrate bool
	RedisURL    string

	StrictAuth       bool
	IdentityProvider string
	GoogleClientID   string
	IdentitySecret   string
	IdentityTTL      time.Duration

	AdminPassword     string
	AdminPasswordHash string

	AllowOrigins []string
	// TrustProxy lets X-Forwarded-For / X-Real-IP name the client. Only set
	// it behind a proxy that overwrites those headers.
	TrustProxy bool

	RateLimitGeneral RateLimitConfig
	RateLimitAuth    RateLimitConfig
	RateLimitSubmit  RateLimitConfig

	Limits            validate.Limits
	QuestionsRequired bool
	Questions         QuestionSets

	AuditListKey    string
	AuditMaxEntries int64
}

// RateLimitConfig is a fixed-window budget per caller.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT is invalid")
	}
	cfg.Port = port

	cfg.Env = strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", EnvDevelopment)))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", "info"))

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}
	if cfg.AutoMigrate, err = parseBoolEnv("AUTO_MIGRATE", false); err != nil {
		return nil, err
	}
	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))

	if cfg.StrictAuth, err = parseBoolEnv("STRICT_AUTH", false); err != nil {
		return nil, err
	}
	cfg.IdentityProvider = strings.ToLower(strings.TrimSpace(getEnv("IDENTITY_PROVIDER", IdentityGoogle)))
	cfg.GoogleClientID = strings.TrimSpace(getEnv("GOOGLE_CLIENT_ID", ""))
	cfg.IdentitySecret = strings.TrimSpace(getEnv("IDENTITY_TOKEN_SECRET", ""))
	if cfg.IdentityTTL, err = parseDurationEnv("IDENTITY_TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}

	switch cfg.IdentityProvider {
	case IdentityGoogle:
		if cfg.StrictAuth && cfg.GoogleClientID == "" {
			return nil, errors.New("GOOGLE_CLIENT_ID is required when STRICT_AUTH is enabled")
		}
	case IdentityLocal:
		if cfg.StrictAuth && len(cfg.IdentitySecret) < 32 {
			return nil, errors.New("IDENTITY_TOKEN_SECRET must have at least 32 characters")
		}
	default:
		return nil, fmt.Errorf("IDENTITY_PROVIDER %q is not supported", cfg.IdentityProvider)
	}

	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "")
	cfg.AdminPasswordHash = strings.TrimSpace(getEnv("ADMIN_PASSWORD_HASH", ""))

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", "https://pelicantimesubmission.fly.dev,https://pelican.refracted.io"))

	if cfg.TrustProxy, err = parseBoolEnv("TRUST_PROXY", false); err != nil {
		return nil, err
	}

	if cfg.RateLimitGeneral, err = parseRateLimit("RATE_LIMIT_GENERAL", 100, 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimit("RATE_LIMIT_AUTH", 5, 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitSubmit, err = parseRateLimit("RATE_LIMIT_SUBMISSIONS", 20, 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Limits = validate.DefaultLimits()
	if cfg.Limits.MaxEntries, err = parseIntEnv("MAX_ENTRIES_PER_SUBMISSION", cfg.Limits.MaxEntries); err != nil {
		return nil, err
	}
	if cfg.Limits.MaxNoteLength, err = parseIntEnv("MAX_NOTE_LENGTH", cfg.Limits.MaxNoteLength); err != nil {
		return nil, err
	}
	if cfg.Limits.MaxHours, err = parseFloatEnv("MAX_HOURS_PER_ENTRY", cfg.Limits.MaxHours); err != nil {
		return nil, err
	}
	if cfg.Limits.MaxEntries <= 0 || cfg.Limits.MaxNoteLength <= 0 || cfg.Limits.MaxHours <= 0 {
		return nil, errors.New("validation limits must be positive")
	}

	if cfg.QuestionsRequired, err = parseBoolEnv("QUESTIONS_REQUIRED", false); err != nil {
		return nil, err
	}
	cfg.Questions = DefaultQuestionSets()
	if path := strings.TrimSpace(getEnv("QUESTIONS_FILE", "")); path != "" {
		sets, err := LoadQuestionSets(path)
		if err != nil {
			return nil, err
		}
		cfg.Questions = sets
	}

	cfg.AuditListKey = getEnv("AUDIT_LIST_KEY", "audit:gate")
	maxAudit, err := parseIntEnv("AUDIT_MAX_ENTRIES", 1000)
	if err != nil {
		return nil, err
	}
	cfg.AuditMaxEntries = int64(maxAudit)

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " is invalid")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " is invalid")
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.New(key + " is invalid")
	}
	return f, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " is invalid")
	}
	return b, nil
}

// parseRateLimit reads KEY (max requests) and KEY_WINDOW (duration).
func parseRateLimit(key string, defMax int, defWindow time.Duration) (RateLimitConfig, error) {
	max, err := parseIntEnv(key, defMax)
	if err != nil {
		return RateLimitConfig{}, err
	}
	if max <= 0 {
		return RateLimitConfig{}, errors.New(key + " must be positive")
	}
	window, err := parseDurationEnv(key+"_WINDOW", defWindow)
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{Max: max, Window: window}, nil
}

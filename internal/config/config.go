package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Governance GovernanceConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines credential verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	OIDCIssuer            string
	OIDCClientID          string
	VerifyTimeoutSeconds  int
}

// RateClass is one named rate-limit configuration. Distinct call classes
// carry distinct windows and budgets.
type RateClass struct {
	Name         string
	WindowMillis int
	MaxRequests  int
}

// Window returns the window as a duration.
func (r RateClass) Window() time.Duration {
	return time.Duration(r.WindowMillis) * time.Millisecond
}

// GovernanceConfig bundles the governance layer's tunables.
type GovernanceConfig struct {
	CredentialIssuance   RateClass
	ContentCreation      RateClass
	Read                 RateClass
	AdminOps             RateClass
	PublishDailyLimit    int
	SweepIntervalSeconds int
}

// SweepInterval returns the rate-limit sweep cadence.
func (g GovernanceConfig) SweepInterval() time.Duration {
	return time.Duration(g.SweepIntervalSeconds) * time.Second
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "content-governance"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			OIDCIssuer:            os.Getenv("AUTH_OIDC_ISSUER"),
			OIDCClientID:          os.Getenv("AUTH_OIDC_CLIENT_ID"),
			VerifyTimeoutSeconds:  getEnvAsInt("AUTH_VERIFY_TIMEOUT_SECONDS", 5),
		},
		Governance: GovernanceConfig{
			CredentialIssuance: RateClass{
				Name:         "credential",
				WindowMillis: getEnvAsInt("RATE_CREDENTIAL_WINDOW_MILLIS", 60000),
				MaxRequests:  getEnvAsInt("RATE_CREDENTIAL_MAX_REQUESTS", 5),
			},
			ContentCreation: RateClass{
				Name:         "creation",
				WindowMillis: getEnvAsInt("RATE_CREATION_WINDOW_MILLIS", 60000),
				MaxRequests:  getEnvAsInt("RATE_CREATION_MAX_REQUESTS", 10),
			},
			Read: RateClass{
				Name:         "read",
				WindowMillis: getEnvAsInt("RATE_READ_WINDOW_MILLIS", 60000),
				MaxRequests:  getEnvAsInt("RATE_READ_MAX_REQUESTS", 120),
			},
			AdminOps: RateClass{
				Name:         "admin",
				WindowMillis: getEnvAsInt("RATE_ADMIN_WINDOW_MILLIS", 60000),
				MaxRequests:  getEnvAsInt("RATE_ADMIN_MAX_REQUESTS", 30),
			},
			PublishDailyLimit:    getEnvAsInt("PUBLISH_DAILY_LIMIT", 3),
			SweepIntervalSeconds: getEnvAsInt("RATE_SWEEP_INTERVAL_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// VerifyTimeout bounds remote credential verification.
func (a AuthConfig) VerifyTimeout() time.Duration {
	return time.Duration(a.VerifyTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

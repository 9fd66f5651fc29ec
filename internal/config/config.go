package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Service names accepted by APP_SERVICE and --service.
const (
	ServiceIdentity = "identity"
	ServiceTickets  = "tickets"
	ServiceAll      = "all"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Tickets      TicketConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	Service               string
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

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	BcryptCost              int
	SessionCacheTTLSeconds  int
	LoginRateLimitPerMinute int
}

// TicketConfig declares the ticket status vocabulary.
type TicketConfig struct {
	StatusSet   string
	Transitions string
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	EmailFrom     string
	WebhookURL    string
	EventsChannel string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			Service:               getEnv("APP_SERVICE", ServiceAll),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			SessionCacheTTLSeconds:  getEnvAsInt("AUTH_SESSION_CACHE_TTL_SECONDS", 300),
			LoginRateLimitPerMinute: getEnvAsInt("AUTH_LOGIN_RATE_LIMIT_PER_MINUTE", 20),
		},
		Tickets: TicketConfig{
			StatusSet:   getEnv("TICKET_STATUS_SET", "standard"),
			Transitions: os.Getenv("TICKET_TRANSITIONS"),
		},
		Notification: NotificationConfig{
			EmailFrom:     getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			EventsChannel: getEnv("NOTIFY_EVENTS_CHANNEL", "helpdesk.tickets"),
		},
	}

	if err := cfg.App.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Tickets.Statuses(); err != nil {
		return nil, err
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

// Serves reports whether the process exposes the named service.
func (a AppConfig) Serves(name string) bool {
	return a.Service == ServiceAll || a.Service == name
}

func (a AppConfig) validate() error {
	switch a.Service {
	case ServiceIdentity, ServiceTickets, ServiceAll:
		return nil
	default:
		return fmt.Errorf("invalid APP_SERVICE %q", a.Service)
	}
}

// SessionCacheTTL returns how long a token lookup stays cached.
func (a AuthConfig) SessionCacheTTL() time.Duration {
	if a.SessionCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.SessionCacheTTLSeconds) * time.Second
}

// Statuses builds the configured status set including declared transitions.
func (t TicketConfig) Statuses() (domain.StatusSet, error) {
	var set domain.StatusSet
	switch strings.ToLower(strings.TrimSpace(t.StatusSet)) {
	case "", "standard":
		set = domain.StandardStatusSet()
	case "legacy":
		set = domain.LegacyStatusSet()
	default:
		return domain.StatusSet{}, fmt.Errorf("invalid TICKET_STATUS_SET %q", t.StatusSet)
	}
	set, err := set.WithTransitions(t.Transitions)
	if err != nil {
		return domain.StatusSet{}, fmt.Errorf("invalid TICKET_TRANSITIONS: %w", err)
	}
	return set, nil
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

package app

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimit         int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000/api"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"20s"`

	ClientCookie string        `envconfig:"CLIENT_COOKIE" default:"schooldesk_client"`
	ClientTTL    time.Duration `envconfig:"CLIENT_TTL" default:"720h"`

	DefaultTokenTTL       time.Duration `envconfig:"DEFAULT_TOKEN_TTL" default:"24h"`
	RestrictedRedirectURL string        `envconfig:"RESTRICTED_REDIRECT_URL" default:"https://portal.schooldesk.local"`
	RedirectOnExpiry      bool          `envconfig:"REDIRECT_ON_EXPIRY" default:"true"`

	EditorTTL    time.Duration `envconfig:"EDITOR_TTL" default:"2h"`
	ListPageSize int           `envconfig:"LIST_PAGE_SIZE" default:"10"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	SweepCron string `envconfig:"SWEEP_CRON" default:"*/5 * * * *"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("backend url must be provided")
	}
	if cfg.ListPageSize <= 0 {
		return nil, errors.New("list page size must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// QueueRedis returns the Asynq connection options for the configured Redis.
func (c *Config) QueueRedis() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

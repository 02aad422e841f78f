package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App
	HTTP     HTTP
	Postgres Postgres
	Redis    Redis
	Probe    Probe
	Metrics  Metrics
	Bot      Bot
}

// StoreKind хранилище продаж и балансов.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StorePostgres StoreKind = "postgres"
)

type App struct {
	Name              string        `env:"APP_NAME" envDefault:"pocamarket"`
	Version           string        `env:"APP_VERSION" envDefault:"dev"`
	LogLevel          slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	LogColor          bool          `env:"LOG_COLOR" envDefault:"false"`
	Store             StoreKind     `env:"STORE" envDefault:"postgres"`
	SettleMaxAttempts int           `env:"SETTLE_MAX_ATTEMPTS" envDefault:"3"`
	SettleRetryDelay  time.Duration `env:"SETTLE_RETRY_DELAY" envDefault:"20ms"`
	RecentPricesTTL   time.Duration `env:"RECENT_PRICES_TTL" envDefault:"30s"`
}

type HTTP struct {
	ListenAddress     string        `env:"HTTP_LISTEN_ADDRESS" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogFieldMaxLen    int           `env:"HTTP_LOG_FIELD_MAX_LEN" envDefault:"2048"`
	AllowedOrigins    []string      `env:"HTTP_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Redis нужен только воркеру уведомлений; пустой адрес отключает очередь.
type Redis struct {
	Address            string `env:"REDIS_ADDRESS"`
	Username           string `env:"REDIS_USERNAME"`
	Password           string `env:"REDIS_PASSWORD" json:"-"`
	DatabaseNumber     int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize           int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConnections int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"1"`
	MaxIdleConnections int    `env:"REDIS_MAX_IDLE_CONNS" envDefault:"5"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY" envDefault:"4"`
}

func (r Redis) Enabled() bool {
	return r.Address != ""
}

type Probe struct {
	ListenAddress string `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
}

type Metrics struct {
	ListenAddress string `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
}

// Bot telegram-бот администратора. Без токена не запускается.
type Bot struct {
	Token  string `env:"BOT_TOKEN" json:"-"`
	ChatID int64  `env:"BOT_CHAT_ID"`
}

func (b Bot) Enabled() bool {
	return b.Token != ""
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	switch c.App.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: PG_DSN is required for STORE=%s", c.App.Store)
		}
	default:
		return fmt.Errorf("config: unknown STORE %q", c.App.Store)
	}

	if c.App.SettleMaxAttempts < 1 {
		return fmt.Errorf("config: SETTLE_MAX_ATTEMPTS must be positive, got %d", c.App.SettleMaxAttempts)
	}

	if c.Bot.Enabled() && c.Bot.ChatID == 0 {
		return errors.New("config: BOT_CHAT_ID is required when BOT_TOKEN is set")
	}

	return nil
}

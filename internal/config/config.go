package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string `env:"ENV" env-default:"development"`
	DBDSN         string `env:"DB_DSN" env-required:"true"`
	TelegramToken string `env:"TELEGRAM_TOKEN"` // пустой - бот не запускается
	RedisAddr     string `env:"REDIS_ADDR"`     // пустой - блокировки и попытки в памяти процесса

	MigrationsPath string `env:"MIGRATIONS_PATH" env-default:"migrations"`

	HTTPServer
	Schedule
}

type HTTPServer struct {
	Address         string        `env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Schedule struct {
	Timezone   string        `env:"TIMEZONE" env-default:"UTC"`
	WeekStart  string        `env:"WEEK_START" env-default:"monday"`
	LockTTL    time.Duration `env:"LOCK_TTL" env-default:"10s"`
	AttemptTTL time.Duration `env:"ATTEMPT_TTL" env-default:"30m"`
	StatusCron string        `env:"STATUS_CRON" env-default:"@every 1m"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	// Блокировки в памяти не защищают от гонок между несколькими экземплярами
	if cfg.IsProduction() && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required in production")
	}

	return &cfg, nil
}

// Location возвращает часовой пояс календаря
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsProduction - запуск в production окружении
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

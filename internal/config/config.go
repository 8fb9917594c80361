package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN          string `mapstructure:"DB_DSN"`
	Environment    string `mapstructure:"ENV"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	Timezone              *time.Location
	SlotStepMinutes       int
	ProposalHorizonMonths int
	DefaultNoticeHours    int
	PartnerNoticeHours    int
	PartnerSchools        []string
	AdminTelegramIDs      []int64
	ReminderCron          string
	NotifyTimeout         time.Duration
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из функции чтения переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DBDSN:          get("DB_DSN", ""),
		TelegramToken:  get("TELEGRAM_TOKEN", ""),
		Environment:    get("ENV", "development"),
		MigrationsPath: get("MIGRATIONS_PATH", "migrations"),
		ReminderCron:   get("REMINDER_CRON", "0 9 * * *"),
	}

	var err error
	tz := get("SCHOOL_TIMEZONE", "America/Sao_Paulo")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("SCHOOL_TIMEZONE %q: %w", tz, err)
	}

	ints := []struct {
		key string
		def int
		dst *int
		min int
	}{
		{"SLOT_STEP_MINUTES", 30, &cfg.SlotStepMinutes, 1},
		{"PROPOSAL_HORIZON_MONTHS", 3, &cfg.ProposalHorizonMonths, 1},
		{"DEFAULT_NOTICE_HOURS", 6, &cfg.DefaultNoticeHours, 0},
		{"PARTNER_NOTICE_HOURS", 24, &cfg.PartnerNoticeHours, 0},
	}
	for _, v := range ints {
		raw := get(v.key, strconv.Itoa(v.def))
		n, err := strconv.Atoi(raw)
		if err != nil || n < v.min {
			return nil, fmt.Errorf("%s: invalid value %q", v.key, raw)
		}
		*v.dst = n
	}

	for _, school := range strings.Split(get("PARTNER_SCHOOLS", "PARTNER"), ",") {
		if school = strings.TrimSpace(school); school != "" {
			cfg.PartnerSchools = append(cfg.PartnerSchools, school)
		}
	}

	for _, raw := range strings.Split(get("ADMIN_TELEGRAM_IDS", ""), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_IDS: invalid id %q", raw)
		}
		cfg.AdminTelegramIDs = append(cfg.AdminTelegramIDs, id)
	}

	timeout := get("NOTIFY_TIMEOUT", "10s")
	if cfg.NotifyTimeout, err = time.ParseDuration(timeout); err != nil || cfg.NotifyTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFY_TIMEOUT: invalid duration %q", timeout)
	}

	if cfg.Environment == "production" && cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required in production")
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// UseMemoryStore работает ли бот без PostgreSQL
func (c *Config) UseMemoryStore() bool {
	return c.DBDSN == ""
}
